package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/banshee-data/anchorstage/internal/stage/pipeline"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoSamples is returned when plotting an empty sweep.
var ErrNoSamples = errors.New("no sweep samples recorded")

// SweepSample is the confidence breakdown of one frame of a sweep.
type SweepSample struct {
	Index      int
	Label      string // camera description, e.g. "x=0.10 yaw=2.0"
	Overall    float64
	VoidFactor float64
	Depth      float64
	Angle      float64
	VoidRatio  float64
}

// SampleFromFrame extracts a SweepSample from a rendered frame.
func SampleFromFrame(index int, label string, f *pipeline.FrameOutputs) SweepSample {
	c := f.Metadata.Confidence
	return SweepSample{
		Index:      index,
		Label:      label,
		Overall:    c.Overall,
		VoidFactor: c.VoidFactor,
		Depth:      c.DepthConfidence,
		Angle:      c.AngleConfidence,
		VoidRatio:  f.Void.Ratio(),
	}
}

// Summary is the aggregate of a sweep.
type Summary struct {
	Frames      int
	MeanOverall float64
	MinOverall  float64
	MaxVoid     float64
}

// SweepPlotter accumulates samples and writes plots into outputDir.
type SweepPlotter struct {
	mu        sync.Mutex
	outputDir string
	title     string
	samples   []SweepSample
}

// NewSweepPlotter creates a plotter writing into outputDir.
func NewSweepPlotter(outputDir, title string) *SweepPlotter {
	return &SweepPlotter{outputDir: outputDir, title: title}
}

// Add records one sample.
func (sp *SweepPlotter) Add(s SweepSample) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.samples = append(sp.samples, s)
	tracef("sample %d %s: overall %.4f void %.4f", s.Index, s.Label, s.Overall, s.VoidRatio)
}

// Samples returns a copy of the recorded samples.
func (sp *SweepPlotter) Samples() []SweepSample {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]SweepSample, len(sp.samples))
	copy(out, sp.samples)
	return out
}

// Summary aggregates the recorded samples.
func (sp *SweepPlotter) Summary() (Summary, error) {
	samples := sp.Samples()
	if len(samples) == 0 {
		return Summary{}, ErrNoSamples
	}
	overall := make([]float64, len(samples))
	voids := make([]float64, len(samples))
	for i, s := range samples {
		overall[i] = s.Overall
		voids[i] = s.VoidRatio
	}
	return Summary{
		Frames:      len(samples),
		MeanOverall: stat.Mean(overall, nil),
		MinOverall:  floats.Min(overall),
		MaxVoid:     floats.Max(voids),
	}, nil
}

// series is one plotted quantity.
type series struct {
	name  string
	value func(SweepSample) float64
}

var sweepSeries = []series{
	{"overall", func(s SweepSample) float64 { return s.Overall }},
	{"void factor", func(s SweepSample) float64 { return s.VoidFactor }},
	{"depth", func(s SweepSample) float64 { return s.Depth }},
	{"angle", func(s SweepSample) float64 { return s.Angle }},
	{"void ratio", func(s SweepSample) float64 { return s.VoidRatio }},
}

// WritePNG plots every series against the frame index and returns the
// written path.
func (sp *SweepPlotter) WritePNG(name string) (string, error) {
	samples := sp.Samples()
	if len(samples) == 0 {
		return "", ErrNoSamples
	}
	if err := os.MkdirAll(sp.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	p := plot.New()
	p.Title.Text = sp.title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 1

	colors := generateColors(len(sweepSeries))
	for i, s := range sweepSeries {
		pts := make(plotter.XYs, 0, len(samples))
		for _, smp := range samples {
			pts = append(pts, plotter.XY{X: float64(smp.Index), Y: s.value(smp)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	path := filepath.Join(sp.outputDir, name+".png")
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		opsf("failed to save %s: %v", path, err)
		return "", fmt.Errorf("save plot: %w", err)
	}
	diagf("wrote %s (%d samples)", path, len(samples))
	return path, nil
}

// WriteHTML renders the same series as an interactive line chart and
// returns the written path.
func (sp *SweepPlotter) WriteHTML(name string) (string, error) {
	samples := sp.Samples()
	if len(samples) == 0 {
		return "", ErrNoSamples
	}
	if err := os.MkdirAll(sp.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: sp.title, Width: "1000px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: sp.title, Subtitle: fmt.Sprintf("frames=%d", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Score"}),
	)

	labels := make([]string, len(samples))
	for i, s := range samples {
		labels[i] = s.Label
		if labels[i] == "" {
			labels[i] = fmt.Sprintf("%d", s.Index)
		}
	}
	line.SetXAxis(labels)
	for _, s := range sweepSeries {
		data := make([]opts.LineData, len(samples))
		for i, smp := range samples {
			data[i] = opts.LineData{Value: s.value(smp)}
		}
		line.AddSeries(s.name, data)
	}

	path := filepath.Join(sp.outputDir, name+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		opsf("failed to render %s: %v", path, err)
		return "", fmt.Errorf("render chart: %w", err)
	}
	diagf("wrote %s (%d samples)", path, len(samples))
	return path, nil
}

// generateColors spreads n hues evenly around the colour wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
