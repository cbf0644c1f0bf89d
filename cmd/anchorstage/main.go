// Command anchorstage reconstructs a proxy scene from one witness
// photograph and renders a short camera sweep of it, writing every pass of
// every frame as PNG with its metadata.json.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/banshee-data/anchorstage/internal/config"
	"github.com/banshee-data/anchorstage/internal/monitoring"
	"github.com/banshee-data/anchorstage/internal/stage/depth"
	"github.com/banshee-data/anchorstage/internal/stage/l1recon"
	"github.com/banshee-data/anchorstage/internal/stage/l2proxy"
	"github.com/banshee-data/anchorstage/internal/stage/l3reproject"
	"github.com/banshee-data/anchorstage/internal/stage/l4extras"
	"github.com/banshee-data/anchorstage/internal/stage/l5fill"
	"github.com/banshee-data/anchorstage/internal/stage/monitor"
	"github.com/banshee-data/anchorstage/internal/stage/pipeline"
	"github.com/banshee-data/anchorstage/internal/version"
)

type options struct {
	imagePath  string
	configPath string
	outDir     string
	sceneID    string
	maxWidth   int

	assetsPath string
	density    int
	mix        map[string]float64
	seed       uint64
	locks      []string

	frames        int
	dx, dyaw      float64
	fps           float64
	width, height int

	dbPath string
	plots  bool
}

func main() {
	imagePath := flag.String("image", "", "Witness photograph (PNG, JPEG, GIF, BMP, TIFF or WebP)")
	configPath := flag.String("config", "", "Tuning config JSON (defaults to config/tuning.defaults.json)")
	outDir := flag.String("out", "anchorstage-out", "Output directory")
	sceneID := flag.String("scene-id", "", "Scene id (defaults to a new UUID)")
	maxWidth := flag.Int("max-width", 0, "Downscale witnesses wider than this (0 keeps the original size)")

	assetsPath := flag.String("assets", "", "Extras asset manifest JSON")
	density := flag.Int("density", 8, "Number of extras to place")
	mixFlag := flag.String("mix", "walk=0.5,idle=0.5", "Motion mix as type=weight pairs")
	seed := flag.Uint64("seed", 7, "Placement seed")
	lockFlag := flag.String("lock", "", "Comma-separated region ids to lock (e.g. sky,ground)")

	frames := flag.Int("frames", 5, "Frames in the camera sweep")
	dx := flag.Float64("dx", 0.05, "Camera x offset per frame (m)")
	dyaw := flag.Float64("dyaw", 1.0, "Camera yaw per frame (degrees)")
	fps := flag.Float64("fps", 12, "Sweep frame rate for extras animation")
	width := flag.Int("width", 0, "Render width (0 uses the witness width)")
	height := flag.Int("height", 0, "Render height (0 uses the witness height)")

	dbPath := flag.String("db", "", "SQLite database to record scenes and frames in")
	plots := flag.Bool("plots", true, "Write confidence sweep plots")
	debug := flag.Bool("debug", false, "Enable per-frame diagnostic logging")
	trace := flag.Bool("trace", false, "Enable trace logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "anchorstage: -image is required")
		flag.Usage()
		os.Exit(2)
	}
	mix, err := parseMix(*mixFlag)
	if err != nil {
		log.Fatalf("invalid -mix: %v", err)
	}

	setupLogging(*debug, *trace)
	monitoring.Logf("%s", version.String())

	opts := options{
		imagePath:  *imagePath,
		configPath: *configPath,
		outDir:     *outDir,
		sceneID:    *sceneID,
		maxWidth:   *maxWidth,
		assetsPath: *assetsPath,
		density:    *density,
		mix:        mix,
		seed:       *seed,
		locks:      parseList(*lockFlag),
		frames:     *frames,
		dx:         *dx,
		dyaw:       *dyaw,
		fps:        *fps,
		width:      *width,
		height:     *height,
		dbPath:     *dbPath,
		plots:      *plots,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("anchorstage: %v", err)
	}
}

// setupLogging routes the ops stream of every stage through
// monitoring.Logf; diag and trace are opt-in.
func setupLogging(debug, trace bool) {
	ops := monitoring.Writer()
	var diag, tr io.Writer
	if debug {
		diag = ops
	}
	if trace {
		tr = ops
	}
	for _, set := range []func(io.Writer, io.Writer, io.Writer){
		depth.SetLogWriters,
		l1recon.SetLogWriters,
		l2proxy.SetLogWriters,
		l3reproject.SetLogWriters,
		l4extras.SetLogWriters,
		l5fill.SetLogWriters,
		pipeline.SetLogWriters,
		monitor.SetLogWriters,
	} {
		set(ops, diag, tr)
	}
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.MustLoadDefaultConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// parseMix parses "walk=0.5,idle=0.5". An empty string gives an empty mix.
func parseMix(s string) (map[string]float64, error) {
	mix := make(map[string]float64)
	for _, part := range parseList(s) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("expected type=weight, got %q", part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %q: %w", k, err)
		}
		if w < 0 {
			return nil, fmt.Errorf("negative weight for %q", k)
		}
		mix[strings.TrimSpace(k)] = w
	}
	return mix, nil
}

// parseList splits a comma-separated list, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func frameDir(outDir string, i int) string {
	return filepath.Join(outDir, fmt.Sprintf("frame_%04d", i))
}
