package depth

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"golang.org/x/image/draw"
)

// ErrCGORequired is returned when ONNX depth estimation is attempted without
// CGO support.
var ErrCGORequired = errors.New("depth: onnx backend requires CGO support; rebuild with CGO_ENABLED=1")

// ONNX estimates depth with a monocular depth network (MiDaS/DPT style:
// one NCHW RGB input, one relative inverse-depth output). The relative
// output is mapped into [NearMeters, NearMeters+RangeMeters] so nearer
// pixels get smaller depths.
type ONNX struct {
	ModelPath string

	// Path to the onnxruntime shared library. If empty, the environment
	// variable ONNXRUNTIME_SHARED_LIBRARY_PATH is respected.
	SharedLibraryPath string

	InputName   string
	OutputName  string
	InputWidth  int
	InputHeight int
	Mean        [3]float32
	Stddev      [3]float32

	NearMeters  float64
	RangeMeters float64

	// Loaded once and reused across Estimate calls; guarded by ortMu.
	rt *onnxRuntime
}

// NewONNX returns an ONNX estimator for modelPath with MiDaS-small defaults.
func NewONNX(modelPath string) *ONNX {
	return &ONNX{
		ModelPath:   modelPath,
		InputName:   "input",
		OutputName:  "output",
		InputWidth:  256,
		InputHeight: 256,
		Mean:        [3]float32{0.485, 0.456, 0.406},
		Stddev:      [3]float32{0.229, 0.224, 0.225},
		NearMeters:  2.5,
		RangeMeters: 1.0,
	}
}

// toRGBA converts a float witness into an 8-bit image for the resizer.
func toRGBA(img *raster.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.W, img.H))
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			c := img.At(x, y)
			out.SetRGBA(x, y, color.RGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: 255})
		}
	}
	return out
}

func to8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// disparityToDepth normalises a relative disparity output to [0,1] and maps
// it onto metric depth. The result is resampled bilinearly to w×h.
func (o *ONNX) disparityToDepth(disp []float32, dw, dh, w, h int) *raster.Map {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range disp {
		f := float64(v)
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	span := hi - lo + 1e-8

	// Quantise through Gray16 so the x/image scalers can resize it.
	src := image.NewGray16(image.Rect(0, 0, dw, dh))
	for i, v := range disp {
		n := (float64(v) - lo) / span
		src.Pix[i*2], src.Pix[i*2+1] = gray16(n)
	}
	dst := src
	if dw != w || dh != h {
		dst = image.NewGray16(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	out := raster.NewMap(w, h)
	for i := range out.Data {
		n := float64(uint16(dst.Pix[i*2])<<8|uint16(dst.Pix[i*2+1])) / 65535.0
		out.Data[i] = o.NearMeters + (1.0-n)*o.RangeMeters
	}
	return out
}

func gray16(n float64) (hi, lo uint8) {
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	v := uint16(n*65535 + 0.5)
	return uint8(v >> 8), uint8(v)
}
