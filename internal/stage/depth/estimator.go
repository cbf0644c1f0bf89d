package depth

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// ErrInvalidDepth is returned when an estimator produces a map of the wrong
// shape or with non-positive or non-finite entries.
var ErrInvalidDepth = errors.New("depth: invalid depth map")

// Estimator is the monocular depth contract: given an RGB image, return a
// per-pixel metric depth map (metres) of the same size.
type Estimator interface {
	Estimate(ctx context.Context, img *raster.Image) (*raster.Map, error)
}

// EstimatorFunc adapts a plain function to Estimator.
type EstimatorFunc func(ctx context.Context, img *raster.Image) (*raster.Map, error)

// Estimate calls f.
func (f EstimatorFunc) Estimate(ctx context.Context, img *raster.Image) (*raster.Map, error) {
	return f(ctx, img)
}

// Heuristic places the bottom of the frame near and the top far, and pushes
// darker pixels further away:
//
//	d = Near + Span·(1 − row/(H−1)) + LumaSpan·(1 − luma)
//
// It never blocks and never fails on a well-formed image.
type Heuristic struct {
	Near     float64 // depth of a white pixel on the bottom row
	Span     float64 // extra depth from bottom row to top row
	LumaSpan float64 // extra depth from white to black
}

// DefaultHeuristic returns the heuristic with its stock constants.
func DefaultHeuristic() Heuristic {
	return Heuristic{Near: 1.0, Span: 4.0, LumaSpan: 1.5}
}

// Estimate implements Estimator.
func (h Heuristic) Estimate(_ context.Context, img *raster.Image) (*raster.Map, error) {
	out := raster.NewMap(img.W, img.H)
	for y := 0; y < img.H; y++ {
		yy := 0.0
		if img.H > 1 {
			yy = float64(y) / float64(img.H-1)
		}
		rowDepth := h.Near + (1.0-yy)*h.Span
		for x := 0; x < img.W; x++ {
			i := y*img.W + x
			out.Data[i] = rowDepth + (1.0-img.Luma(i))*h.LumaSpan
		}
	}
	return out, nil
}

// Check verifies that d is a usable depth map for img.
func Check(d *raster.Map, img *raster.Image) error {
	if d == nil {
		return fmt.Errorf("nil map: %w", ErrInvalidDepth)
	}
	if d.W != img.W || d.H != img.H || len(d.Data) != img.W*img.H {
		return fmt.Errorf("got %dx%d for %dx%d image: %w", d.W, d.H, img.W, img.H, ErrInvalidDepth)
	}
	for i, v := range d.Data {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("pixel %d has depth %v: %w", i, v, ErrInvalidDepth)
		}
	}
	return nil
}
