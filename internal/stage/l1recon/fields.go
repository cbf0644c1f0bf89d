package l1recon

import (
	"math"

	"github.com/banshee-data/anchorstage/internal/stage/geom"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// relativeEdge is the per-pixel relative depth change (|∇d|/d) treated as
// a full discontinuity.
const relativeEdge = 0.1

// confidenceFromDepth maps depth discontinuities to low confidence:
// 1 − min(1, (|∇d|/d)/relativeEdge), using central differences on the
// interior and zero gradient on the border. Smooth slopes stay confident
// however steep the scene is overall.
func confidenceFromDepth(d *raster.Map) *raster.Map {
	w, h := d.W, d.H
	grad := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			if x > 0 && x < w-1 {
				gx = math.Abs(d.At(x+1, y)-d.At(x-1, y)) * 0.5
			}
			if y > 0 && y < h-1 {
				gy = math.Abs(d.At(x, y+1)-d.At(x, y-1)) * 0.5
			}
			grad[y*w+x] = math.Hypot(gx, gy) / d.At(x, y)
		}
	}

	out := raster.NewMap(w, h)
	for i, g := range grad {
		out.Data[i] = clamp(1.0-g/relativeEdge, 0, 1)
	}
	if len(grad) > 0 {
		tracef("max relative depth gradient %.4f", floats.Max(grad))
	}
	return out
}

// normalsFromDepth converts the depth gradient to camera-space unit
// normals. Pixel slopes become metric slopes through the pinhole
// derivative ∂z/∂x ≈ (∂z/∂u)·fx/z.
func normalsFromDepth(d *raster.Map, k geom.Intrinsics) *raster.NormalMap {
	w, h := d.W, d.H
	out := raster.NewNormalMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			z := d.At(x, y)
			dzdu := centralDiff(d, x, y, 1, 0)
			dzdv := centralDiff(d, x, y, 0, 1)
			n := r3.Vec{X: -dzdu * k.Fx / z, Y: -dzdv * k.Fy / z, Z: 1}
			out.Data[y*w+x] = r3.Unit(n)
		}
	}
	return out
}

// centralDiff is the central difference along (dx, dy), one-sided at the
// border and zero along a dimension of size one.
func centralDiff(d *raster.Map, x, y, dx, dy int) float64 {
	x0, y0 := x-dx, y-dy
	x1, y1 := x+dx, y+dy
	if x0 < 0 || y0 < 0 {
		x0, y0 = x, y
	}
	if x1 >= d.W || y1 >= d.H {
		x1, y1 = x, y
	}
	span := float64((x1 - x0) + (y1 - y0))
	if span == 0 {
		return 0
	}
	return (d.At(x1, y1) - d.At(x0, y0)) / span
}

// localVariance is the population variance of the 3×3 neighbourhood of
// (x, y), or 0 within two pixels of the border.
func localVariance(d *raster.Map, x, y int, patch []float64) float64 {
	if !(y > 1 && y < d.H-2 && x > 1 && x < d.W-2) {
		return 0
	}
	patch = patch[:0]
	for yy := y - 1; yy <= y+1; yy++ {
		patch = append(patch, d.Data[yy*d.W+x-1:yy*d.W+x+2]...)
	}
	return stat.PopVariance(patch, nil)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
