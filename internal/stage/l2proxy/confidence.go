package l2proxy

import (
	"math"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Confidence is the three-factor reliability estimate of a proxy view.
// Overall is exactly the product of the other three, and every field lies
// in [0,1].
type Confidence struct {
	Overall    float64
	VoidFactor float64 // 1 − void ratio
	Depth      float64 // depth-surface smoothness
	Angle      float64 // closeness to the witness orientation
}

func computeConfidence(d *raster.Map, void *raster.Mask, cam scene.Camera, base *scene.Camera) Confidence {
	c := Confidence{
		VoidFactor: 1.0 - void.Ratio(),
		Depth:      depthConfidence(d, void),
		Angle:      angleConfidence(cam, base),
	}
	c.Overall = c.VoidFactor * c.Depth * c.Angle
	return c
}

// depthConfidence is clip(1 − 2·roughness, 0.05, 1) where roughness is the
// mean absolute depth step between 4-adjacent valid pixels over the mean
// valid depth. No valid pixels gives 0; no valid pairs gives 0.5.
func depthConfidence(d *raster.Map, void *raster.Mask) float64 {
	w, h := d.W, d.H
	valid := func(i int) bool { return !void.Bits[i] && !math.IsInf(d.Data[i], 0) && !math.IsNaN(d.Data[i]) }

	var depths, steps []float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !valid(i) {
				continue
			}
			depths = append(depths, d.Data[i])
			if x+1 < w && valid(i+1) {
				steps = append(steps, math.Abs(d.Data[i+1]-d.Data[i]))
			}
			if y+1 < h && valid(i+w) {
				steps = append(steps, math.Abs(d.Data[i+w]-d.Data[i]))
			}
		}
	}
	if len(depths) == 0 {
		return 0
	}
	if len(steps) == 0 {
		return 0.5
	}
	roughness := stat.Mean(steps, nil) / (floats.Sum(depths)/float64(len(depths)) + 1e-6)
	return clamp(1.0-2.0*roughness, 0.05, 1.0)
}

// angleConfidence falls linearly from 1 at the witness orientation to 0 at
// 90° of Euclidean Euler-angle deviation. Without a base camera it is 1.
func angleConfidence(cam scene.Camera, base *scene.Camera) float64 {
	if base == nil {
		return 1.0
	}
	dx := cam.RotationDeg.X - base.RotationDeg.X
	dy := cam.RotationDeg.Y - base.RotationDeg.Y
	dz := cam.RotationDeg.Z - base.RotationDeg.Z
	deviation := math.Sqrt(dx*dx + dy*dy + dz*dz)
	return clamp(1.0-deviation/90.0, 0, 1)
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
