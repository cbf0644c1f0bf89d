package l1recon

import (
	"sort"

	"github.com/banshee-data/anchorstage/internal/stage/geom"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"gonum.org/v1/gonum/stat"
)

// Region rule constants.
const (
	bandFraction     = 0.35 // sky and ground bands, as a fraction of rows
	skyPercentile    = 0.70
	groundPercentile = 0.40
	facadeNear       = 0.5 // facade depth window, × median scene depth
	facadeFar        = 1.3
)

// segmentRegions applies the sky, ground and facade rules in order. A rule
// only claims pixels no earlier rule claimed; empty regions are dropped.
func segmentRegions(img *raster.Image, d *raster.Map, k geom.Intrinsics) []*scene.Region {
	w, h := d.W, d.H
	band := int(float64(h) * bandFraction)
	if band < 1 {
		band = 1
	}
	claimed := raster.NewMask(w, h)
	var regions []*scene.Region

	// Sky: far, blue-dominant pixels in the top band.
	skyCut := quantile(d.Rows(0, band), skyPercentile)
	sky := raster.NewMask(w, h)
	for y := 0; y < band; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			c := img.AtIndex(i)
			if d.Data[i] >= skyCut && c[2] > img.Luma(i) {
				sky.Bits[i] = true
			}
		}
	}
	if claim(claimed, sky) {
		regions = append(regions, scene.NewRegion("sky", scene.LabelSky, sky, nil))
	}

	// Ground: near pixels in the bottom band, on a horizontal plane at the
	// median camera-space height of those pixels.
	groundCut := quantile(d.Rows(h-band, h), groundPercentile)
	ground := raster.NewMask(w, h)
	var heights []float64
	for y := h - band; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if claimed.Bits[i] || d.Data[i] > groundCut {
				continue
			}
			ground.Bits[i] = true
			heights = append(heights, geom.BackProjectPixel(x, y, d.Data[i], k).Y)
		}
	}
	if claim(claimed, ground) {
		plane := scene.Plane{0, 1, 0, -quantile(heights, 0.5)}
		regions = append(regions, scene.NewRegion("ground", scene.LabelGround, ground, &plane))
	}

	// Facade: everything left within a window around the median depth,
	// on a frontal plane at the median facade depth.
	median := quantile(d.Data, 0.5)
	facade := raster.NewMask(w, h)
	var depths []float64
	for i, v := range d.Data {
		if claimed.Bits[i] || v < facadeNear*median || v > facadeFar*median {
			continue
		}
		facade.Bits[i] = true
		depths = append(depths, v)
	}
	if claim(claimed, facade) {
		plane := scene.Plane{0, 0, 1, -quantile(depths, 0.5)}
		regions = append(regions, scene.NewRegion("facade", scene.LabelFacade, facade, &plane))
	}

	for _, r := range regions {
		tracef("region %s: %d pixels", r.ID, r.Mask().Count())
	}
	return regions
}

// claim marks m's pixels as taken and reports whether m is non-empty.
func claim(claimed, m *raster.Mask) bool {
	if !m.Any() {
		return false
	}
	_ = claimed.Or(m)
	return true
}

// quantile returns the linearly interpolated p-quantile of values without
// modifying them. It returns 0 for an empty slice.
func quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}
