package l1recon

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/anchorstage/internal/stage/depth"
	"github.com/banshee-data/anchorstage/internal/stage/geom"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/google/uuid"
)

// ErrNotRGB is returned for input arrays whose channel count is not 3.
var ErrNotRGB = raster.ErrNotRGB

// Splat footprint: baseScale + min(maxExtraScale, varianceGain·var3×3).
const (
	baseScale     = 0.6
	maxExtraScale = 1.4
	varianceGain  = 3.0
)

// Reconstructor turns witness photographs into Scenes.
type Reconstructor struct {
	cfg Config
}

// New returns a Reconstructor. A nil Estimator falls back to the heuristic
// and a stride below one is treated as one.
func New(cfg Config) *Reconstructor {
	if cfg.Estimator == nil {
		cfg.Estimator = depth.DefaultHeuristic()
	}
	if cfg.Stride < 1 {
		cfg.Stride = 1
	}
	if cfg.FocalLengthMM <= 0 {
		cfg.FocalLengthMM = scene.DefaultFocalLengthMM
	}
	if cfg.FilmbackMM <= 0 {
		cfg.FilmbackMM = scene.DefaultFilmbackMM
	}
	return &Reconstructor{cfg: cfg}
}

// Reconstruct builds a Scene from an H×W×3 array. Values above 1 are taken
// as 8-bit and rescaled. Any channel count other than 3 is rejected with
// ErrNotRGB. An empty sceneID gets a fresh UUID.
func (r *Reconstructor) Reconstruct(ctx context.Context, px *raster.Pixels, sceneID string) (*scene.Scene, error) {
	start := time.Now()

	img, err := px.ToImage()
	if err != nil {
		opsf("rejected witness: %v", err)
		return nil, err
	}
	w, h := img.W, img.H

	base := scene.DefaultCamera(w, h)
	base.FocalLengthMM = r.cfg.FocalLengthMM
	base.FilmbackMM = r.cfg.FilmbackMM
	k := base.Intrinsics()

	d, err := r.cfg.Estimator.Estimate(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("estimate depth: %w", err)
	}
	if err := depth.Check(d, img); err != nil {
		return nil, err
	}

	conf := confidenceFromDepth(d)
	normals := normalsFromDepth(d, k)
	splats, splatOf := buildSplats(img, d, conf, k, r.cfg.Stride)
	regions := segmentRegions(img, d, k)
	for _, reg := range regions {
		reg.SplatIndices = splatIndices(reg.Mask(), splatOf)
	}

	if sceneID == "" {
		sceneID = uuid.New().String()
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}

	s := &scene.Scene{
		ID:                 sceneID,
		BaseWitness:        img,
		Splats:             splats,
		Depth:              d,
		Confidence:         conf,
		Normals:            normals,
		Regions:            regions,
		BaseCamera:         &base,
		MetricScale:        1.0,
		ReconstructionTime: elapsed,
	}
	diagf("scene %s: %dx%d, %d splats, %d regions in %v", s.ID, w, h, len(splats), len(regions), elapsed)
	return s, nil
}

// buildSplats lifts every stride-th pixel through the base camera. splatOf
// maps a pixel index to its splat index, or -1.
func buildSplats(img *raster.Image, d, conf *raster.Map, k geom.Intrinsics, stride int) ([]scene.Splat, []int) {
	w, h := d.W, d.H
	n := ((w + stride - 1) / stride) * ((h + stride - 1) / stride)
	splats := make([]scene.Splat, 0, n)
	splatOf := make([]int, w*h)
	for i := range splatOf {
		splatOf[i] = -1
	}

	patch := make([]float64, 0, 9)
	for y := 0; y < h; y += stride {
		for x := 0; x < w; x += stride {
			i := y*w + x
			z := d.Data[i]
			// Base camera sits at the origin with no rotation.
			pos := geom.BackProjectPixel(x, y, z, k)
			variance := localVariance(d, x, y, patch)
			scale := baseScale + min(maxExtraScale, variance*varianceGain)
			splatOf[i] = len(splats)
			splats = append(splats, scene.NewSplat(pos, img.AtIndex(i), conf.Data[i], scale, i))
		}
	}
	return splats, splatOf
}

func splatIndices(m *raster.Mask, splatOf []int) []int {
	var out []int
	for i, b := range m.Bits {
		if b && splatOf[i] >= 0 {
			out = append(out, splatOf[i])
		}
	}
	return out
}
