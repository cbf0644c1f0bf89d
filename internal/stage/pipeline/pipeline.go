package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/banshee-data/anchorstage/internal/config"
	"github.com/banshee-data/anchorstage/internal/stage/l1recon"
	"github.com/banshee-data/anchorstage/internal/stage/l2proxy"
	"github.com/banshee-data/anchorstage/internal/stage/l3reproject"
	"github.com/banshee-data/anchorstage/internal/stage/l4extras"
	"github.com/banshee-data/anchorstage/internal/stage/l5fill"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// Config wires the stages.
type Config struct {
	Recon     l1recon.Config
	Renderer  *l2proxy.Renderer
	Filler    l5fill.Filler            // wrapped in l5fill.Guard by New
	Placement l4extras.PlacementConfig // Density and MotionMix are set per call
}

// DefaultConfig returns stock settings for every stage.
func DefaultConfig() Config {
	return Config{
		Recon:     l1recon.DefaultConfig(),
		Renderer:  l2proxy.DefaultRenderer(),
		Filler:    l5fill.DefaultWavefront(),
		Placement: l4extras.DefaultPlacementConfig(0, nil),
	}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Recon:     l1recon.ConfigFromTuning(cfg),
		Renderer:  l2proxy.RendererFromTuning(cfg),
		Filler:    l5fill.WavefrontFromTuning(cfg),
		Placement: l4extras.PlacementConfigFromTuning(cfg, 0, nil),
	}
}

// Pipeline turns witness photographs into Scenes and Scenes into frames.
type Pipeline struct {
	recon     *l1recon.Reconstructor
	renderer  *l2proxy.Renderer
	filler    l5fill.Filler
	placement l4extras.PlacementConfig
}

// New builds a Pipeline. Nil stages fall back to their defaults; an
// invalid reconstruction config is an error.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Recon.Validate(); err != nil {
		return nil, fmt.Errorf("reconstruction config: %w", err)
	}
	if cfg.Renderer == nil {
		cfg.Renderer = l2proxy.DefaultRenderer()
	}
	if cfg.Filler == nil {
		cfg.Filler = l5fill.DefaultWavefront()
	}
	if cfg.Placement.AttemptsPerExtra <= 0 {
		cfg.Placement = l4extras.DefaultPlacementConfig(0, nil)
	}
	return &Pipeline{
		recon:     l1recon.New(cfg.Recon),
		renderer:  cfg.Renderer,
		filler:    l5fill.NewGuard(cfg.Filler),
		placement: cfg.Placement,
	}, nil
}

// FromTuning is New(ConfigFromTuning(cfg)).
func FromTuning(cfg *config.TuningConfig) (*Pipeline, error) {
	return New(ConfigFromTuning(cfg))
}

// CreateScene reconstructs a Scene from an H×W×3 witness.
func (p *Pipeline) CreateScene(ctx context.Context, px *raster.Pixels, sceneID string) (*scene.Scene, error) {
	s, err := p.recon.Reconstruct(ctx, px, sceneID)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	return s, nil
}

// ConfigureExtras replaces the scene's extras with density placements drawn
// from a PCG source seeded with seed.
func (p *Pipeline) ConfigureExtras(s *scene.Scene, assets []scene.ExtraAsset, density int, mix map[string]float64, seed uint64) []scene.ExtraPlacement {
	cfg := p.placement
	cfg.Density = density
	cfg.MotionMix = mix
	return l4extras.Place(s, assets, cfg, rand.New(rand.NewPCG(seed, 0)))
}

// LockRegion locks region id and reports whether it exists.
func (p *Pipeline) LockRegion(s *scene.Scene, id string) bool {
	return s.SetLocked(id, true)
}

// UnlockRegion unlocks region id and reports whether it exists.
func (p *Pipeline) UnlockRegion(s *scene.Scene, id string) bool {
	return s.SetLocked(id, false)
}

// GenerateFrame renders s from cam at animation time zero.
func (p *Pipeline) GenerateFrame(ctx context.Context, s *scene.Scene, cam scene.Camera, assets []scene.ExtraAsset) (*FrameOutputs, error) {
	return p.GenerateFrameAt(ctx, s, cam, assets, 0)
}

// GenerateFrameAt renders s from cam with extras animated to t seconds.
func (p *Pipeline) GenerateFrameAt(ctx context.Context, s *scene.Scene, cam scene.Camera, assets []scene.ExtraAsset, t float64) (*FrameOutputs, error) {
	if err := cam.Validate(); err != nil {
		opsf("rejected camera: %v", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	w, h := cam.Width, cam.Height

	proxy := p.renderer.Render(s, cam)
	lock := s.LockMask(w, h)
	tracef("proxy %v", time.Since(start))

	repro, err := l3reproject.Reproject(s, cam, proxy.Void, lock)
	if err != nil {
		return nil, fmt.Errorf("reproject: %w", err)
	}
	tracef("reproject %v", time.Since(start))

	extras := l4extras.Render(repro.Color, cam, s.Extras, scene.AssetsByID(assets), proxy.Depth, t)
	tracef("extras %v", time.Since(start))

	filled, err := p.filler.Fill(ctx, l5fill.Request{
		Witness: extras.Color,
		Void:    repro.Void,
		Lock:    lock,
		Depth:   repro.Depth,
		Normals: proxy.Normals,
		Base:    s.BaseWitness,
		Camera:  cam,
	})
	if err != nil {
		return nil, err
	}
	tracef("fill %v", time.Since(start))

	out := &FrameOutputs{
		Beauty:             filled,
		Depth:              proxy.Depth.FiniteOr(0),
		Void:               repro.Void,
		Known:              repro.Known,
		Normals:            proxy.Normals,
		ExtrasID:           extras.ID,
		ExtrasDepth:        extras.Depth,
		ProxyColor:         proxy.Color,
		Confidence:         proxy.Confidence.Overall,
		WitnessReprojected: extras.Color,
		WitnessRefreshed:   filled,
		RegionMasks:        s.RegionMasks(),
		LockMask:           lock,
		Metadata:           buildMetadata(s, cam, proxy.Confidence),
	}
	diagf("scene %s frame %dx%d t=%.3f: void %.4f, confidence %.4f, %d extras in %v",
		s.ID, w, h, t, out.Void.Ratio(), out.Confidence, len(s.Extras), time.Since(start))
	return out, nil
}
