package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// ErrNoScene is returned by Session operations before a scene is loaded.
var ErrNoScene = errors.New("session has no scene")

// Session holds one caller's current scene and extras assets. Its methods
// are safe for concurrent use: lock toggles, extras changes and renders
// are serialised on the session mutex.
type Session struct {
	p *Pipeline

	mu     sync.Mutex
	scene  *scene.Scene
	assets []scene.ExtraAsset
}

// NewSession returns an empty session rendering through p.
func NewSession(p *Pipeline) *Session {
	return &Session{p: p}
}

// Load reconstructs px and makes it the current scene. Extras assets are
// kept.
func (s *Session) Load(ctx context.Context, px *raster.Pixels, sceneID string) (*scene.Scene, error) {
	sc, err := s.p.CreateScene(ctx, px, sceneID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.scene = sc
	s.mu.Unlock()
	return sc, nil
}

// Scene returns the current scene, or nil.
func (s *Session) Scene() *scene.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

// ConfigureExtras sets the assets and re-places extras on the current
// scene.
func (s *Session) ConfigureExtras(assets []scene.ExtraAsset, density int, mix map[string]float64, seed uint64) ([]scene.ExtraPlacement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil {
		return nil, ErrNoScene
	}
	s.assets = assets
	return s.p.ConfigureExtras(s.scene, assets, density, mix, seed), nil
}

// SetLocked locks or unlocks region id. found is false for unknown ids.
func (s *Session) SetLocked(id string, locked bool) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil {
		return false, ErrNoScene
	}
	if locked {
		return s.p.LockRegion(s.scene, id), nil
	}
	return s.p.UnlockRegion(s.scene, id), nil
}

// Render generates a frame of the current scene at time t.
func (s *Session) Render(ctx context.Context, cam scene.Camera, t float64) (*FrameOutputs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil {
		return nil, ErrNoScene
	}
	return s.p.GenerateFrameAt(ctx, s.scene, cam, s.assets, t)
}
