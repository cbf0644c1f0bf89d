package l1recon

import (
	"fmt"

	"github.com/banshee-data/anchorstage/internal/config"
	"github.com/banshee-data/anchorstage/internal/stage/depth"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// Config controls reconstruction.
type Config struct {
	Stride        int     // splat every Stride-th row and column (default: 1)
	FocalLengthMM float64 // witness lens (default: 35)
	FilmbackMM    float64 // witness sensor width (default: 36)

	// Estimator supplies the depth map. Nil means the heuristic.
	Estimator depth.Estimator
}

// DefaultConfig returns the stock reconstruction settings.
func DefaultConfig() Config {
	return Config{
		Stride:        1,
		FocalLengthMM: scene.DefaultFocalLengthMM,
		FilmbackMM:    scene.DefaultFilmbackMM,
		Estimator:     depth.DefaultHeuristic(),
	}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig, including
// the depth backend it selects.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Stride:        cfg.GetReconstructionStride(),
		FocalLengthMM: cfg.GetFocalLengthMM(),
		FilmbackMM:    cfg.GetFilmbackMM(),
		Estimator:     depth.FromTuning(cfg),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Stride < 1 {
		return fmt.Errorf("stride must be at least 1, got %d", c.Stride)
	}
	if c.FocalLengthMM <= 0 || c.FilmbackMM <= 0 {
		return fmt.Errorf("lens must be positive, got %f/%f", c.FocalLengthMM, c.FilmbackMM)
	}
	return nil
}
