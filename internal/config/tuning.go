package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Depth backends selectable through depth_backend.
const (
	DepthBackendHeuristic = "heuristic"
	DepthBackendONNX      = "onnx"
)

// TuningConfig represents the root configuration for the stage pipeline.
// Every field is optional; the Get* accessors fall back to the built-in
// defaults so partial files are safe.
type TuningConfig struct {
	// Reconstruction params
	ReconstructionStride *int     `json:"reconstruction_stride,omitempty"`
	FocalLengthMM        *float64 `json:"focal_length_mm,omitempty"`
	FilmbackMM           *float64 `json:"filmback_mm,omitempty"`

	// Depth backend params
	DepthBackend  *string `json:"depth_backend,omitempty"`
	DepthTimeout  *string `json:"depth_timeout,omitempty"` // duration string like "2s"
	ONNXModelPath *string `json:"onnx_model_path,omitempty"`

	// Proxy renderer params
	OpacityThreshold *float64 `json:"opacity_threshold,omitempty"`
	RenderStride     *int     `json:"render_stride,omitempty"`

	// Fill params
	FillRounds          *int     `json:"fill_rounds,omitempty"`
	FillNeighbourWeight *float64 `json:"fill_neighbour_weight,omitempty"`

	// Extras params
	ExtrasMinSeparation    *float64 `json:"extras_min_separation,omitempty"`
	ExtrasAttemptsPerExtra *int     `json:"extras_attempts_per_extra,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		ReconstructionStride:   ptrInt(empty.GetReconstructionStride()),
		FocalLengthMM:          ptrFloat64(empty.GetFocalLengthMM()),
		FilmbackMM:             ptrFloat64(empty.GetFilmbackMM()),
		DepthBackend:           ptrString(empty.GetDepthBackend()),
		DepthTimeout:           ptrString(empty.GetDepthTimeout().String()),
		ONNXModelPath:          ptrString(""),
		OpacityThreshold:       ptrFloat64(empty.GetOpacityThreshold()),
		RenderStride:           ptrInt(empty.GetRenderStride()),
		FillRounds:             ptrInt(empty.GetFillRounds()),
		FillNeighbourWeight:    ptrFloat64(empty.GetFillNeighbourWeight()),
		ExtrasMinSeparation:    ptrFloat64(empty.GetExtrasMinSeparation()),
		ExtrasAttemptsPerExtra: ptrInt(empty.GetExtrasAttemptsPerExtra()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/stage/<pkg>/
		"../../../../" + DefaultConfigPath, // from internal/stage/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.OpacityThreshold != nil {
		if *c.OpacityThreshold < 0 || *c.OpacityThreshold > 1 {
			return fmt.Errorf("opacity_threshold must be between 0 and 1, got %f", *c.OpacityThreshold)
		}
	}
	if c.ReconstructionStride != nil && *c.ReconstructionStride < 1 {
		return fmt.Errorf("reconstruction_stride must be at least 1, got %d", *c.ReconstructionStride)
	}
	if c.RenderStride != nil && *c.RenderStride < 1 {
		return fmt.Errorf("render_stride must be at least 1, got %d", *c.RenderStride)
	}
	if c.FocalLengthMM != nil && *c.FocalLengthMM <= 0 {
		return fmt.Errorf("focal_length_mm must be positive, got %f", *c.FocalLengthMM)
	}
	if c.FilmbackMM != nil && *c.FilmbackMM <= 0 {
		return fmt.Errorf("filmback_mm must be positive, got %f", *c.FilmbackMM)
	}
	if c.FillRounds != nil && *c.FillRounds < 0 {
		return fmt.Errorf("fill_rounds must be non-negative, got %d", *c.FillRounds)
	}
	if c.FillNeighbourWeight != nil {
		if *c.FillNeighbourWeight < 0 || *c.FillNeighbourWeight > 1 {
			return fmt.Errorf("fill_neighbour_weight must be between 0 and 1, got %f", *c.FillNeighbourWeight)
		}
	}
	if c.ExtrasMinSeparation != nil && *c.ExtrasMinSeparation < 0 {
		return fmt.Errorf("extras_min_separation must be non-negative, got %f", *c.ExtrasMinSeparation)
	}
	if c.ExtrasAttemptsPerExtra != nil && *c.ExtrasAttemptsPerExtra < 1 {
		return fmt.Errorf("extras_attempts_per_extra must be at least 1, got %d", *c.ExtrasAttemptsPerExtra)
	}

	// Validate DepthTimeout can be parsed if set
	if c.DepthTimeout != nil && *c.DepthTimeout != "" {
		if _, err := time.ParseDuration(*c.DepthTimeout); err != nil {
			return fmt.Errorf("invalid depth_timeout '%s': %w", *c.DepthTimeout, err)
		}
	}

	if c.DepthBackend != nil {
		switch *c.DepthBackend {
		case "", DepthBackendHeuristic:
		case DepthBackendONNX:
			if c.ONNXModelPath == nil || *c.ONNXModelPath == "" {
				return fmt.Errorf("depth_backend %q requires onnx_model_path", DepthBackendONNX)
			}
		default:
			return fmt.Errorf("unknown depth_backend %q", *c.DepthBackend)
		}
	}

	return nil
}

// GetReconstructionStride returns the reconstruction_stride value or the default.
func (c *TuningConfig) GetReconstructionStride() int {
	if c.ReconstructionStride == nil {
		return 1 // one splat per pixel
	}
	return *c.ReconstructionStride
}

// GetFocalLengthMM returns the focal_length_mm value or the default.
func (c *TuningConfig) GetFocalLengthMM() float64 {
	if c.FocalLengthMM == nil {
		return 35.0
	}
	return *c.FocalLengthMM
}

// GetFilmbackMM returns the filmback_mm value or the default.
func (c *TuningConfig) GetFilmbackMM() float64 {
	if c.FilmbackMM == nil {
		return 36.0
	}
	return *c.FilmbackMM
}

// GetDepthBackend returns the depth_backend value or the default.
func (c *TuningConfig) GetDepthBackend() string {
	if c.DepthBackend == nil || *c.DepthBackend == "" {
		return DepthBackendHeuristic
	}
	return *c.DepthBackend
}

// GetDepthTimeout parses and returns the DepthTimeout as a time.Duration.
func (c *TuningConfig) GetDepthTimeout() time.Duration {
	if c.DepthTimeout == nil || *c.DepthTimeout == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.DepthTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetONNXModelPath returns the onnx_model_path value, empty when unset.
func (c *TuningConfig) GetONNXModelPath() string {
	if c.ONNXModelPath == nil {
		return ""
	}
	return *c.ONNXModelPath
}

// GetOpacityThreshold returns the opacity_threshold value or the default.
func (c *TuningConfig) GetOpacityThreshold() float64 {
	if c.OpacityThreshold == nil {
		return 0.08
	}
	return *c.OpacityThreshold
}

// GetRenderStride returns the render_stride value or the default.
func (c *TuningConfig) GetRenderStride() int {
	if c.RenderStride == nil {
		return 1
	}
	return *c.RenderStride
}

// GetFillRounds returns the fill_rounds value or the default.
func (c *TuningConfig) GetFillRounds() int {
	if c.FillRounds == nil {
		return 8
	}
	return *c.FillRounds
}

// GetFillNeighbourWeight returns the fill_neighbour_weight value or the default.
func (c *TuningConfig) GetFillNeighbourWeight() float64 {
	if c.FillNeighbourWeight == nil {
		return 0.7
	}
	return *c.FillNeighbourWeight
}

// GetExtrasMinSeparation returns the extras_min_separation value or the default.
func (c *TuningConfig) GetExtrasMinSeparation() float64 {
	if c.ExtrasMinSeparation == nil {
		return 0.25
	}
	return *c.ExtrasMinSeparation
}

// GetExtrasAttemptsPerExtra returns the extras_attempts_per_extra value or the default.
func (c *TuningConfig) GetExtrasAttemptsPerExtra() int {
	if c.ExtrasAttemptsPerExtra == nil {
		return 30
	}
	return *c.ExtrasAttemptsPerExtra
}
