package depth

import (
	"github.com/banshee-data/anchorstage/internal/config"
)

// FromTuning builds the estimator selected by depth_backend. The onnx
// backend is always wrapped in a Fallback to the heuristic, bounded by
// depth_timeout.
func FromTuning(cfg *config.TuningConfig) Estimator {
	heuristic := DefaultHeuristic()
	switch cfg.GetDepthBackend() {
	case config.DepthBackendONNX:
		return &Fallback{
			Primary:   NewONNX(cfg.GetONNXModelPath()),
			Secondary: heuristic,
			Timeout:   cfg.GetDepthTimeout(),
		}
	default:
		return heuristic
	}
}
