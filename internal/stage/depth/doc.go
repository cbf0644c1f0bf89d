// Package depth provides the monocular depth contract used by
// reconstruction and the backends that satisfy it.
//
// An Estimator turns an RGB witness into a per-pixel metric depth map of
// the same size. Heuristic is the local, deterministic estimator. ONNX runs
// a monocular depth network through onnxruntime and needs cgo. Fallback
// runs any slow or unreliable estimator under a timeout and drops back to
// another estimator when it fails.
//
// Dependency rule: depth may depend on raster and internal/config only. It
// knows nothing about scenes or cameras.
package depth
