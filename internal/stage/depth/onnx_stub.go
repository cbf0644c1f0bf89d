//go:build !cgo
// +build !cgo

package depth

import (
	"context"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// Estimate returns ErrCGORequired; onnxruntime is not available without cgo.
func (o *ONNX) Estimate(context.Context, *raster.Image) (*raster.Map, error) {
	return nil, ErrCGORequired
}

type onnxRuntime struct{}

// Close is a no-op without cgo.
func (o *ONNX) Close() error { return nil }
