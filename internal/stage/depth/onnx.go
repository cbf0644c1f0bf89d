//go:build cgo
// +build cgo

package depth

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"sync"
	"time"

	resize "github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// onnxruntime keeps one process-wide environment. It is initialised on
// first use and lives until the process exits.
var (
	ortMu    sync.Mutex
	ortReady bool
)

// Estimate implements Estimator. It blocks for the duration of the
// inference; wrap it in Fallback to bound that.
func (o *ONNX) Estimate(ctx context.Context, img *raster.Image) (*raster.Map, error) {
	if o.InputWidth <= 0 || o.InputHeight <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", o.InputWidth, o.InputHeight)
	}
	if o.InputName == "" || o.OutputName == "" {
		return nil, errors.New("input and output names must be provided")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ortMu.Lock()
	defer ortMu.Unlock()

	if o.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(o.SharedLibraryPath)
	} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
		ort.SetSharedLibraryPath(p)
	}
	if !ortReady {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialise onnxruntime: %w", err)
		}
		ortReady = true
	}

	rt, err := o.runtime()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	copy(rt.input.GetData(), o.inputTensor(img))
	if err := rt.session.Run(); err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}
	tracef("onnx inference %dx%d took %v", o.InputWidth, o.InputHeight, time.Since(start))

	out := make([]float32, len(rt.output.GetData()))
	copy(out, rt.output.GetData())
	return o.disparityToDepth(out, o.InputWidth, o.InputHeight, img.W, img.H), nil
}

// onnxRuntime is the loaded model with its bound input and output tensors.
type onnxRuntime struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	w, h    int
	model   string
}

func (r *onnxRuntime) destroy() {
	if r.session != nil {
		r.session.Destroy()
	}
	if r.input != nil {
		r.input.Destroy()
	}
	if r.output != nil {
		r.output.Destroy()
	}
}

// runtime returns the cached session, loading the model on first use or
// after the model path or input size changed. Callers hold ortMu.
func (o *ONNX) runtime() (*onnxRuntime, error) {
	if rt := o.rt; rt != nil && rt.w == o.InputWidth && rt.h == o.InputHeight && rt.model == o.ModelPath {
		return rt, nil
	}
	if o.rt != nil {
		o.rt.destroy()
		o.rt = nil
	}

	rt := &onnxRuntime{w: o.InputWidth, h: o.InputHeight, model: o.ModelPath}
	var err error
	rt.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(o.InputHeight), int64(o.InputWidth)))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	rt.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(o.InputHeight), int64(o.InputWidth)))
	if err != nil {
		rt.destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	rt.session, err = ort.NewAdvancedSession(
		o.ModelPath,
		[]string{o.InputName},
		[]string{o.OutputName},
		[]ort.Value{rt.input},
		[]ort.Value{rt.output},
		nil,
	)
	if err != nil {
		rt.destroy()
		return nil, fmt.Errorf("load model %s: %w", o.ModelPath, err)
	}
	opsf("loaded depth model %s (%dx%d)", o.ModelPath, o.InputWidth, o.InputHeight)
	o.rt = rt
	return rt, nil
}

// Close releases the cached session. The next Estimate loads the model
// again.
func (o *ONNX) Close() error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if o.rt != nil {
		o.rt.destroy()
		o.rt = nil
	}
	return nil
}

// inputTensor resizes img bicubically and lays it out NCHW, normalised by
// Mean and Stddev.
func (o *ONNX) inputTensor(img *raster.Image) []float32 {
	dst := resize.Resize(uint(o.InputWidth), uint(o.InputHeight), toRGBA(img), resize.Bicubic)

	n := o.InputWidth * o.InputHeight
	data := make([]float32, 3*n)
	std := o.Stddev
	for c := range std {
		if std[c] == 0 {
			std[c] = 1
		}
	}
	idx := 0
	for y := 0; y < o.InputHeight; y++ {
		for x := 0; x < o.InputWidth; x++ {
			c := color.RGBAModel.Convert(dst.At(x, y)).(color.RGBA)
			data[idx] = (float32(c.R)/255.0 - o.Mean[0]) / std[0]
			data[n+idx] = (float32(c.G)/255.0 - o.Mean[1]) / std[1]
			data[2*n+idx] = (float32(c.B)/255.0 - o.Mean[2]) / std[2]
			idx++
		}
	}
	return data
}
