package depth

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// Fallback runs Primary under Timeout and returns Secondary's estimate when
// Primary errors, times out, or returns an unusable map. It is the
// integration-layer policy for remote or ML backends; the primary runs on
// its own goroutine so a hung backend cannot stall the caller past Timeout.
type Fallback struct {
	Primary   Estimator
	Secondary Estimator
	Timeout   time.Duration // ≤ 0 means no timeout
}

type estimateResult struct {
	depth *raster.Map
	err   error
}

// Estimate implements Estimator.
func (f *Fallback) Estimate(ctx context.Context, img *raster.Image) (*raster.Map, error) {
	if f.Primary == nil {
		return f.secondary(ctx, img, fmt.Errorf("no primary estimator"))
	}

	runCtx := ctx
	cancel := func() {}
	if f.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, f.Timeout)
	}
	defer cancel()

	start := time.Now()
	done := make(chan estimateResult, 1)
	go func() {
		d, err := f.Primary.Estimate(runCtx, img)
		done <- estimateResult{depth: d, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return f.secondary(ctx, img, res.err)
		}
		if err := Check(res.depth, img); err != nil {
			return f.secondary(ctx, img, err)
		}
		diagf("primary estimate %dx%d in %v", img.W, img.H, time.Since(start))
		return res.depth, nil
	case <-runCtx.Done():
		return f.secondary(ctx, img, runCtx.Err())
	}
}

func (f *Fallback) secondary(ctx context.Context, img *raster.Image, cause error) (*raster.Map, error) {
	if f.Secondary == nil {
		return nil, fmt.Errorf("primary depth estimator failed and no fallback configured: %w", cause)
	}
	opsf("primary depth estimator failed, using fallback: %v", cause)
	d, err := f.Secondary.Estimate(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("fallback depth estimator: %w", err)
	}
	return d, nil
}
