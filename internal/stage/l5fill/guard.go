package l5fill

import (
	"context"
	"fmt"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// Guard wraps a Filler so its output always keeps the request's known and
// locked pixels exactly as given. Only pixels that were void and unlocked
// take the backend's colour, clamped to [0,1].
type Guard struct {
	Inner Filler
}

// NewGuard wraps inner.
func NewGuard(inner Filler) *Guard { return &Guard{Inner: inner} }

// Fill runs the wrapped filler and merges its output back over the
// request witness.
func (g *Guard) Fill(ctx context.Context, req Request) (*raster.Image, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	filled, err := g.Inner.Fill(ctx, req)
	if err != nil {
		opsf("fill backend failed: %v", err)
		return nil, fmt.Errorf("fill: %w", err)
	}
	w, h := req.Witness.W, req.Witness.H
	if filled == nil || filled.W != w || filled.H != h {
		opsf("fill backend returned the wrong shape")
		return nil, fmt.Errorf("fill backend output does not match %dx%d witness: %w", w, h, raster.ErrShape)
	}

	lock := req.lockMask()
	out := req.Witness.Clone()
	restored := 0
	for p, void := range req.Void.Bits {
		if !void || lock.Bits[p] {
			if filled.AtIndex(p) != out.AtIndex(p) {
				restored++
			}
			continue
		}
		c := filled.AtIndex(p)
		out.SetIndex(p, [3]float64{clamp01(c[0]), clamp01(c[1]), clamp01(c[2])})
	}
	if restored > 0 {
		diagf("restored %d known or locked pixels changed by the backend", restored)
	}
	return out, nil
}
