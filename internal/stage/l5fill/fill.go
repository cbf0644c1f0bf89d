package l5fill

import (
	"context"
	"fmt"

	"github.com/banshee-data/anchorstage/internal/config"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// Request is everything a fill backend may look at for one frame.
type Request struct {
	Witness *raster.Image // reprojected witness with extras composited
	Void    *raster.Mask  // pixels to fill
	Lock    *raster.Mask  // locked pixels, never filled; nil for none
	Depth   *raster.Map   // camera-space depth, optional
	Normals *raster.NormalMap
	Base    *raster.Image // original witness at its own resolution
	Camera  scene.Camera
}

// Filler produces a complete frame from a Request. Implementations may
// rewrite any pixel; Guard enforces what must survive.
type Filler interface {
	Fill(ctx context.Context, req Request) (*raster.Image, error)
}

// FillerFunc adapts a function to Filler.
type FillerFunc func(ctx context.Context, req Request) (*raster.Image, error)

// Fill calls f.
func (f FillerFunc) Fill(ctx context.Context, req Request) (*raster.Image, error) {
	return f(ctx, req)
}

// Wavefront is the deterministic neighbour-propagation fill.
type Wavefront struct {
	Rounds          int     // propagation rounds (default: 8)
	NeighbourWeight float64 // share of the neighbour average vs. base (default: 0.7)
}

// DefaultWavefront returns the stock Wavefront settings.
func DefaultWavefront() *Wavefront {
	return &Wavefront{Rounds: 8, NeighbourWeight: 0.7}
}

// WavefrontFromTuning builds a Wavefront from a loaded TuningConfig.
func WavefrontFromTuning(cfg *config.TuningConfig) *Wavefront {
	return &Wavefront{
		Rounds:          cfg.GetFillRounds(),
		NeighbourWeight: cfg.GetFillNeighbourWeight(),
	}
}

// Fill propagates known colour into void pixels one ring per round. Each
// round reads a snapshot taken at its start: a fillable pixel with at least
// one known in-bounds 4-neighbour becomes the neighbour mean blended with
// the resized base witness, and is known from the next round on. Pixels
// the rounds never reach take the base colour. The result is clipped to
// [0,1].
func (f *Wavefront) Fill(ctx context.Context, req Request) (*raster.Image, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	w, h := req.Witness.W, req.Witness.H
	out := req.Witness.Clone()
	lock := req.lockMask()

	fillable := make([]bool, w*h)
	pending := 0
	for i, v := range req.Void.Bits {
		if v && !lock.Bits[i] {
			fillable[i] = true
			pending++
		}
	}
	if pending == 0 {
		clip(out)
		return out, nil
	}

	base := req.baseAt(w, h)
	known := req.Void.Complement().Bits
	wn := f.NeighbourWeight

	snap := make([]float64, len(out.Pix))
	snapKnown := make([]bool, len(known))
	for round := 0; round < f.Rounds && pending > 0; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		copy(snap, out.Pix)
		copy(snapKnown, known)

		filled := 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p := y*w + x
				if !fillable[p] {
					continue
				}
				var sum [3]float64
				n := 0
				for _, q := range neighbours(x, y, w, h) {
					if q < 0 || !snapKnown[q] {
						continue
					}
					sum[0] += snap[q*3]
					sum[1] += snap[q*3+1]
					sum[2] += snap[q*3+2]
					n++
				}
				if n == 0 {
					continue
				}
				b := base.AtIndex(p)
				inv := 1.0 / float64(n)
				out.SetIndex(p, [3]float64{
					sum[0]*inv*wn + b[0]*(1-wn),
					sum[1]*inv*wn + b[1]*(1-wn),
					sum[2]*inv*wn + b[2]*(1-wn),
				})
				known[p] = true
				fillable[p] = false
				filled++
			}
		}
		pending -= filled
		tracef("round %d: filled %d, %d pending", round, filled, pending)
	}

	for p, todo := range fillable {
		if todo {
			out.SetIndex(p, base.AtIndex(p))
		}
	}
	if pending > 0 {
		diagf("%d void pixels beyond %d rounds took the base witness", pending, f.Rounds)
	}
	clip(out)
	return out, nil
}

// neighbours returns the flat indices of the 4-neighbours of (x, y), −1
// for those outside the image.
func neighbours(x, y, w, h int) [4]int {
	n := [4]int{-1, -1, -1, -1}
	if y > 0 {
		n[0] = (y-1)*w + x
	}
	if y < h-1 {
		n[1] = (y+1)*w + x
	}
	if x > 0 {
		n[2] = y*w + x - 1
	}
	if x < w-1 {
		n[3] = y*w + x + 1
	}
	return n
}

func (r Request) validate() error {
	if r.Witness == nil || r.Void == nil {
		return fmt.Errorf("fill request needs a witness and a void mask: %w", raster.ErrShape)
	}
	w, h := r.Witness.W, r.Witness.H
	if r.Void.W != w || r.Void.H != h {
		return fmt.Errorf("void mask %dx%d does not match witness %dx%d: %w", r.Void.W, r.Void.H, w, h, raster.ErrShape)
	}
	if r.Lock != nil && (r.Lock.W != w || r.Lock.H != h) {
		return fmt.Errorf("lock mask %dx%d does not match witness %dx%d: %w", r.Lock.W, r.Lock.H, w, h, raster.ErrShape)
	}
	return nil
}

func (r Request) lockMask() *raster.Mask {
	if r.Lock == nil {
		return raster.NewMask(r.Witness.W, r.Witness.H)
	}
	return r.Lock
}

// baseAt resizes the base witness to w×h; without one the witness itself
// stands in.
func (r Request) baseAt(w, h int) *raster.Image {
	if r.Base == nil {
		return r.Witness
	}
	return r.Base.ResizeNearest(w, h)
}

func clip(img *raster.Image) {
	for i, v := range img.Pix {
		img.Pix[i] = clamp01(v)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
