package l3reproject

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/anchorstage/internal/stage/geom"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// ErrNoBaseCamera is returned for scenes without a witness pose. Scenes
// produced by reconstruction always have one.
var ErrNoBaseCamera = errors.New("scene is missing base camera")

// Output is the reprojected witness for one frame.
type Output struct {
	Color *raster.Image // warped witness colour
	Known *raster.Mask  // exact complement of Void
	Void  *raster.Mask  // merged void
	Depth *raster.Map   // warped camera-space depth, 0 where nothing landed

	// Covered marks pixels that received a reprojected witness pixel, before
	// locks are applied.
	Covered *raster.Mask
}

// Reproject warps s's witness into cam. proxyVoid must be camera-sized.
// A nil lockMask is built from the scene's locked regions.
//
// Locked pixels the warp did not reach take the witness colour resampled
// nearest-neighbour to the camera resolution, so a locked region never
// shows black holes.
func Reproject(s *scene.Scene, cam scene.Camera, proxyVoid, lockMask *raster.Mask) (*Output, error) {
	if s.BaseCamera == nil {
		opsf("scene %s has no base camera", s.ID)
		return nil, ErrNoBaseCamera
	}
	w, h := cam.Width, cam.Height
	if proxyVoid == nil || proxyVoid.W != w || proxyVoid.H != h {
		return nil, fmt.Errorf("proxy void map does not match %dx%d camera: %w", w, h, raster.ErrShape)
	}
	if lockMask == nil {
		lockMask = s.LockMask(w, h)
	} else if lockMask.W != w || lockMask.H != h {
		return nil, fmt.Errorf("lock mask does not match %dx%d camera: %w", w, h, raster.ErrShape)
	}

	base := s.BaseCamera
	kBase := base.Intrinsics()
	rotBase := base.Rotation()
	kTarget := cam.Intrinsics()
	rotTarget := cam.Rotation()

	color := raster.NewImage(w, h)
	zbuf := raster.NewMapFilled(w, h, math.Inf(1))
	winner := make([]int, w*h)
	for i := range winner {
		winner[i] = -1
	}

	src := s.Depth
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			i := y*src.W + x
			world := geom.CameraToWorld(geom.BackProjectPixel(x, y, src.Data[i], kBase), base.Position, rotBase)
			pc := geom.WorldToCamera(world, cam.Position, rotTarget)
			tx, ty, ok := geom.ProjectPixel(pc, kTarget, w, h)
			if !ok {
				continue
			}
			p := ty*w + tx
			if pc.Z < zbuf.Data[p] {
				zbuf.Data[p] = pc.Z
				winner[p] = i
			}
		}
	}

	out := &Output{
		Color:   color,
		Known:   raster.NewMask(w, h),
		Void:    raster.NewMask(w, h),
		Depth:   zbuf.FiniteOr(0),
		Covered: raster.NewMask(w, h),
	}

	var fallback *raster.Image
	lockedUncovered := 0
	for p, i := range winner {
		covered := i >= 0
		locked := lockMask.Bits[p]
		switch {
		case covered:
			out.Color.SetIndex(p, s.BaseWitness.AtIndex(i))
			out.Covered.Bits[p] = true
		case locked:
			if fallback == nil {
				fallback = s.BaseWitness.ResizeNearest(w, h)
			}
			out.Color.SetIndex(p, fallback.AtIndex(p))
			lockedUncovered++
		}

		void := (!covered || proxyVoid.Bits[p]) && !locked
		out.Void.Bits[p] = void
		out.Known.Bits[p] = !void
	}

	if lockedUncovered > 0 {
		tracef("%d locked pixels not reached by the warp", lockedUncovered)
	}
	diagf("scene %s: coverage %.4f, void %.4f", s.ID, out.Covered.Ratio(), out.Void.Ratio())
	return out, nil
}
