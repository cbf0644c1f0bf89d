package l4extras

import (
	"crypto/sha1"
	"encoding/binary"
	"math"
	"sort"

	"github.com/banshee-data/anchorstage/internal/stage/geom"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Billboard sizing: height in pixels is pixelsPerMetre·height·focal/z,
// never smaller than minHeightPx; width keeps the frame aspect, never
// smaller than minWidthPx.
const (
	pixelsPerMetre = 26.0
	minHeightPx    = 12
	minWidthPx     = 8
	minAlpha       = 0.01
)

// Output is the frame with extras composited in.
type Output struct {
	Color *raster.Image    // input colour with billboards blended over it
	ID    *raster.IndexMap // StableID of the asset drawn at each pixel, 0 for none
	Depth *raster.Map      // camera-space depth of the drawn billboard, 0 for none
}

// StableID is the per-asset id written to the id pass: the first two bytes
// of SHA-1(assetID), big-endian.
func StableID(assetID string) uint16 {
	sum := sha1.Sum([]byte(assetID))
	return binary.BigEndian.Uint16(sum[:2])
}

type drawItem struct {
	placement scene.ExtraPlacement
	asset     *scene.ExtraAsset
	cam       r3.Vec // foot point in camera space
}

// Render composites placements into a copy of rgb as seen from cam at
// animation time t seconds. Billboards are drawn far to near, anchored
// bottom-centre on the projected foot point. A billboard pixel is dropped
// where proxyDepth holds a finite depth nearer than the extra. Placements
// whose asset is missing, or whose foot point is off-screen or behind the
// camera, are skipped.
func Render(rgb *raster.Image, cam scene.Camera, placements []scene.ExtraPlacement,
	assets map[string]*scene.ExtraAsset, proxyDepth *raster.Map, t float64) *Output {
	w, h := rgb.W, rgb.H
	out := &Output{
		Color: rgb.Clone(),
		ID:    raster.NewIndexMap(w, h),
		Depth: raster.NewMap(w, h),
	}
	k := geom.IntrinsicsFromCamera(w, h, cam.FocalLengthMM, cam.FilmbackMM)
	rot := cam.Rotation()

	items := make([]drawItem, 0, len(placements))
	missing := 0
	for _, p := range placements {
		a, ok := assets[p.AssetID]
		if !ok || a.Atlas == nil {
			missing++
			continue
		}
		world := positionAt(p, a, t)
		items = append(items, drawItem{placement: p, asset: a, cam: geom.WorldToCamera(world, cam.Position, rot)})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].cam.Z > items[j].cam.Z })

	drawn := 0
	for _, it := range items {
		u, v, ok := geom.Project(it.cam, k, w, h)
		if !ok {
			continue
		}
		blit(out, it, int(u), int(v), cam.FocalLengthMM, proxyDepth, t)
		drawn++
	}
	if missing > 0 {
		diagf("skipped %d extras with unknown assets", missing)
	}
	tracef("drew %d of %d extras at t=%.3f", drawn, len(placements), t)
	return out
}

// positionAt advances walkers along their heading; everything else stays
// put.
func positionAt(p scene.ExtraPlacement, a *scene.ExtraAsset, t float64) r3.Vec {
	if a.MotionType != scene.MotionWalk || a.WalkSpeed == 0 || t == 0 {
		return p.WorldPosition
	}
	s, c := math.Sincos(p.YawDeg * math.Pi / 180.0)
	step := a.WalkSpeed * t
	return r3.Add(p.WorldPosition, r3.Vec{X: s * step, Z: c * step})
}

// frameIndex returns the atlas frame shown at time t.
func frameIndex(p scene.ExtraPlacement, a *scene.ExtraAsset, t float64) int {
	n := max(1, a.Frames)
	f := int(math.Floor(p.LoopOffset*float64(n) + t*a.FPS))
	f %= n
	if f < 0 {
		f += n
	}
	return f
}

func blit(out *Output, it drawItem, u, v int, focalMM float64, proxyDepth *raster.Map, t float64) {
	a := it.asset
	z := it.cam.Z
	fw, fh := a.FrameSize()
	if fw <= 0 || fh <= 0 {
		return
	}

	rh := max(minHeightPx, int(a.HeightMeters*pixelsPerMetre*focalMM/z))
	rw := max(minWidthPx, int(float64(rh)*float64(fw)/float64(max(1, fh))))
	x0 := u - rw/2
	y0 := v - rh

	frameX := frameIndex(it.placement, a, t) * fw
	mirror := it.placement.YawDeg+a.FacingBias < 0
	id := StableID(a.ID)
	w, h := out.Color.W, out.Color.H

	// Only the on-screen part of the billboard is visited.
	yyStart, yyEnd := max(0, -y0), min(rh, h-y0)
	xxStart, xxEnd := max(0, -x0), min(rw, w-x0)

	for yy := yyStart; yy < yyEnd; yy++ {
		y := y0 + yy
		sy := int(float64(yy) / float64(max(1, rh-1)) * float64(fh-1))
		for xx := xxStart; xx < xxEnd; xx++ {
			x := x0 + xx
			if proxyDepth != nil {
				if pd := proxyDepth.At(x, y); !math.IsInf(pd, 0) && !math.IsNaN(pd) && z > pd {
					continue
				}
			}
			sx := int(float64(xx) / float64(max(1, rw-1)) * float64(fw-1))
			if mirror {
				sx = fw - 1 - sx
			}
			px := a.Atlas.At(frameX+sx, sy)
			alpha := px[3]
			if alpha <= minAlpha {
				continue
			}
			c := out.Color.At(x, y)
			out.Color.Set(x, y, [3]float64{
				(1-alpha)*c[0] + alpha*px[0],
				(1-alpha)*c[1] + alpha*px[1],
				(1-alpha)*c[2] + alpha*px[2],
			})
			out.ID.Data[y*w+x] = id
			out.Depth.Data[y*w+x] = z
		}
	}
}
