package l2proxy

import (
	"math"

	"github.com/banshee-data/anchorstage/internal/config"
	"github.com/banshee-data/anchorstage/internal/stage/geom"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// DefaultOpacityThreshold is the coverage below which a pixel is void.
const DefaultOpacityThreshold = 0.08

// Render is the proxy view of one frame. All buffers are camera-sized and
// freshly allocated.
type Render struct {
	Color       *raster.Image     // colour × opacity of the winning splat
	Depth       *raster.Map       // camera-space z; +Inf where nothing landed
	Normals     *raster.NormalMap // (0,0,1) where nothing landed
	Alpha       *raster.Map       // opacity of the winning splat
	Void        *raster.Mask      // Alpha < threshold
	RegionIndex *raster.IndexMap  // 1-based region stamp, 0 for none
	Confidence  Confidence
}

// Renderer is the proxy rasteriser.
type Renderer struct {
	OpacityThreshold float64
	Stride           int // render every Stride-th splat
}

// DefaultRenderer returns a Renderer with the stock threshold and no
// subsampling.
func DefaultRenderer() *Renderer {
	return &Renderer{OpacityThreshold: DefaultOpacityThreshold, Stride: 1}
}

// RendererFromTuning builds a Renderer from a loaded TuningConfig.
func RendererFromTuning(cfg *config.TuningConfig) *Renderer {
	return &Renderer{
		OpacityThreshold: cfg.GetOpacityThreshold(),
		Stride:           cfg.GetRenderStride(),
	}
}

// Render rasterises s from cam.
func (r *Renderer) Render(s *scene.Scene, cam scene.Camera) *Render {
	w, h := cam.Width, cam.Height
	stride := r.Stride
	if stride < 1 {
		stride = 1
	}

	out := &Render{
		Color:   raster.NewImage(w, h),
		Depth:   raster.NewMapFilled(w, h, math.Inf(1)),
		Normals: raster.NewNormalMap(w, h),
		Alpha:   raster.NewMap(w, h),
	}

	k := cam.Intrinsics()
	rot := cam.Rotation()

	// winner holds the splat index owning each pixel, -1 for none.
	winner := make([]int, w*h)
	for i := range winner {
		winner[i] = -1
	}
	projected := 0
	for si := 0; si < len(s.Splats); si += stride {
		pc := geom.WorldToCamera(s.Splats[si].Position, cam.Position, rot)
		x, y, ok := geom.ProjectPixel(pc, k, w, h)
		if !ok {
			continue
		}
		projected++
		// Strict compare: on equal depth the earlier splat keeps the pixel.
		p := y*w + x
		if pc.Z < out.Depth.Data[p] {
			out.Depth.Data[p] = pc.Z
			winner[p] = si
		}
	}

	for p, si := range winner {
		if si < 0 {
			continue
		}
		sp := &s.Splats[si]
		a := sp.Opacity
		out.Color.SetIndex(p, [3]float64{sp.Color[0] * a, sp.Color[1] * a, sp.Color[2] * a})
		out.Alpha.Data[p] = a
		if s.Normals != nil && sp.Source >= 0 && sp.Source < len(s.Normals.Data) {
			out.Normals.Data[p] = s.Normals.Data[sp.Source]
		}
	}

	out.Void = raster.NewMask(w, h)
	for p, a := range out.Alpha.Data {
		out.Void.Bits[p] = a < r.OpacityThreshold
	}
	out.RegionIndex = s.RegionIndexMap(w, h)
	out.Confidence = computeConfidence(out.Depth, out.Void, cam, s.BaseCamera)

	tracef("%d of %d splats projected", projected, (len(s.Splats)+stride-1)/stride)
	diagf("scene %s: void %.4f, confidence %.4f (depth %.4f, angle %.4f)",
		s.ID, out.Void.Ratio(), out.Confidence.Overall, out.Confidence.Depth, out.Confidence.Angle)
	return out
}
