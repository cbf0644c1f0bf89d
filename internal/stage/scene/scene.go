package scene

import (
	"time"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// Scene is the reconstructed proxy of one witness photograph.
//
// A Scene is owned by its caller for its whole life. Rendering reads it;
// the only mutations are region lock toggles and replacing Extras. There
// is no internal locking: callers serialise mutation against rendering, or
// copy the scene per concurrent session.
type Scene struct {
	ID          string
	BaseWitness *raster.Image
	Splats      []Splat
	Depth       *raster.Map
	Confidence  *raster.Map
	Normals     *raster.NormalMap // optional

	// Regions in insertion order; later regions win where stamps overlap.
	Regions []*Region

	// BaseCamera is the pose the witness was captured from. Reconstruction
	// always sets it.
	BaseCamera *Camera

	Extras             []ExtraPlacement
	MetricScale        float64
	ReconstructionTime time.Duration
}

// Region returns the region with the given id.
func (s *Scene) Region(id string) (*Region, bool) {
	for _, r := range s.Regions {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// SetLocked sets the lock flag of region id and reports whether it exists.
func (s *Scene) SetLocked(id string, locked bool) bool {
	r, ok := s.Region(id)
	if !ok {
		return false
	}
	r.Locked = locked
	return true
}

// LockMask resamples the union of all locked region masks to w×h.
func (s *Scene) LockMask(w, h int) *raster.Mask {
	out := raster.NewMask(w, h)
	for _, r := range s.Regions {
		if !r.Locked || r.mask == nil {
			continue
		}
		// Shapes match by construction.
		_ = out.Or(r.mask.ResampleNearest(w, h))
	}
	return out
}

// RegionIndexMap stamps every region mask, resampled to w×h, with its
// 1-based position in Regions. Later regions overwrite earlier ones.
func (s *Scene) RegionIndexMap(w, h int) *raster.IndexMap {
	out := raster.NewIndexMap(w, h)
	for i, r := range s.Regions {
		if r.mask == nil {
			continue
		}
		stamp := uint16(i + 1)
		resized := r.mask.ResampleNearest(w, h)
		for j, b := range resized.Bits {
			if b {
				out.Data[j] = stamp
			}
		}
	}
	return out
}

// RegionMasks returns the witness-resolution mask of every region, in
// region order.
func (s *Scene) RegionMasks() []*raster.Mask {
	if len(s.Regions) == 0 {
		return nil
	}
	out := make([]*raster.Mask, 0, len(s.Regions))
	for _, r := range s.Regions {
		out = append(out, r.mask)
	}
	return out
}
