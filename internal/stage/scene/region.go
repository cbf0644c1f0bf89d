package scene

import (
	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// Semantic labels assigned by reconstruction.
const (
	LabelSky     = "sky"
	LabelGround  = "ground"
	LabelFacade  = "building_facade"
	LabelUnknown = "unknown"
)

// Plane holds a, b, c, d with a·x + b·y + c·z + d = 0 in world space.
type Plane [4]float64

// Region is a named area of the witness image. Its mask has the shape of
// the scene depth map and never changes after creation; Locked is the only
// field callers toggle afterwards.
type Region struct {
	ID           string
	Label        string
	Plane        *Plane
	Locked       bool
	SplatIndices []int

	mask *raster.Mask
}

// NewRegion creates an unlocked region over mask. The region keeps mask;
// callers must not modify it afterwards.
func NewRegion(id, label string, mask *raster.Mask, plane *Plane) *Region {
	return &Region{ID: id, Label: label, Plane: plane, mask: mask}
}

// Mask returns the region's mask in witness resolution.
func (r *Region) Mask() *raster.Mask { return r.mask }
