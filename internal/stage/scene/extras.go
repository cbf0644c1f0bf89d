package scene

import (
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"gonum.org/v1/gonum/spatial/r3"
)

// Motion types an extra can carry.
const (
	MotionWalk = "walk"
	MotionIdle = "idle"
)

// ExtraAsset is an animated billboard actor supplied by the caller.
type ExtraAsset struct {
	ID           string
	Atlas        *raster.RGBA // horizontal strip of Frames equal-width frames
	Frames       int          // ≤ 1 means a single still frame
	FPS          float64
	HeightMeters float64
	FacingBias   float64 // degrees added to the placement yaw
	MotionType   string
	WalkSpeed    float64 // metres per second
}

// FrameSize returns the pixel size of one atlas frame.
func (a *ExtraAsset) FrameSize() (w, h int) {
	if a.Atlas == nil {
		return 0, 0
	}
	n := a.Frames
	if n < 1 {
		n = 1
	}
	return a.Atlas.W / n, a.Atlas.H
}

// ExtraPlacement positions one asset in the world. AssetID is resolved by
// lookup at render time; a missing asset is skipped.
type ExtraPlacement struct {
	AssetID       string
	WorldPosition r3.Vec
	YawDeg        float64
	LoopOffset    float64 // animation phase in [0,1)
}

// AssetsByID indexes assets by id. Later duplicates win.
func AssetsByID(assets []ExtraAsset) map[string]*ExtraAsset {
	out := make(map[string]*ExtraAsset, len(assets))
	for i := range assets {
		out[assets[i].ID] = &assets[i]
	}
	return out
}
