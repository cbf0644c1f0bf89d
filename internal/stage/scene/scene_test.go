package scene

import (
	"math"
	"testing"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func halfMask(w, h int, left bool) *raster.Mask {
	m := raster.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x < w/2) == left {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

func TestNewSplat_ClipsOpacity(t *testing.T) {
	assert.Equal(t, 1.0, NewSplat(r3.Vec{}, [3]float64{}, 3.0, 1, 0).Opacity)
	assert.Equal(t, 0.0, NewSplat(r3.Vec{}, [3]float64{}, -0.5, 1, 0).Opacity)
	assert.Equal(t, 0.0, NewSplat(r3.Vec{}, [3]float64{}, math.NaN(), 1, 0).Opacity)
	assert.Equal(t, 0.4, NewSplat(r3.Vec{}, [3]float64{}, 0.4, 1, 0).Opacity)

	s := NewSplat(r3.Vec{}, [3]float64{}, 0.4, 1, 0)
	s.SetOpacity(7)
	assert.Equal(t, 1.0, s.Opacity)
}

func TestCamera_Validate(t *testing.T) {
	assert.NoError(t, DefaultCamera(64, 48).Validate())

	c := DefaultCamera(0, 48)
	assert.Error(t, c.Validate())

	c = DefaultCamera(64, 48)
	c.FilmbackMM = 0
	assert.Error(t, c.Validate())
}

func TestScene_SetLocked(t *testing.T) {
	s := &Scene{Regions: []*Region{
		NewRegion("sky", LabelSky, halfMask(4, 2, true), nil),
	}}

	assert.True(t, s.SetLocked("sky", true))
	r, ok := s.Region("sky")
	require.True(t, ok)
	assert.True(t, r.Locked)

	assert.True(t, s.SetLocked("sky", false))
	assert.False(t, r.Locked)

	assert.False(t, s.SetLocked("missing", true), "missing id reports not found")
}

func TestScene_LockMask(t *testing.T) {
	s := &Scene{Regions: []*Region{
		NewRegion("left", LabelFacade, halfMask(4, 2, true), nil),
		NewRegion("right", LabelGround, halfMask(4, 2, false), nil),
	}}

	assert.Equal(t, 0, s.LockMask(8, 4).Count(), "nothing locked yet")

	s.SetLocked("left", true)
	m := s.LockMask(8, 4)
	assert.Equal(t, 16, m.Count())
	assert.True(t, m.At(0, 0))
	assert.False(t, m.At(7, 3))
}

func TestScene_RegionIndexMapLaterWins(t *testing.T) {
	all := raster.NewMask(2, 2)
	for i := range all.Bits {
		all.Bits[i] = true
	}
	s := &Scene{Regions: []*Region{
		NewRegion("a", LabelFacade, all, nil),
		NewRegion("b", LabelSky, halfMask(2, 2, true), nil),
	}}

	idx := s.RegionIndexMap(2, 2)
	assert.Equal(t, uint16(2), idx.At(0, 0))
	assert.Equal(t, uint16(1), idx.At(1, 0))
}

func TestAssetsByID(t *testing.T) {
	assets := []ExtraAsset{{ID: "a", MotionType: MotionWalk}, {ID: "b", MotionType: MotionIdle}}
	byID := AssetsByID(assets)
	require.Len(t, byID, 2)
	assert.Equal(t, MotionIdle, byID["b"].MotionType)

	_, ok := byID["missing"]
	assert.False(t, ok)
}

func TestExtraAsset_FrameSize(t *testing.T) {
	a := ExtraAsset{Atlas: raster.NewRGBA(64, 24), Frames: 4}
	w, h := a.FrameSize()
	assert.Equal(t, 16, w)
	assert.Equal(t, 24, h)

	a.Frames = 0
	w, _ = a.FrameSize()
	assert.Equal(t, 64, w)
}
