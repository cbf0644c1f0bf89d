package l3reproject

import (
	"context"
	"testing"

	"github.com/banshee-data/anchorstage/internal/stage/l1recon"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/banshee-data/anchorstage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func gradientScene(t *testing.T, h, w int) *scene.Scene {
	t.Helper()
	s, err := l1recon.New(l1recon.DefaultConfig()).Reconstruct(context.Background(), testutil.GradientPixels(h, w), "warp")
	require.NoError(t, err)
	return s
}

func TestReproject_IdentityIsExact(t *testing.T) {
	t.Parallel()

	s := gradientScene(t, 24, 40)
	cam := *s.BaseCamera
	out, err := Reproject(s, cam, raster.NewMask(40, 24), nil)
	require.NoError(t, err)

	assert.Zero(t, out.Void.Count())
	assert.Equal(t, s.BaseWitness.Pix, out.Color.Pix)
	for i, d := range out.Depth.Data {
		assert.InDelta(t, s.Depth.Data[i], d, 1e-9)
	}
	testutil.AssertComplement(t, out.Void, out.Known)
}

func TestReproject_NoBaseCamera(t *testing.T) {
	t.Parallel()

	s := gradientScene(t, 8, 8)
	s.BaseCamera = nil
	_, err := Reproject(s, scene.DefaultCamera(8, 8), raster.NewMask(8, 8), nil)
	assert.ErrorIs(t, err, ErrNoBaseCamera)
}

func TestReproject_ShapeMismatch(t *testing.T) {
	t.Parallel()

	s := gradientScene(t, 8, 8)
	_, err := Reproject(s, *s.BaseCamera, raster.NewMask(4, 4), nil)
	assert.ErrorIs(t, err, raster.ErrShape)

	_, err = Reproject(s, *s.BaseCamera, raster.NewMask(8, 8), raster.NewMask(2, 2))
	assert.ErrorIs(t, err, raster.ErrShape)
}

func TestReproject_ProxyVoidMerges(t *testing.T) {
	t.Parallel()

	s := gradientScene(t, 8, 8)
	proxyVoid := raster.NewMask(8, 8)
	proxyVoid.Set(3, 3, true)
	out, err := Reproject(s, *s.BaseCamera, proxyVoid, nil)
	require.NoError(t, err)

	assert.True(t, out.Void.At(3, 3))
	assert.Equal(t, 1, out.Void.Count())
	testutil.AssertComplement(t, out.Void, out.Known)
}

func TestReproject_MovedCameraOpensVoid(t *testing.T) {
	t.Parallel()

	s := gradientScene(t, 36, 64)
	cam := *s.BaseCamera
	cam.Position = r3.Vec{X: 0.5}
	cam.RotationDeg = r3.Vec{Y: 10}
	out, err := Reproject(s, cam, raster.NewMask(64, 36), nil)
	require.NoError(t, err)

	assert.Greater(t, out.Void.Count(), 0)
	for p, covered := range out.Covered.Bits {
		assert.Equal(t, !covered, out.Void.Bits[p], "no locks, no proxy void: void is uncovered")
	}
	for p, d := range out.Depth.Data {
		if !out.Covered.Bits[p] {
			assert.Zero(t, d, "uncovered depth resolves to 0")
		}
	}
}

func TestReproject_LockedPixelsAreKnown(t *testing.T) {
	t.Parallel()

	s := gradientScene(t, 36, 64)
	for _, r := range s.Regions {
		s.SetLocked(r.ID, true)
	}
	cam := *s.BaseCamera
	cam.Position = r3.Vec{X: 0.5}
	cam.RotationDeg = r3.Vec{Y: 10}

	allVoid := raster.NewMask(64, 36)
	for i := range allVoid.Bits {
		allVoid.Bits[i] = true
	}
	lock := s.LockMask(64, 36)
	require.True(t, lock.Any())

	out, err := Reproject(s, cam, allVoid, nil)
	require.NoError(t, err)

	base := s.BaseWitness.ResizeNearest(64, 36)
	for p, locked := range lock.Bits {
		if !locked {
			assert.True(t, out.Void.Bits[p])
			continue
		}
		assert.False(t, out.Void.Bits[p], "locked pixel %d is void", p)
		if !out.Covered.Bits[p] {
			assert.Equal(t, base.AtIndex(p), out.Color.AtIndex(p), "uncovered locked pixel takes the witness")
		}
	}
}

func TestReproject_ExplicitLockMask(t *testing.T) {
	t.Parallel()

	s := gradientScene(t, 8, 8)
	allVoid := raster.NewMask(8, 8)
	for i := range allVoid.Bits {
		allVoid.Bits[i] = true
	}
	lock := raster.NewMask(8, 8)
	lock.Set(0, 0, true)

	out, err := Reproject(s, *s.BaseCamera, allVoid, lock)
	require.NoError(t, err)
	assert.Equal(t, 63, out.Void.Count())
	assert.False(t, out.Void.At(0, 0))
}
