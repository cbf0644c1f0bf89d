package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestIntrinsicsFromCamera(t *testing.T) {
	k := IntrinsicsFromCamera(1280, 720, 35, 36)
	assert.InDelta(t, 35.0/36.0*1280, k.Fx, 1e-9)
	assert.Equal(t, k.Fx, k.Fy)
	assert.Equal(t, 640.0, k.Cx)
	assert.Equal(t, 360.0, k.Cy)
}

func TestEulerXYZ_IsProperRotation(t *testing.T) {
	angles := [][3]float64{{0, 0, 0}, {10, 0, 0}, {0, 25, 0}, {0, 0, -40}, {12, -33, 71}}
	for _, a := range angles {
		r := EulerXYZ(a[0], a[1], a[2])
		assert.InDelta(t, 1.0, r.Det(), 1e-9, "angles %v", a)

		// Rᵀ·R = I
		v := r3.Vec{X: 0.3, Y: -1.2, Z: 2.5}
		back := r.ApplyInverse(r.Apply(v))
		assert.InDelta(t, v.X, back.X, 1e-9)
		assert.InDelta(t, v.Y, back.Y, 1e-9)
		assert.InDelta(t, v.Z, back.Z, 1e-9)
	}
}

func TestEulerXYZ_SingleAxis(t *testing.T) {
	// 90° about Y takes +X to −Z.
	r := EulerXYZ(0, 90, 0)
	got := r.Apply(r3.Vec{X: 1})
	assert.InDelta(t, 0, got.X, 1e-9)
	assert.InDelta(t, 0, got.Y, 1e-9)
	assert.InDelta(t, -1, got.Z, 1e-9)

	// 90° about Z takes +X to +Y.
	r = EulerXYZ(0, 0, 90)
	got = r.Apply(r3.Vec{X: 1})
	assert.InDelta(t, 1, got.Y, 1e-9)
}

func TestTranspose(t *testing.T) {
	r := EulerXYZ(5, 10, 15)
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	a := r.Transpose().Apply(v)
	b := r.ApplyInverse(v)
	assert.InDelta(t, a.X, b.X, 1e-12)
	assert.InDelta(t, a.Y, b.Y, 1e-12)
	assert.InDelta(t, a.Z, b.Z, 1e-12)
}

func TestWorldCameraRoundTrip(t *testing.T) {
	pos := r3.Vec{X: 0.5, Y: -0.2, Z: 1.0}
	rot := EulerXYZ(3, -8, 2)
	p := r3.Vec{X: 2, Y: 1, Z: 7}

	c := WorldToCamera(p, pos, rot)
	w := CameraToWorld(c, pos, rot)
	assert.InDelta(t, p.X, w.X, 1e-9)
	assert.InDelta(t, p.Y, w.Y, 1e-9)
	assert.InDelta(t, p.Z, w.Z, 1e-9)
}

func TestProject(t *testing.T) {
	k := IntrinsicsFromCamera(100, 50, 36, 36)

	t.Run("centre", func(t *testing.T) {
		u, v, ok := Project(r3.Vec{Z: 2}, k, 100, 50)
		require.True(t, ok)
		assert.Equal(t, 50.0, u)
		assert.Equal(t, 25.0, v)
	})

	t.Run("behind camera", func(t *testing.T) {
		_, _, ok := Project(r3.Vec{Z: -1}, k, 100, 50)
		assert.False(t, ok)
		_, _, ok = Project(r3.Vec{Z: DepthEpsilon / 2}, k, 100, 50)
		assert.False(t, ok)
	})

	t.Run("out of bounds", func(t *testing.T) {
		_, _, ok := Project(r3.Vec{X: 10, Z: 1}, k, 100, 50)
		assert.False(t, ok)
	})

	t.Run("nan depth", func(t *testing.T) {
		_, _, ok := Project(r3.Vec{Z: math.NaN()}, k, 100, 50)
		assert.False(t, ok)
	})
}

func TestBackProjectPixel_RoundTrip(t *testing.T) {
	const w, h = 64, 36
	k := IntrinsicsFromCamera(w, h, 35, 36)
	for y := 0; y < h; y += 5 {
		for x := 0; x < w; x += 7 {
			d := 1.0 + float64(x+y)*0.13
			p := BackProjectPixel(x, y, d, k)
			px, py, ok := ProjectPixel(p, k, w, h)
			require.True(t, ok)
			assert.Equal(t, x, px)
			assert.Equal(t, y, py)
		}
	}
}
