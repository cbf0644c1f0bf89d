// Package testutil provides shared test utilities and fixtures for the
// stage packages: synthetic witness photographs, sprite atlases and small
// assertion helpers.
//
// Only stage layers above scene may import it from their tests; raster and
// scene would form an import cycle.
package testutil

import (
	"math"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// GradientPixels returns the h×w synthetic witness used throughout the
// tests: red ramps left to right, green top to bottom, blue right to left.
// Values are in [0,1].
func GradientPixels(h, w int) *raster.Pixels {
	p := &raster.Pixels{W: w, H: h, Channels: 3, Data: make([]float64, w*h*3)}
	for y := 0; y < h; y++ {
		yy := linspace(y, h)
		for x := 0; x < w; x++ {
			xx := linspace(x, w)
			i := (y*w + x) * 3
			p.Data[i] = 0.2 + 0.7*xx
			p.Data[i+1] = 0.25 + 0.5*yy
			p.Data[i+2] = 0.3 + 0.4*(1-xx)
		}
	}
	return p
}

// GradientImage is GradientPixels already converted to an Image.
func GradientImage(h, w int) *raster.Image {
	img, err := GradientPixels(h, w).ToImage()
	if err != nil {
		panic(err)
	}
	return img
}

// SkyPixels returns an h×w witness with a blue, dark upper band over a
// bright lower half, so reconstruction finds sky, ground and facade.
func SkyPixels(h, w int) *raster.Pixels {
	p := GradientPixels(h, w)
	for y := 0; y < h*3/10; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			p.Data[i], p.Data[i+1], p.Data[i+2] = 0.1, 0.15, 0.6
		}
	}
	return p
}

// SkyPixelsImage is SkyPixels already converted to an Image.
func SkyPixelsImage(h, w int) *raster.Image {
	img, err := SkyPixels(h, w).ToImage()
	if err != nil {
		panic(err)
	}
	return img
}

// Sprite returns a w×h atlas of frames equal-width frames, filled with
// a solid colour at the given alpha.
func Sprite(w, h, frames int, c [3]float64, alpha float64) *raster.RGBA {
	atlas := raster.NewRGBA(w*frames, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w*frames; x++ {
			atlas.Set(x, y, [4]float64{c[0], c[1], c[2], alpha})
		}
	}
	return atlas
}

// Assets returns one walking asset "a" and one idle asset "b", each with
// a 24×16 single-frame sprite at alpha 0.9.
func Assets() []scene.ExtraAsset {
	return []scene.ExtraAsset{
		{
			ID:           "a",
			Atlas:        Sprite(16, 24, 1, [3]float64{0.9, 0.2, 0.2}, 0.9),
			Frames:       1,
			FPS:          12,
			HeightMeters: 1.7,
			MotionType:   scene.MotionWalk,
			WalkSpeed:    1.2,
		},
		{
			ID:           "b",
			Atlas:        Sprite(16, 24, 1, [3]float64{0.2, 0.2, 0.9}, 0.9),
			Frames:       1,
			FPS:          12,
			HeightMeters: 1.7,
			MotionType:   scene.MotionIdle,
		},
	}
}

// TB is the subset of testing.TB the assertion helpers report through.
// *testing.T and *testing.B satisfy it.
type TB interface {
	Helper()
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertUnitNormals fails the test if any normal deviates from unit
// length by more than tol.
func AssertUnitNormals(t TB, n *raster.NormalMap, tol float64) {
	t.Helper()
	for i, v := range n.Data {
		l := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
		if math.Abs(l-1) > tol {
			t.Fatalf("normal %d has length %f", i, l)
			return
		}
	}
}

// AssertComplement fails the test unless a and b are exact complements.
func AssertComplement(t TB, a, b *raster.Mask) {
	t.Helper()
	if a.W != b.W || a.H != b.H {
		t.Fatalf("mask shapes differ: %dx%d vs %dx%d", a.W, a.H, b.W, b.H)
		return
	}
	for i := range a.Bits {
		if a.Bits[i] == b.Bits[i] {
			t.Fatalf("masks agree at pixel %d", i)
			return
		}
	}
}

func linspace(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}
