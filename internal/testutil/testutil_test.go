package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGradientPixels(t *testing.T) {
	t.Parallel()

	p := GradientPixels(180, 320)
	if p.W != 320 || p.H != 180 || p.Channels != 3 {
		t.Fatalf("shape = %dx%dx%d", p.H, p.W, p.Channels)
	}
	if len(p.Data) != 180*320*3 {
		t.Fatalf("len(Data) = %d", len(p.Data))
	}
	for i, v := range p.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %f", i, v)
		}
	}
	// Top-left red is 0.2, bottom-right red is 0.9.
	if got := p.Data[0]; got != 0.2 {
		t.Errorf("top-left red = %f, want 0.2", got)
	}
	last := (180*320 - 1) * 3
	if got := p.Data[last]; got < 0.8999 || got > 0.9001 {
		t.Errorf("bottom-right red = %f, want 0.9", got)
	}
}

func TestSprite(t *testing.T) {
	t.Parallel()

	s := Sprite(16, 24, 3, [3]float64{1, 0, 0}, 0.9)
	if s.W != 48 || s.H != 24 {
		t.Fatalf("atlas = %dx%d, want 48x24", s.W, s.H)
	}
	if got := s.At(47, 23); got[3] != 0.9 {
		t.Errorf("alpha = %f, want 0.9", got[3])
	}
}

func TestAssets(t *testing.T) {
	t.Parallel()

	assets := Assets()
	if len(assets) != 2 || assets[0].ID != "a" || assets[1].ID != "b" {
		t.Fatalf("unexpected assets %+v", assets)
	}
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

// recorder captures assertion failures instead of failing the test.
type recorder struct {
	failed bool
	msg    string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatal(args ...interface{}) {
	r.failed = true
	r.msg = fmt.Sprint(args...)
}

func (r *recorder) Fatalf(format string, args ...interface{}) {
	r.failed = true
	r.msg = fmt.Sprintf(format, args...)
}

func TestAssertNoError_FailurePath(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	AssertNoError(rec, errors.New("boom"))
	if !rec.failed {
		t.Fatal("expected AssertNoError to fail when error is non-nil")
	}
	if rec.msg != "unexpected error: boom" {
		t.Errorf("message = %q", rec.msg)
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("test error"))

	rec := &recorder{}
	AssertError(rec, nil)
	if !rec.failed {
		t.Fatal("expected AssertError to fail on nil")
	}
}

func TestAssertUnitNormals(t *testing.T) {
	t.Parallel()

	n := raster.NewNormalMap(2, 2)
	AssertUnitNormals(t, n, 1e-9)

	n.Data[3] = r3.Vec{X: 2}
	rec := &recorder{}
	AssertUnitNormals(rec, n, 0.01)
	if !rec.failed {
		t.Fatal("expected failure on non-unit normal")
	}
	if rec.msg != "normal 3 has length 2.000000" {
		t.Errorf("message = %q", rec.msg)
	}
}

func TestAssertComplement(t *testing.T) {
	t.Parallel()

	a := raster.NewMask(2, 1)
	a.Set(0, 0, true)
	AssertComplement(t, a, a.Complement())

	rec := &recorder{}
	AssertComplement(rec, a, a)
	if !rec.failed {
		t.Fatal("expected failure when masks agree")
	}
	if rec.msg != "masks agree at pixel 0" {
		t.Errorf("message = %q", rec.msg)
	}
}
