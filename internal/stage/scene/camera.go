package scene

import (
	"fmt"

	"github.com/banshee-data/anchorstage/internal/stage/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Default lens used for the witness pose when nothing better is known.
const (
	DefaultFocalLengthMM = 35.0
	DefaultFilmbackMM    = 36.0
)

// Camera is a pinhole camera pose plus lens and sensor resolution.
type Camera struct {
	Position      r3.Vec  // metres
	RotationDeg   r3.Vec  // XYZ Euler angles, degrees
	FocalLengthMM float64 // lens focal length
	FilmbackMM    float64 // sensor width
	Width, Height int     // pixels
}

// DefaultCamera returns a camera at the origin looking down +Z with the
// default lens.
func DefaultCamera(width, height int) Camera {
	return Camera{
		FocalLengthMM: DefaultFocalLengthMM,
		FilmbackMM:    DefaultFilmbackMM,
		Width:         width,
		Height:        height,
	}
}

// Intrinsics derives pixel-unit intrinsics from the lens and resolution.
func (c Camera) Intrinsics() geom.Intrinsics {
	return geom.IntrinsicsFromCamera(c.Width, c.Height, c.FocalLengthMM, c.FilmbackMM)
}

// Rotation returns the camera orientation as a rotation matrix.
func (c Camera) Rotation() geom.Rotation {
	return geom.EulerXYZ(c.RotationDeg.X, c.RotationDeg.Y, c.RotationDeg.Z)
}

// Validate rejects cameras that cannot produce an image.
func (c Camera) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FocalLengthMM <= 0 {
		return fmt.Errorf("focal length must be positive, got %f", c.FocalLengthMM)
	}
	if c.FilmbackMM <= 0 {
		return fmt.Errorf("filmback must be positive, got %f", c.FilmbackMM)
	}
	return nil
}
