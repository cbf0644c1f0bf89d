package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DepthEpsilon is the minimum camera-space depth (metres) for a point to
// count as in front of the camera.
const DepthEpsilon = 1e-4

// Intrinsics are pinhole camera parameters in pixel units.
type Intrinsics struct {
	Fx, Fy float64 // focal length (pixels)
	Cx, Cy float64 // principal point (pixels)
}

// IntrinsicsFromCamera derives square-pixel intrinsics from a physical lens.
// The principal point sits at the image centre.
func IntrinsicsFromCamera(width, height int, focalLengthMM, filmbackMM float64) Intrinsics {
	fx := (focalLengthMM / filmbackMM) * float64(width)
	return Intrinsics{
		Fx: fx,
		Fy: fx,
		Cx: float64(width) * 0.5,
		Cy: float64(height) * 0.5,
	}
}

// Rotation is a 3×3 rotation matrix stored row-major:
// m00,m01,m02, m10,m11,m12, m20,m21,m22.
type Rotation [9]float64

// Identity is the rotation that leaves every vector unchanged.
var Identity = Rotation{1, 0, 0, 0, 1, 0, 0, 0, 1}

// EulerXYZ builds R = Rz·Ry·Rx from angles in degrees, i.e. the X rotation
// is applied first.
func EulerXYZ(rxDeg, ryDeg, rzDeg float64) Rotation {
	sx, cx := math.Sincos(rxDeg * math.Pi / 180.0)
	sy, cy := math.Sincos(ryDeg * math.Pi / 180.0)
	sz, cz := math.Sincos(rzDeg * math.Pi / 180.0)

	// Expanded Rz·Ry·Rx.
	return Rotation{
		cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx,
		sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx,
		-sy, cy * sx, cy * cx,
	}
}

// Apply returns R·v.
func (r Rotation) Apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: r[0]*v.X + r[1]*v.Y + r[2]*v.Z,
		Y: r[3]*v.X + r[4]*v.Y + r[5]*v.Z,
		Z: r[6]*v.X + r[7]*v.Y + r[8]*v.Z,
	}
}

// ApplyInverse returns Rᵀ·v, the inverse rotation for an orthonormal R.
func (r Rotation) ApplyInverse(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: r[0]*v.X + r[3]*v.Y + r[6]*v.Z,
		Y: r[1]*v.X + r[4]*v.Y + r[7]*v.Z,
		Z: r[2]*v.X + r[5]*v.Y + r[8]*v.Z,
	}
}

// Transpose returns Rᵀ.
func (r Rotation) Transpose() Rotation {
	return Rotation{
		r[0], r[3], r[6],
		r[1], r[4], r[7],
		r[2], r[5], r[8],
	}
}

// Det returns the determinant; a proper rotation has Det ≈ 1.
func (r Rotation) Det() float64 {
	return r[0]*(r[4]*r[8]-r[5]*r[7]) - r[1]*(r[3]*r[8]-r[5]*r[6]) + r[2]*(r[3]*r[7]-r[4]*r[6])
}

// WorldToCamera moves a world point into the frame of a camera at position
// with orientation rot: Rᵀ·(p − position).
func WorldToCamera(p, position r3.Vec, rot Rotation) r3.Vec {
	return rot.ApplyInverse(r3.Sub(p, position))
}

// CameraToWorld is the inverse of WorldToCamera: R·p + position.
func CameraToWorld(p, position r3.Vec, rot Rotation) r3.Vec {
	return r3.Add(rot.Apply(p), position)
}

// Project maps a camera-space point to continuous pixel coordinates.
// ok is false when the point is behind the camera (z ≤ DepthEpsilon) or
// falls outside [0,width)×[0,height).
func Project(p r3.Vec, k Intrinsics, width, height int) (u, v float64, ok bool) {
	if !(p.Z > DepthEpsilon) {
		return 0, 0, false
	}
	u = p.X*k.Fx/p.Z + k.Cx
	v = p.Y*k.Fy/p.Z + k.Cy
	ok = u >= 0 && u < float64(width) && v >= 0 && v < float64(height)
	return u, v, ok
}

// ProjectPixel is Project followed by flooring to an integer pixel.
func ProjectPixel(p r3.Vec, k Intrinsics, width, height int) (x, y int, ok bool) {
	u, v, ok := Project(p, k, width, height)
	if !ok {
		return 0, 0, false
	}
	return int(u), int(v), true
}

// BackProject lifts continuous pixel coordinates (u, v) at depth d into
// camera space.
func BackProject(u, v, d float64, k Intrinsics) r3.Vec {
	return r3.Vec{
		X: (u - k.Cx) * d / k.Fx,
		Y: (v - k.Cy) * d / k.Fy,
		Z: d,
	}
}

// BackProjectPixel back-projects the centre of integer pixel (x, y) so a
// projection with the same intrinsics floors back onto (x, y).
func BackProjectPixel(x, y int, d float64, k Intrinsics) r3.Vec {
	return BackProject(float64(x)+0.5, float64(y)+0.5, d, k)
}
