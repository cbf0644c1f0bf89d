// Package geom holds the pinhole camera geometry shared by every stage.
//
// Responsibilities: intrinsics from physical lens parameters, XYZ Euler
// rotation matrices, world ↔ camera transforms, projection and
// back-projection. Key types: Intrinsics, Rotation.
//
// Coordinate convention: camera looks down +Z, +X right, +Y down (image
// rows grow with Y). All functions are pure; nothing here holds state.
//
// Dependency rule: geom depends on nothing else in internal/stage.
package geom
