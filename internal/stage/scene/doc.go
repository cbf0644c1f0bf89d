// Package scene defines the data model shared by the stage pipeline:
// Camera, Splat, Region, Scene, ExtraAsset and ExtraPlacement.
//
// Key invariants: splat opacity is clipped to [0,1]; a region's mask keeps
// the shape of the scene depth map for its whole life and only its Locked
// flag changes after creation; a Scene built by reconstruction always has
// a BaseCamera.
//
// Dependency rule: scene may depend on geom and raster only.
package scene
