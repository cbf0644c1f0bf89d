// Package l1recon is the reconstruction layer: it lifts a single witness
// photograph into a Scene.
//
// From the image it derives a metric depth map (through a depth.Estimator),
// a confidence map, camera-space normals, one splat per pixel (or per
// strided pixel) and the sky, ground and facade regions.
//
// Dependency rule: l1recon may depend on geom, raster, scene, depth and
// internal/config. It must not import later layers.
package l1recon
