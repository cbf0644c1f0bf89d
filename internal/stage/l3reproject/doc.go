// Package l3reproject warps the original witness pixels into a novel
// camera and merges the result with the proxy void map.
//
// Every source pixel is lifted with the scene depth through the base
// camera, moved into the target camera and projected. Competing pixels
// resolve with the same nearest-wins z-buffer as l2proxy. Locked region
// pixels are always known: they are never void, whatever the coverage.
//
// Dependency rule: l3reproject may depend on geom, raster and scene.
package l3reproject
