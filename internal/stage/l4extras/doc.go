// Package l4extras places and composites billboard extras: animated
// sprites standing on the estimated ground, drawn into a frame with
// depth-correct occlusion against the proxy geometry.
//
// Placement is procedural and seeded. The caller passes the random source,
// so identical seeds, assets, density and motion mix always give identical
// placements. Rendering also writes an id pass (a stable 16-bit hash of
// the asset id) and a depth pass.
//
// Dependency rule: l4extras may depend on geom, raster, scene and
// internal/config.
package l4extras
