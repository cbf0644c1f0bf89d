// Package l2proxy rasterises a Scene's splats from a novel camera into a
// proxy view: colour, depth, normals, coverage alpha, a void map, a region
// index buffer and the three-factor confidence score.
//
// Visibility is a per-pixel z-buffer. For every destination pixel the
// nearest splat wins; equal depths keep the splat created first, so the
// result never depends on iteration tricks.
//
// Dependency rule: l2proxy may depend on geom, raster, scene and
// internal/config.
package l2proxy
