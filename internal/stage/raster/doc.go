// Package raster provides the dense per-pixel buffers passed between the
// stages: RGB images, scalar maps, boolean masks, small-integer index maps,
// normal maps and RGBA sprites, plus the nearest-neighbour resampling rules
// the stages agree on.
//
// All buffers are row-major with the origin at the top-left pixel and are
// plain values owned by whoever allocated them; nothing here is safe for
// concurrent mutation.
package raster
