// Package l5fill fills the void pixels of a reprojected frame.
//
// Fill backends implement Filler. Wavefront is the built-in backend: it
// grows known colour inward from the void boundary, blending neighbour
// averages with the base witness. Any backend, including a generative
// model behind a network call, is wrapped in Guard, which restores every
// known and locked pixel bit for bit and clamps what the backend produced.
//
// Dependency rule: l5fill may depend on raster, scene and internal/config.
package l5fill
