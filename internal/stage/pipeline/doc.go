// Package pipeline runs the five stages for one frame and assembles the
// FrameOutputs bundle.
//
// The per-frame order is fixed: proxy render, lock mask, reprojection,
// extras compositing against proxy depth, void fill, then metadata. The
// Pipeline itself holds only configuration and is safe to share; Scenes
// belong to the caller. Session is the caller-owned holder for the
// interactive "current scene" and serialises mutation against rendering.
//
// Dependency rule: pipeline may depend on every stage package and
// internal/config. No stage package imports pipeline.
package pipeline
