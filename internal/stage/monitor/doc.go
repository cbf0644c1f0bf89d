// Package monitor records per-frame confidence across a camera sweep and
// writes it out as plots: a static PNG (gonum/plot) and an interactive
// HTML chart (go-echarts).
package monitor
