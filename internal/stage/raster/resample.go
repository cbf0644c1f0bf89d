package raster

// Two nearest-neighbour index rules are in use. FloorIndices is the one
// for masks (regions, locks): destination i samples ⌊i·src/dst⌋. Linspace
// indices spread dst samples evenly over [0, src−1] inclusive, so both
// corners map onto source corners; the fill stage uses them for the base
// witness.

// FloorIndices returns, for each of dst destination positions, the source
// position ⌊i·src/dst⌋ clipped to src−1.
func FloorIndices(src, dst int) []int {
	out := make([]int, dst)
	if src <= 0 || dst <= 0 {
		return out
	}
	for i := range out {
		j := i * src / dst
		if j > src-1 {
			j = src - 1
		}
		out[i] = j
	}
	return out
}

// LinspaceIndices returns dst positions evenly spaced over [0, src−1],
// truncated toward zero.
func LinspaceIndices(src, dst int) []int {
	out := make([]int, dst)
	if src <= 0 || dst <= 1 {
		return out
	}
	// Integer form of ⌊i·(src−1)/(dst−1)⌋ keeps the last sample exact.
	for i := range out {
		out[i] = i * (src - 1) / (dst - 1)
	}
	return out
}

// ResampleNearest resizes a mask to w×h with FloorIndices.
func (m *Mask) ResampleNearest(w, h int) *Mask {
	out := NewMask(w, h)
	if m.W == 0 || m.H == 0 {
		return out
	}
	ys := FloorIndices(m.H, h)
	xs := FloorIndices(m.W, w)
	for y, sy := range ys {
		row := sy * m.W
		for x, sx := range xs {
			out.Bits[y*w+x] = m.Bits[row+sx]
		}
	}
	return out
}

// ResizeNearest resizes an image to w×h with LinspaceIndices.
func (m *Image) ResizeNearest(w, h int) *Image {
	out := NewImage(w, h)
	if m.W == 0 || m.H == 0 {
		return out
	}
	if w == m.W && h == m.H {
		copy(out.Pix, m.Pix)
		return out
	}
	ys := LinspaceIndices(m.H, h)
	xs := LinspaceIndices(m.W, w)
	for y, sy := range ys {
		for x, sx := range xs {
			out.SetIndex(y*w+x, m.AtIndex(sy*m.W+sx))
		}
	}
	return out
}
