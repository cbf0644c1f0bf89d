package raster

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrShape is returned when a buffer does not match the dimensions it is
// combined with.
var ErrShape = errors.New("raster: shape mismatch")

// Image is a float RGB image, three interleaved channels per pixel.
type Image struct {
	W, H int
	Pix  []float64
}

// NewImage allocates a black w×h image.
func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]float64, w*h*3)}
}

// At returns the colour of pixel (x, y).
func (m *Image) At(x, y int) [3]float64 {
	i := (y*m.W + x) * 3
	return [3]float64{m.Pix[i], m.Pix[i+1], m.Pix[i+2]}
}

// Set writes the colour of pixel (x, y).
func (m *Image) Set(x, y int, c [3]float64) {
	i := (y*m.W + x) * 3
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = c[0], c[1], c[2]
}

// AtIndex returns the colour at flat pixel index i.
func (m *Image) AtIndex(i int) [3]float64 {
	return [3]float64{m.Pix[i*3], m.Pix[i*3+1], m.Pix[i*3+2]}
}

// SetIndex writes the colour at flat pixel index i.
func (m *Image) SetIndex(i int, c [3]float64) {
	m.Pix[i*3], m.Pix[i*3+1], m.Pix[i*3+2] = c[0], c[1], c[2]
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{W: m.W, H: m.H, Pix: make([]float64, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Luma returns the mean of the three channels at flat index i.
func (m *Image) Luma(i int) float64 {
	return (m.Pix[i*3] + m.Pix[i*3+1] + m.Pix[i*3+2]) / 3.0
}

// Map is a scalar float field such as depth, confidence or alpha.
type Map struct {
	W, H int
	Data []float64
}

// NewMap allocates a zero w×h map.
func NewMap(w, h int) *Map {
	return &Map{W: w, H: h, Data: make([]float64, w*h)}
}

// NewMapFilled allocates a w×h map with every entry set to v.
func NewMapFilled(w, h int, v float64) *Map {
	m := NewMap(w, h)
	for i := range m.Data {
		m.Data[i] = v
	}
	return m
}

// At returns the value at (x, y).
func (m *Map) At(x, y int) float64 { return m.Data[y*m.W+x] }

// Set writes the value at (x, y).
func (m *Map) Set(x, y int, v float64) { m.Data[y*m.W+x] = v }

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := &Map{W: m.W, H: m.H, Data: make([]float64, len(m.Data))}
	copy(out.Data, m.Data)
	return out
}

// FiniteOr returns a copy with every non-finite entry replaced by v.
func (m *Map) FiniteOr(v float64) *Map {
	out := m.Clone()
	for i, d := range out.Data {
		if math.IsInf(d, 0) || math.IsNaN(d) {
			out.Data[i] = v
		}
	}
	return out
}

// Rows returns the values of rows [y0, y1) as one slice (a copy).
func (m *Map) Rows(y0, y1 int) []float64 {
	if y0 < 0 {
		y0 = 0
	}
	if y1 > m.H {
		y1 = m.H
	}
	if y1 <= y0 {
		return nil
	}
	out := make([]float64, (y1-y0)*m.W)
	copy(out, m.Data[y0*m.W:y1*m.W])
	return out
}

// Mask is a boolean per-pixel mask. Exported 0/1 maps are derived with
// Values.
type Mask struct {
	W, H int
	Bits []bool
}

// NewMask allocates an all-false w×h mask.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Bits: make([]bool, w*h)}
}

// At reports whether (x, y) is set.
func (m *Mask) At(x, y int) bool { return m.Bits[y*m.W+x] }

// Set writes (x, y).
func (m *Mask) Set(x, y int, v bool) { m.Bits[y*m.W+x] = v }

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Any reports whether at least one pixel is set.
func (m *Mask) Any() bool {
	for _, b := range m.Bits {
		if b {
			return true
		}
	}
	return false
}

// Ratio returns Count / (W·H), or 0 for an empty mask.
func (m *Mask) Ratio() float64 {
	if len(m.Bits) == 0 {
		return 0
	}
	return float64(m.Count()) / float64(len(m.Bits))
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := &Mask{W: m.W, H: m.H, Bits: make([]bool, len(m.Bits))}
	copy(out.Bits, m.Bits)
	return out
}

// Complement returns ¬m.
func (m *Mask) Complement() *Mask {
	out := NewMask(m.W, m.H)
	for i, b := range m.Bits {
		out.Bits[i] = !b
	}
	return out
}

// Or sets every pixel that is set in o. The masks must share a shape.
func (m *Mask) Or(o *Mask) error {
	if o.W != m.W || o.H != m.H {
		return fmt.Errorf("or %dx%d into %dx%d: %w", o.W, o.H, m.W, m.H, ErrShape)
	}
	for i, b := range o.Bits {
		if b {
			m.Bits[i] = true
		}
	}
	return nil
}

// Values returns the mask as a 0/1 byte map.
func (m *Mask) Values() []uint8 {
	out := make([]uint8, len(m.Bits))
	for i, b := range m.Bits {
		if b {
			out[i] = 1
		}
	}
	return out
}

// IndexMap stores a small unsigned integer per pixel (region stamps,
// extras ids). Zero means "none".
type IndexMap struct {
	W, H int
	Data []uint16
}

// NewIndexMap allocates a zero w×h index map.
func NewIndexMap(w, h int) *IndexMap {
	return &IndexMap{W: w, H: h, Data: make([]uint16, w*h)}
}

// At returns the index at (x, y).
func (m *IndexMap) At(x, y int) uint16 { return m.Data[y*m.W+x] }

// NormalMap stores a camera-space unit normal per pixel.
type NormalMap struct {
	W, H int
	Data []r3.Vec
}

// NewNormalMap allocates a w×h normal map with every normal facing the
// camera, (0, 0, 1).
func NewNormalMap(w, h int) *NormalMap {
	m := &NormalMap{W: w, H: h, Data: make([]r3.Vec, w*h)}
	for i := range m.Data {
		m.Data[i] = r3.Vec{Z: 1}
	}
	return m
}

// At returns the normal at (x, y).
func (m *NormalMap) At(x, y int) r3.Vec { return m.Data[y*m.W+x] }

// RGBA is a straight-alpha float RGBA image used for sprite atlases.
type RGBA struct {
	W, H int
	Pix  []float64
}

// NewRGBA allocates a transparent w×h sprite.
func NewRGBA(w, h int) *RGBA {
	return &RGBA{W: w, H: h, Pix: make([]float64, w*h*4)}
}

// At returns the (r, g, b, a) value at (x, y).
func (m *RGBA) At(x, y int) [4]float64 {
	i := (y*m.W + x) * 4
	return [4]float64{m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3]}
}

// Set writes the (r, g, b, a) value at (x, y).
func (m *RGBA) Set(x, y int, c [4]float64) {
	i := (y*m.W + x) * 4
	m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = c[0], c[1], c[2], c[3]
}
