package raster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrNotRGB is returned when an input array does not carry exactly three
// channels.
var ErrNotRGB = errors.New("expected RGB image in HxWx3 format")

// Pixels is a raw H×W×C float array as handed over by a decoder or an
// upstream service, before it is validated as a witness image.
type Pixels struct {
	W, H     int
	Channels int
	Data     []float64 // row-major, channels interleaved
}

// ToImage validates p as an RGB image and converts it to an Image in
// [0,1]. Arrays whose maximum exceeds 1 are treated as [0,255] and divided
// by 255. It fails fast on any channel count other than 3.
func (p *Pixels) ToImage() (*Image, error) {
	if p.Channels != 3 {
		return nil, fmt.Errorf("%d channels: %w", p.Channels, ErrNotRGB)
	}
	if p.W <= 0 || p.H <= 0 || len(p.Data) != p.W*p.H*3 {
		return nil, fmt.Errorf("%dx%dx3 with %d values: %w", p.H, p.W, len(p.Data), ErrShape)
	}
	img := &Image{W: p.W, H: p.H, Pix: make([]float64, len(p.Data))}
	copy(img.Pix, p.Data)
	if floats.Max(img.Pix) > 1.0 {
		floats.Scale(1.0/255.0, img.Pix)
	}
	return img, nil
}

// PixelsFromImage wraps an Image as a 3-channel Pixels array.
func PixelsFromImage(img *Image) *Pixels {
	data := make([]float64, len(img.Pix))
	copy(data, img.Pix)
	return &Pixels{W: img.W, H: img.H, Channels: 3, Data: data}
}
