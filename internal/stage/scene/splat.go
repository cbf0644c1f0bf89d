package scene

import "gonum.org/v1/gonum/spatial/r3"

// Splat is a coloured translucent point with a render footprint, the
// primitive the proxy renderer rasterises.
type Splat struct {
	Position r3.Vec
	Color    [3]float64
	Opacity  float64 // always within [0,1]
	Scale    float64 // render footprint multiplier

	// Optional explicit orientation (unit quaternion w,x,y,z) and
	// anisotropic scale; nil means isotropic.
	Rotation    *[4]float64
	Anisotropic *r3.Vec

	MetricScale float64

	// Source is the flat index of the witness pixel the splat was lifted
	// from, or -1 when it has none.
	Source int
}

// NewSplat builds a splat with the opacity clipped to [0,1].
func NewSplat(pos r3.Vec, color [3]float64, opacity, scale float64, source int) Splat {
	return Splat{
		Position:    pos,
		Color:       color,
		Opacity:     clip01(opacity),
		Scale:       scale,
		MetricScale: 1.0,
		Source:      source,
	}
}

// SetOpacity writes the opacity, clipped to [0,1].
func (s *Splat) SetOpacity(v float64) { s.Opacity = clip01(v) }

func clip01(v float64) float64 {
	switch {
	case !(v > 0): // also catches NaN
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
