package interact

import "math"

// Zoom limits applied to Transform.K.
const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// Point is a 2D coordinate, in screen or simulation space depending on use.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform maps simulation space to screen space: screen = sim*K + (X, Y).
// It is a view concern only and never feeds back into the simulation.
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the unscaled, untranslated view.
var Identity = Transform{K: 1}

// Apply maps a simulation point to the screen.
func (t Transform) Apply(p Point) Point {
	return Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to simulation space.
func (t Transform) Invert(p Point) Point {
	return Point{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// Translate shifts the view by (dx, dy) screen pixels.
func (t Transform) Translate(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ScaleAt multiplies the zoom by factor, clamped to [min, max], keeping the
// simulation point under anchor fixed on screen.
func (t Transform) ScaleAt(factor float64, anchor Point, min, max float64) Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return t
	}
	k := clamp(t.K*factor, min, max)
	p := t.Invert(anchor)
	return Transform{
		K: k,
		X: anchor.X - p.X*k,
		Y: anchor.Y - p.Y*k,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
