package sketch

import (
	"math"

	"github.com/gogpu/gg"
)

// Point is a position in screen or canvas space.
type Point = gg.Point

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return gg.Pt(x, y)
}

// Velocity is a rate of change in pixels per second.
type Velocity struct {
	X, Y float64
}

// Magnitude returns the speed.
func (v Velocity) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

// PointV is a sampled pointer position with the velocity at that sample.
type PointV struct {
	Point
	V Velocity
}

// Offset is a translation delta in screen pixels.
type Offset struct {
	DX, DY float64
}

// Scale is a relative zoom factor about a pivot in screen space.
type Scale struct {
	Factor float64
	Pivot  Point
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}
