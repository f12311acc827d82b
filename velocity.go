package sketch

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const maxVelocitySamples = 20

type velocitySample struct {
	t time.Duration
	p Point
}

// velocityTracker estimates pointer velocity from recent samples with a
// least-squares fit of position against time on each axis.
type velocityTracker struct {
	window  time.Duration
	max     float64
	samples []velocitySample
	xs, ys  []float64
	ts      []float64
}

func newVelocityTracker(window time.Duration, maxSpeed float64) *velocityTracker {
	return &velocityTracker{
		window:  window,
		max:     maxSpeed,
		samples: make([]velocitySample, 0, maxVelocitySamples),
	}
}

func (v *velocityTracker) reset() {
	v.samples = v.samples[:0]
}

func (v *velocityTracker) add(t time.Duration, p Point) {
	if n := len(v.samples); n > 0 && t < v.samples[n-1].t {
		// Out-of-order timestamps make the fit meaningless.
		v.samples = v.samples[:0]
	}
	if len(v.samples) == maxVelocitySamples {
		copy(v.samples, v.samples[1:])
		v.samples = v.samples[:maxVelocitySamples-1]
	}
	v.samples = append(v.samples, velocitySample{t: t, p: p})
}

// velocity returns the estimate at the newest sample in pixels per second,
// capped in magnitude. It is zero when there is not enough data.
func (v *velocityTracker) velocity() Velocity {
	n := len(v.samples)
	if n < 2 {
		return Velocity{}
	}
	newest := v.samples[n-1].t
	v.ts, v.xs, v.ys = v.ts[:0], v.xs[:0], v.ys[:0]
	for _, s := range v.samples {
		if newest-s.t > v.window {
			continue
		}
		v.ts = append(v.ts, (s.t - newest).Seconds())
		v.xs = append(v.xs, s.p.X)
		v.ys = append(v.ys, s.p.Y)
	}
	if len(v.ts) < 2 || v.ts[0] == 0 {
		return Velocity{}
	}

	_, vx := stat.LinearRegression(v.ts, v.xs, nil, false)
	_, vy := stat.LinearRegression(v.ts, v.ys, nil, false)
	if !finite(vx, vy) {
		return Velocity{}
	}

	out := Velocity{X: vx, Y: vy}
	if m := out.Magnitude(); v.max > 0 && m > v.max {
		k := v.max / m
		out.X *= k
		out.Y *= k
	}
	if math.Abs(out.X) < 1e-9 && math.Abs(out.Y) < 1e-9 {
		return Velocity{}
	}
	return out
}
