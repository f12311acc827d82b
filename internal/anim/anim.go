// Package anim provides the time curves used by viewport animations.
//
// All times are durations on the caller's monotonic clock.
package anim

import (
	"math"
	"time"
)

// AccelerateDecelerate eases t in [0, 1] so motion starts and ends slowly.
func AccelerateDecelerate(t float64) float64 {
	return math.Cos((t+1)*math.Pi)/2 + 0.5
}

// Tween interpolates from 0 to 1 over a fixed duration.
type Tween struct {
	Start    time.Duration
	Duration time.Duration
	Ease     func(float64) float64
}

// Fraction returns the eased progress at now and whether the tween is over.
func (tw Tween) Fraction(now time.Duration) (float64, bool) {
	if tw.Duration <= 0 {
		return 1, true
	}
	t := float64(now-tw.Start) / float64(tw.Duration)
	if t >= 1 {
		return 1, true
	}
	t = math.Max(t, 0)
	if tw.Ease != nil {
		t = tw.Ease(t)
	}
	return t, false
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Fling decelerates a 2D position at a constant rate along its initial
// velocity, clamping each axis to its range.
type Fling struct {
	start      time.Duration
	x0, y0     float64
	vx, vy     float64
	decel      float64
	duration   float64
	minX, maxX float64
	minY, maxY float64
}

// NewFling starts a fling at (x, y) with velocity (vx, vy) in units per
// second, slowing at decel units per second squared.
func NewFling(start time.Duration, x, y, vx, vy, decel float64, minX, maxX, minY, maxY float64) *Fling {
	f := &Fling{
		start: start,
		x0:    x, y0: y,
		vx: vx, vy: vy,
		decel: decel,
		minX:  math.Min(minX, maxX), maxX: math.Max(minX, maxX),
		minY: math.Min(minY, maxY), maxY: math.Max(minY, maxY),
	}
	if speed := math.Hypot(vx, vy); speed > 0 && decel > 0 {
		f.duration = speed / decel
	}
	return f
}

// Duration returns how long the fling runs.
func (f *Fling) Duration() time.Duration {
	return time.Duration(f.duration * float64(time.Second))
}

// Position returns the position at now and whether the fling has stopped.
// A fling stops when its speed reaches zero or both axes are pinned.
func (f *Fling) Position(now time.Duration) (x, y float64, done bool) {
	t := (now - f.start).Seconds()
	if t < 0 {
		t = 0
	}
	if t >= f.duration {
		t = f.duration
		done = true
	}

	// distance covered along the direction of travel: v*t - a*t^2/2
	var k float64
	if f.duration > 0 {
		k = t - t*t/(2*f.duration)
	}
	x = clamp(f.x0+f.vx*k, f.minX, f.maxX)
	y = clamp(f.y0+f.vy*k, f.minY, f.maxY)

	if !done && pinned(x, f.minX, f.maxX, f.vx) && pinned(y, f.minY, f.maxY, f.vy) {
		done = true
	}
	return x, y, done
}

func pinned(v, lo, hi, vel float64) bool {
	return vel == 0 || (vel > 0 && v >= hi) || (vel < 0 && v <= lo)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
