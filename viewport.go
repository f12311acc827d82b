package sketch

import (
	"math"
	"sync"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/sketch/internal/anim"
)

// ScaleListener is notified of scale changes. A scale-change episode
// starts with OnScaleChangeStart and ends with exactly one
// OnScaleChangeEnd, either when a pinch ends within the scale bounds or
// when the reconciliation back into them completes. A fling never opens
// an episode.
type ScaleListener interface {
	OnScaleChangeStart(scale float64)
	OnScaleChange(scale float64)
	OnScaleChangeEnd(scale float64)
}

// ViewportState is a consistent copy of the viewport transform.
type ViewportState struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Matrix returns the canvas-to-screen transform.
func (s ViewportState) Matrix() gg.Matrix {
	return gg.Translate(s.OffsetX, s.OffsetY).Multiply(gg.Scale(s.Scale, s.Scale))
}

// ScreenToCanvas maps a screen point into canvas space.
func (s ViewportState) ScreenToCanvas(p Point) Point {
	return Point{X: (p.X - s.OffsetX) / s.Scale, Y: (p.Y - s.OffsetY) / s.Scale}
}

// CanvasToScreen maps a canvas point into screen space.
func (s ViewportState) CanvasToScreen(p Point) Point {
	return Point{X: p.X*s.Scale + s.OffsetX, Y: p.Y*s.Scale + s.OffsetY}
}

// reconcile animates scale and offset back into bounds.
type reconcile struct {
	tween     anim.Tween
	fromScale float64
	toScale   float64
	fromX     float64
	fromY     float64
	toX       float64
	toY       float64
}

// Viewport maps between screen and canvas space and keeps the view
// elastically bounded.
//
// While a gesture is in progress scale and offset may leave their bounds,
// with movement beyond them divided by the damping factor. Release settles
// the view with either a reconciliation animation back into bounds or a
// decelerating fling; Step advances that animation.
//
// Viewport is safe for concurrent use. Scale notifications are delivered
// through the dispatcher after internal locks are released.
type Viewport struct {
	mu sync.Mutex

	width, height float64
	scale         float64
	offX, offY    float64

	minScale, maxScale float64
	damping            float64
	duration           time.Duration
	decel              float64

	// episode is true between OnScaleChangeStart and OnScaleChangeEnd.
	episode bool
	pivot   Point

	reconcile *reconcile
	fling     *anim.Fling

	listener ScaleListener
	dispatch Dispatcher
}

// NewViewport returns a viewport for a surface of the given size at
// scale 1 and offset 0.
func NewViewport(width, height int, cfg Config) *Viewport {
	return &Viewport{
		width:    float64(width),
		height:   float64(height),
		scale:    1,
		minScale: cfg.MinScale,
		maxScale: cfg.MaxScale,
		damping:  cfg.Damping,
		duration: cfg.AnimationDuration,
		decel:    cfg.FlingDeceleration,
		dispatch: func(fn func()) { fn() },
	}
}

// SetScaleListener replaces the scale listener. Nil removes it.
func (v *Viewport) SetScaleListener(l ScaleListener) {
	v.mu.Lock()
	v.listener = l
	v.mu.Unlock()
}

// SetDispatcher sets how scale notifications are delivered.
func (v *Viewport) SetDispatcher(d Dispatcher) {
	if d == nil {
		return
	}
	v.mu.Lock()
	v.dispatch = d
	v.mu.Unlock()
}

// State returns the current transform.
func (v *Viewport) State() ViewportState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *Viewport) stateLocked() ViewportState {
	return ViewportState{Scale: v.scale, OffsetX: v.offX, OffsetY: v.offY}
}

// ScreenToCanvas maps a screen point into canvas space.
func (v *Viewport) ScreenToCanvas(p Point) Point {
	return v.State().ScreenToCanvas(p)
}

// CanvasToScreen maps a canvas point into screen space.
func (v *Viewport) CanvasToScreen(p Point) Point {
	return v.State().CanvasToScreen(p)
}

// Matrix returns the canvas-to-screen transform.
func (v *Viewport) Matrix() gg.Matrix {
	return v.State().Matrix()
}

// Inverse returns the screen-to-canvas transform.
func (v *Viewport) Inverse() gg.Matrix {
	return v.State().Matrix().Invert()
}

// MinScale returns the lower scale bound.
func (v *Viewport) MinScale() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.minScale
}

// MaxScale returns the upper scale bound.
func (v *Viewport) MaxScale() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxScale
}

// SetMinScale sets the lower scale bound, clamped to [0, 1].
func (v *Viewport) SetMinScale(s float64) {
	if !finite(s) {
		return
	}
	v.mu.Lock()
	v.minScale = clamp(s, 0, 1)
	v.mu.Unlock()
}

// SetMaxScale sets the upper scale bound, clamped to at least 1.
func (v *Viewport) SetMaxScale(s float64) {
	if !finite(s) {
		return
	}
	v.mu.Lock()
	v.maxScale = math.Max(s, 1)
	v.mu.Unlock()
}

// Resize changes the surface size used for bounds.
func (v *Viewport) Resize(width, height int) {
	v.mu.Lock()
	v.width, v.height = float64(width), float64(height)
	v.mu.Unlock()
}

// BeginScale opens a scale-change episode if none is open.
func (v *Viewport) BeginScale(pivot Point) {
	var notes []func()
	v.mu.Lock()
	v.pivot = pivot
	notes = v.openEpisodeLocked(notes)
	v.mu.Unlock()
	v.deliver(notes)
}

// Scale zooms by s.Factor about s.Pivot and then translates by delta.
// Zooming beyond the scale bounds is damped. Non-finite input is ignored.
func (v *Viewport) Scale(s Scale, delta Offset) {
	if !finite(s.Factor, s.Pivot.X, s.Pivot.Y, delta.DX, delta.DY) || s.Factor <= 0 {
		Logger().Warn("sketch: rejected non-finite scale", "factor", s.Factor, "dx", delta.DX, "dy", delta.DY)
		return
	}

	var notes []func()
	v.mu.Lock()
	notes = v.openEpisodeLocked(notes)

	next := v.scale * s.Factor
	switch {
	case s.Factor > 1 && next > v.maxScale:
		base := math.Max(v.scale, v.maxScale)
		next = base + (next-base)/v.damping
	case s.Factor < 1 && next < v.minScale:
		base := math.Min(v.scale, v.minScale)
		next = base - (base-next)/v.damping
	}
	f := next / v.scale

	offX := v.offX - (f-1)*(s.Pivot.X-v.offX)
	offY := v.offY - (f-1)*(s.Pivot.Y-v.offY)
	if !finite(next, offX, offY) || next <= 0 {
		v.mu.Unlock()
		Logger().Warn("sketch: rejected degenerate scale result", "scale", next)
		return
	}
	v.scale, v.offX, v.offY = next, offX, offY
	v.pivot = Point{X: s.Pivot.X + delta.DX, Y: s.Pivot.Y + delta.DY}
	v.translateLocked(delta)

	scale := v.scale
	notes = v.noteLocked(notes, func(l ScaleListener) { l.OnScaleChange(scale) })
	v.mu.Unlock()
	v.deliver(notes)
}

// EndScale records the final pivot of a pinch and closes the episode when
// the scale lies within its bounds. Otherwise the episode stays open until
// the reconciliation started by Release completes.
func (v *Viewport) EndScale(pivot Point) {
	var notes []func()
	v.mu.Lock()
	v.pivot = pivot
	if v.scaleInBoundsLocked() {
		notes = v.closeEpisodeLocked(notes)
	}
	v.mu.Unlock()
	v.deliver(notes)
}

// Pan translates by delta and records focus as the pivot for a later
// reconciliation. Movement that pushes the view further out of bounds is
// damped. Non-finite input is ignored.
func (v *Viewport) Pan(focus Point, delta Offset) {
	if !finite(focus.X, focus.Y, delta.DX, delta.DY) {
		Logger().Warn("sketch: rejected non-finite pan", "dx", delta.DX, "dy", delta.DY)
		return
	}
	v.mu.Lock()
	v.pivot = focus
	v.translateLocked(delta)
	v.mu.Unlock()
}

func (v *Viewport) translateLocked(d Offset) {
	loX, hiX := offsetRange(v.width, v.scale)
	loY, hiY := offsetRange(v.height, v.scale)
	v.offX = damp(v.offX, d.DX, loX, hiX, v.damping)
	v.offY = damp(v.offY, d.DY, loY, hiY, v.damping)
}

// damp moves off by d, dividing the part that lies beyond [lo, hi] in the
// direction of travel by k.
func damp(off, d, lo, hi, k float64) float64 {
	next := off + d
	switch {
	case d > 0 && next > hi:
		base := math.Max(off, hi)
		return base + (next-base)/k
	case d < 0 && next < lo:
		base := math.Min(off, lo)
		return base - (base-next)/k
	}
	return next
}

// offsetRange returns the valid offsets along an axis of the given size.
// Content smaller than the surface is centered; larger content must cover it.
func offsetRange(size, scale float64) (lo, hi float64) {
	if scale < 1 {
		c := size * (1 - scale) / 2
		return c, c
	}
	return size * (1 - scale), 0
}

const boundsEpsilon = 1e-6

func (v *Viewport) scaleInBoundsLocked() bool {
	return v.scale >= v.minScale-boundsEpsilon && v.scale <= v.maxScale+boundsEpsilon
}

// InBounds reports whether scale and offset lie within their bounds.
func (v *Viewport) InBounds() bool {
	const eps = boundsEpsilon
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.scaleInBoundsLocked() {
		return false
	}
	loX, hiX := offsetRange(v.width, v.scale)
	loY, hiY := offsetRange(v.height, v.scale)
	return v.offX >= loX-eps && v.offX <= hiX+eps && v.offY >= loY-eps && v.offY <= hiY+eps
}

// Release settles the view after the last pointer lifts. Out-of-bounds
// views animate back into bounds; otherwise fling starts a decelerating
// scroll at velocity vel. It reports whether an animation was started.
func (v *Viewport) Release(fling bool, vel Velocity, now time.Duration) bool {
	var notes []func()
	v.mu.Lock()
	defer func() {
		v.mu.Unlock()
		v.deliver(notes)
	}()

	v.reconcile, v.fling = nil, nil

	toScale := v.scale
	var toX, toY float64
	switch {
	case v.scale < v.minScale:
		toScale = v.minScale
		toX, _ = offsetRange(v.width, toScale)
		toY, _ = offsetRange(v.height, toScale)
	case v.scale > v.maxScale:
		toScale = v.maxScale
		toX = v.pivot.X - (v.pivot.X-v.offX)/v.scale*toScale
		toY = v.pivot.Y - (v.pivot.Y-v.offY)/v.scale*toScale
		loX, hiX := offsetRange(v.width, toScale)
		loY, hiY := offsetRange(v.height, toScale)
		toX, toY = clamp(toX, loX, hiX), clamp(toY, loY, hiY)
	default:
		loX, hiX := offsetRange(v.width, toScale)
		loY, hiY := offsetRange(v.height, toScale)
		toX, toY = clamp(v.offX, loX, hiX), clamp(v.offY, loY, hiY)
	}

	const eps = 1e-9
	if math.Abs(toScale-v.scale) > eps || math.Abs(toX-v.offX) > eps || math.Abs(toY-v.offY) > eps {
		if math.Abs(toScale-v.scale) > eps {
			notes = v.openEpisodeLocked(notes)
		}
		v.reconcile = &reconcile{
			tween:     anim.Tween{Start: now, Duration: v.duration, Ease: anim.AccelerateDecelerate},
			fromScale: v.scale, toScale: toScale,
			fromX: v.offX, fromY: v.offY,
			toX: toX, toY: toY,
		}
		return true
	}

	notes = v.closeEpisodeLocked(notes)
	if !fling || !finite(vel.X, vel.Y) {
		return false
	}
	loX, hiX := offsetRange(v.width, v.scale)
	loY, hiY := offsetRange(v.height, v.scale)
	v.fling = anim.NewFling(now, v.offX, v.offY, vel.X, vel.Y, v.decel, loX, hiX, loY, hiY)
	return true
}

// Step advances the running animation to now. It reports whether an
// animation is still running afterwards.
func (v *Viewport) Step(now time.Duration) bool {
	var notes []func()
	v.mu.Lock()
	defer func() {
		v.mu.Unlock()
		v.deliver(notes)
	}()

	switch {
	case v.reconcile != nil:
		r := v.reconcile
		t, done := r.tween.Fraction(now)
		prev := v.scale
		v.scale = anim.Lerp(r.fromScale, r.toScale, t)
		v.offX = anim.Lerp(r.fromX, r.toX, t)
		v.offY = anim.Lerp(r.fromY, r.toY, t)
		if done {
			v.scale, v.offX, v.offY = r.toScale, r.toX, r.toY
		}
		if v.scale != prev {
			scale := v.scale
			notes = v.noteLocked(notes, func(l ScaleListener) { l.OnScaleChange(scale) })
		}
		if done {
			v.reconcile = nil
			notes = v.closeEpisodeLocked(notes)
		}
		return !done
	case v.fling != nil:
		x, y, done := v.fling.Position(now)
		v.offX, v.offY = x, y
		if done {
			v.fling = nil
		}
		return !done
	}
	return false
}

// Animating reports whether a reconciliation or fling is running.
func (v *Viewport) Animating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reconcile != nil || v.fling != nil
}

// Abort stops the running animation, leaving scale and offset where they
// are, and closes an open scale-change episode. It reports whether an
// animation was running.
func (v *Viewport) Abort() bool {
	var notes []func()
	v.mu.Lock()
	running := v.reconcile != nil || v.fling != nil
	v.reconcile, v.fling = nil, nil
	notes = v.closeEpisodeLocked(notes)
	v.mu.Unlock()
	v.deliver(notes)
	return running
}

// Reset returns to scale 1 and offset 0, cancelling any animation.
func (v *Viewport) Reset() {
	var notes []func()
	v.mu.Lock()
	v.reconcile, v.fling = nil, nil
	notes = v.closeEpisodeLocked(notes)
	v.scale, v.offX, v.offY = 1, 0, 0
	v.mu.Unlock()
	v.deliver(notes)
}

func (v *Viewport) openEpisodeLocked(notes []func()) []func() {
	if v.episode {
		return notes
	}
	v.episode = true
	scale := v.scale
	return v.noteLocked(notes, func(l ScaleListener) { l.OnScaleChangeStart(scale) })
}

func (v *Viewport) closeEpisodeLocked(notes []func()) []func() {
	if !v.episode {
		return notes
	}
	v.episode = false
	scale := v.scale
	return v.noteLocked(notes, func(l ScaleListener) { l.OnScaleChangeEnd(scale) })
}

func (v *Viewport) noteLocked(notes []func(), fn func(ScaleListener)) []func() {
	l := v.listener
	if l == nil {
		return notes
	}
	d := v.dispatch
	return append(notes, func() { d(func() { fn(l) }) })
}

func (v *Viewport) deliver(notes []func()) {
	for _, n := range notes {
		n()
	}
}
