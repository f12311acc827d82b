package sketch

import (
	"fmt"
	"time"
)

// Action is the kind of a pointer event.
type Action uint8

const (
	// ActionDown is the first pointer touching the surface.
	ActionDown Action = iota
	// ActionMove is a pointer changing position.
	ActionMove
	// ActionUp is the last pointer leaving the surface.
	ActionUp
	// ActionPointerDown is an additional pointer touching the surface.
	ActionPointerDown
	// ActionPointerUp is a pointer leaving while others remain.
	ActionPointerUp
	// ActionCancel aborts the gesture.
	ActionCancel
)

var actionNames = [...]string{"Down", "Move", "Up", "PointerDown", "PointerUp", "Cancel"}

// String returns the action name.
func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

// PointerEvent is a single pointer sample delivered by the host.
//
// Time is a monotonic timestamp from the same Clock the Canvas uses.
// Pointers are identified by ID; the order in which the host lists them
// carries no meaning.
//
// PointerCount is the number of pointers down as the event happens,
// including one that is lifting, or 0 if the host does not report it.
// It is advisory: a mismatch with the tracked pointers is logged and the
// IDs win.
type PointerEvent struct {
	Action       Action
	ID           int
	X, Y         float64
	Time         time.Duration
	PointerCount int
}

func (e PointerEvent) point() Point {
	return Point{X: e.X, Y: e.Y}
}

// State is the phase of the current interaction.
type State uint8

const (
	StateIdle State = iota
	// StateDownPending is a single pointer down that is not yet a stroke,
	// a pinch or a tap.
	StateDownPending
	StateDrawing
	StateScaling
	StatePanning
	// StateAnimating is the viewport settling after release.
	StateAnimating
	StateDestroyed
)

var stateNames = [...]string{"Idle", "DownPending", "Drawing", "Scaling", "Panning", "Animating", "Destroyed"}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// GestureListener receives the gestures recognized from pointer events.
// All methods are called synchronously from Recognizer.Handle or
// Recognizer.Poll.
type GestureListener interface {
	// OnActionDown is called when the first pointer touches down.
	OnActionDown(p Point)
	// OnSingleTapUp is called when a pointer is released without having
	// moved, before the tap's OnDrawPath.
	OnSingleTapUp(p Point)
	// OnDrawPath is called whenever the stroke track grows. The track is
	// owned by the recognizer and stays valid until the next ActionDown.
	OnDrawPath(t *Track)
	// OnScaleStart opens a scale episode.
	OnScaleStart(pivot Point)
	// OnScale reports a relative zoom about s.Pivot, the focus at the
	// previous event, and the distance the focus moved since.
	OnScale(s Scale, pivotDelta Offset)
	// OnScaleEnd closes the scale episode. It is called once per OnScaleStart.
	OnScaleEnd(pivot Point)
	// OnPan reports single-pointer movement after a pinch.
	OnPan(focus Point, delta Offset)
	// OnActionUp is called when the last pointer is released. fling is
	// true when the release velocity should keep the view moving.
	OnActionUp(focus Point, fling bool, v Velocity)
	// OnCancel is called when the host cancels the gesture or a new first
	// Down interrupts it, after OnScaleEnd if a scale episode was open.
	OnCancel()
}

type pointer struct {
	id  int
	pos Point
}

// Recognizer turns pointer events into drawing, scaling, panning, tap and
// fling gestures.
//
// Timeouts are deadlines checked against event timestamps. Hosts that may
// go quiet while a pointer is held call Poll so an expired deadline is
// noticed without a further event.
//
// Recognizer is not safe for concurrent use.
type Recognizer struct {
	cfg      Config
	listener GestureListener

	state    State
	lastMode State
	pointers []pointer
	drawID   int
	downPos  Point
	track    *Track
	velocity *velocityTracker

	tapDeadline deadline
	panDeadline deadline

	scaleOpen bool
	pivot     Point
	span      float64
	panAnchor Point
	panLast   Point
}

// NewRecognizer returns a recognizer that reports gestures to l.
func NewRecognizer(cfg Config, l GestureListener) *Recognizer {
	return &Recognizer{
		cfg:      cfg,
		listener: l,
		track:    NewTrack(),
		velocity: newVelocityTracker(cfg.VelocityWindow, cfg.MaxFlingVelocity),
	}
}

// State returns the current recognizer state. It is one of StateIdle,
// StateDownPending, StateDrawing, StateScaling or StatePanning.
func (r *Recognizer) State() State {
	return r.state
}

// Track returns the stroke track of the current or most recent gesture.
func (r *Recognizer) Track() *Track {
	return r.track
}

// Handle processes one pointer event.
func (r *Recognizer) Handle(ev PointerEvent) {
	if !finite(ev.X, ev.Y) {
		Logger().Warn("sketch: non-finite pointer position ignored", "action", ev.Action, "id", ev.ID)
		return
	}
	r.Poll(ev.Time)
	r.checkPointerCount(ev)

	switch ev.Action {
	case ActionDown:
		r.onDown(ev)
	case ActionPointerDown:
		r.onPointerDown(ev)
	case ActionMove:
		r.onMove(ev)
	case ActionPointerUp:
		r.onPointerUp(ev)
	case ActionUp:
		r.onUp(ev)
	case ActionCancel:
		r.onCancel()
	default:
		Logger().Debug("sketch: unknown pointer action", "action", ev.Action)
	}
}

// checkPointerCount compares the host's pointer count with the pointers
// tracked by ID and reports whether they agree.
func (r *Recognizer) checkPointerCount(ev PointerEvent) bool {
	if ev.PointerCount <= 0 {
		return true
	}
	tracked := len(r.pointers)
	switch ev.Action {
	case ActionDown:
		tracked = 1
	case ActionPointerDown:
		if r.indexOf(ev.ID) < 0 {
			tracked++
		}
	}
	if ev.PointerCount == tracked {
		return true
	}
	Logger().Debug("sketch: host pointer count differs from tracked pointers",
		"action", ev.Action, "reported", ev.PointerCount, "tracked", tracked)
	return false
}

// Poll fires any deadline that has expired at now.
func (r *Recognizer) Poll(now time.Duration) {
	switch r.state {
	case StateDownPending:
		if r.tapDeadline.expired(now) {
			r.beginDrawing()
		}
	case StateScaling:
		if len(r.pointers) == 1 && r.panDeadline.expired(now) {
			r.beginPanning(r.pointers[0].pos)
		}
	}
}

func (r *Recognizer) onDown(ev PointerEvent) {
	if r.state != StateIdle {
		Logger().Debug("sketch: down during active gesture, restarting", "state", r.state)
		r.onCancel()
	}
	p := ev.point()
	r.pointers = append(r.pointers[:0], pointer{id: ev.ID, pos: p})
	r.drawID = ev.ID
	r.downPos = p
	r.lastMode = StateIdle
	r.track.Reset()
	r.track.Departure(PointV{Point: p})
	r.velocity.reset()
	r.velocity.add(ev.Time, p)
	r.tapDeadline.arm(ev.Time, r.cfg.TapTimeout)
	r.setState(StateDownPending)
	r.listener.OnActionDown(p)
}

func (r *Recognizer) onPointerDown(ev PointerEvent) {
	if r.state == StateIdle {
		Logger().Debug("sketch: pointer down without a gesture ignored", "id", ev.ID)
		return
	}
	if r.indexOf(ev.ID) >= 0 {
		Logger().Debug("sketch: duplicate pointer down ignored", "id", ev.ID)
		return
	}
	r.pointers = append(r.pointers, pointer{id: ev.ID, pos: ev.point()})
	r.velocity.reset()

	switch r.state {
	case StateDownPending, StatePanning:
		r.beginScaling()
	case StateScaling:
		r.panDeadline.disarm()
		r.pivot, r.span = r.focusSpan()
	}
}

func (r *Recognizer) onMove(ev PointerEvent) {
	i := r.indexOf(ev.ID)
	if i < 0 {
		Logger().Debug("sketch: move for unknown pointer ignored", "id", ev.ID)
		return
	}
	p := ev.point()
	r.pointers[i].pos = p

	switch r.state {
	case StateDownPending:
		r.track.AddStation(PointV{Point: p, V: r.velocity.velocity()})
		if p.Distance(r.downPos) > r.cfg.TouchSlop {
			r.beginDrawing()
		}
	case StateDrawing:
		if ev.ID == r.drawID {
			r.track.AddStation(PointV{Point: p, V: r.velocity.velocity()})
			r.listener.OnDrawPath(r.track)
		}
	case StateScaling:
		if len(r.pointers) == 1 {
			if p.Distance(r.panAnchor) > r.cfg.TouchSlop {
				r.beginPanning(r.panAnchor)
				r.pan(p)
			}
			break
		}
		r.scale()
	case StatePanning:
		r.pan(p)
	}
	r.velocity.add(ev.Time, r.focus())
}

func (r *Recognizer) onPointerUp(ev PointerEvent) {
	i := r.indexOf(ev.ID)
	if i < 0 {
		Logger().Debug("sketch: pointer up for unknown pointer ignored", "id", ev.ID)
		return
	}
	r.pointers = append(r.pointers[:i], r.pointers[i+1:]...)
	r.velocity.reset()

	if r.state != StateScaling {
		return
	}
	if len(r.pointers) == 1 {
		r.panAnchor = r.pointers[0].pos
		r.panDeadline.arm(ev.Time, r.cfg.PanConfirmTimeout)
		return
	}
	r.pivot, r.span = r.focusSpan()
}

func (r *Recognizer) onUp(ev PointerEvent) {
	i := r.indexOf(ev.ID)
	if r.state == StateIdle || i < 0 {
		Logger().Debug("sketch: up for unknown pointer ignored", "id", ev.ID, "state", r.state)
		return
	}
	p := ev.point()
	r.pointers[i].pos = p
	r.velocity.add(ev.Time, r.focus())

	switch r.state {
	case StateDownPending:
		// Released inside the slop before the tap deadline.
		if r.track.Len() == 1 {
			r.track.AddStation(PointV{Point: r.downPos})
		} else {
			r.track.AddStation(PointV{Point: p})
		}
		r.lastMode = StateDrawing
		r.setState(StateDrawing)
		r.listener.OnSingleTapUp(p)
		r.listener.OnDrawPath(r.track)
	case StateDrawing:
		if ev.ID == r.drawID {
			stations := r.track.stations
			if last := stations[len(stations)-1].Point; last != p {
				r.track.AddStation(PointV{Point: p, V: r.velocity.velocity()})
			}
			r.listener.OnDrawPath(r.track)
		}
	case StatePanning:
		r.pan(p)
	}

	if r.scaleOpen {
		r.scaleOpen = false
		r.listener.OnScaleEnd(r.pivot)
	}

	v := r.velocity.velocity()
	fling := v.Magnitude() > r.cfg.MinFlingVelocity &&
		(r.lastMode == StateScaling || r.lastMode == StatePanning)
	r.reset()
	r.listener.OnActionUp(p, fling, v)
}

func (r *Recognizer) onCancel() {
	if r.state == StateIdle {
		return
	}
	if r.scaleOpen {
		r.scaleOpen = false
		r.listener.OnScaleEnd(r.pivot)
	}
	r.reset()
	r.track.Reset()
	r.listener.OnCancel()
}

func (r *Recognizer) beginDrawing() {
	r.tapDeadline.disarm()
	r.lastMode = StateDrawing
	r.setState(StateDrawing)
	r.listener.OnDrawPath(r.track)
}

func (r *Recognizer) beginScaling() {
	r.tapDeadline.disarm()
	r.panDeadline.disarm()
	r.track.Reset()
	r.lastMode = StateScaling
	r.setState(StateScaling)
	r.pivot, r.span = r.focusSpan()
	if !r.scaleOpen {
		r.scaleOpen = true
		r.listener.OnScaleStart(r.pivot)
	}
}

func (r *Recognizer) beginPanning(from Point) {
	r.panDeadline.disarm()
	r.lastMode = StatePanning
	r.setState(StatePanning)
	r.panLast = from
	if r.scaleOpen {
		r.scaleOpen = false
		r.listener.OnScaleEnd(r.pivot)
	}
}

func (r *Recognizer) scale() {
	pivot, span := r.focusSpan()
	factor := 1.0
	if r.span > 1e-6 && span > 1e-6 {
		if f := span / r.span; finite(f) {
			factor = f
		}
	}
	delta := Offset{DX: pivot.X - r.pivot.X, DY: pivot.Y - r.pivot.Y}
	s := Scale{Factor: factor, Pivot: r.pivot}
	r.pivot, r.span = pivot, span
	r.listener.OnScale(s, delta)
}

func (r *Recognizer) pan(p Point) {
	delta := Offset{DX: p.X - r.panLast.X, DY: p.Y - r.panLast.Y}
	r.panLast = p
	if delta.DX == 0 && delta.DY == 0 {
		return
	}
	r.listener.OnPan(p, delta)
}

func (r *Recognizer) reset() {
	r.pointers = r.pointers[:0]
	r.tapDeadline.disarm()
	r.panDeadline.disarm()
	r.velocity.reset()
	r.scaleOpen = false
	r.span = 0
	r.setState(StateIdle)
}

func (r *Recognizer) setState(s State) {
	if r.state != s {
		Logger().Debug("sketch: gesture state", "from", r.state, "to", s)
		r.state = s
	}
}

func (r *Recognizer) indexOf(id int) int {
	for i, p := range r.pointers {
		if p.id == id {
			return i
		}
	}
	return -1
}

// focus returns the centroid of the active pointers.
func (r *Recognizer) focus() Point {
	var c Point
	if len(r.pointers) == 0 {
		return c
	}
	for _, p := range r.pointers {
		c.X += p.pos.X
		c.Y += p.pos.Y
	}
	return c.Div(float64(len(r.pointers)))
}

// focusSpan returns the centroid and twice the mean distance of the
// pointers from it.
func (r *Recognizer) focusSpan() (Point, float64) {
	c := r.focus()
	if len(r.pointers) < 2 {
		return c, 0
	}
	var sum float64
	for _, p := range r.pointers {
		sum += p.pos.Distance(c)
	}
	return c, 2 * sum / float64(len(r.pointers))
}
