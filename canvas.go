package sketch

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"
)

// Canvas is an interactive drawing surface.
//
// The host feeds pointer events to HandleEvent from its input goroutine
// and runs Start on a goroutine of its own, which renders frames into the
// RenderTarget at a fixed rate. All other methods are safe to call from
// any goroutine.
type Canvas struct {
	cfg      Config
	clock    Clock
	dispatch Dispatcher
	board    color.Color

	history *History
	loop    *renderLoop
	comp    *compositor // render goroutine only

	mu            sync.Mutex
	width, height int
	status        State
	closed        bool
	started       bool
	cancel        context.CancelFunc
	recognizer    *Recognizer
	viewport      *Viewport
	brush         Brush
	// live is the stroke in progress in canvas space, drawn with liveBrush.
	live      *Track
	liveBrush Brush
	// aborted is set when the current gesture stopped an animation; a tap
	// in that gesture leaves no mark.
	aborted    bool
	discardTap bool
	eventTime  time.Duration
	pending    []func()
}

// New returns a canvas of the given size that presents frames to target.
func New(width, height int, target RenderTarget, opts ...Option) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if target == nil {
		return nil, ErrNilTarget
	}
	if f := target.Format(); !supportedFormat(f) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if o.clock == nil {
		o.clock = newSystemClock()
	}
	if o.brush == nil {
		o.brush = NewPen()
	}

	c := &Canvas{
		cfg:      o.config,
		clock:    o.clock,
		dispatch: o.dispatch,
		board:    o.config.BoardColor,
		history:  NewHistory(),
		comp:     newCompositor(o.config.BoardColor, o.background),
		width:    width,
		height:   height,
		brush:    o.brush,
		live:     NewTrack(),
	}
	c.viewport = NewViewport(width, height, o.config)
	c.viewport.SetScaleListener(o.listener)
	// Every viewport call is made with c.mu held, so notifications are
	// queued here and dispatched after the lock is released.
	c.viewport.SetDispatcher(func(fn func()) { c.pending = append(c.pending, fn) })
	c.recognizer = NewRecognizer(o.config, (*canvasGestures)(c))
	c.loop = newRenderLoop(o.config.FrameInterval, o.clock, c, target)
	return c, nil
}

// Start runs the render loop until ctx is done or Close is called.
func (c *Canvas) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.started:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.loop.invalidate()
	return c.loop.run(ctx)
}

// Close stops the render loop and ignores further input. It is safe to
// call more than once.
func (c *Canvas) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.status = StateDestroyed
	c.viewport.Abort()
	if c.cancel != nil {
		c.cancel()
	}
	notes := c.takePendingLocked()
	c.mu.Unlock()
	c.deliver(notes)
	return nil
}

// Now returns the current time on the canvas clock. Hosts stamp pointer
// events with it.
func (c *Canvas) Now() time.Duration {
	return c.clock.Now()
}

// HandleEvent processes one pointer event.
func (c *Canvas) HandleEvent(ev PointerEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.eventTime = ev.Time
	c.recognizer.Handle(ev)
	if c.recognizer.State() != StateIdle {
		c.loop.invalidate()
	}
	notes := c.takePendingLocked()
	c.mu.Unlock()
	c.deliver(notes)
}

// Poll fires gesture deadlines that expired without a following event.
func (c *Canvas) Poll() {
	c.mu.Lock()
	if !c.closed {
		c.recognizer.Poll(c.clock.Now())
	}
	notes := c.takePendingLocked()
	c.mu.Unlock()
	c.deliver(notes)
}

// State returns the interaction state: StateIdle, StateDrawing,
// StateScaling, StatePanning, StateAnimating or StateDestroyed.
func (c *Canvas) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// View returns the current viewport transform.
func (c *Canvas) View() ViewportState {
	return c.viewport.State()
}

// Size returns the surface size.
func (c *Canvas) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// Resize changes the surface size. The cache is rebuilt on the next frame.
func (c *Canvas) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	c.mu.Lock()
	c.width, c.height = width, height
	c.viewport.Resize(width, height)
	c.mu.Unlock()
	Logger().Info("sketch: surface resized", "width", width, "height", height)
	c.loop.invalidate()
	return nil
}

// SetBrush sets the brush used by the next stroke. A stroke in progress
// keeps the brush it started with. Nil is ignored.
func (c *Canvas) SetBrush(b Brush) {
	if b == nil {
		return
	}
	c.mu.Lock()
	c.brush = b
	c.mu.Unlock()
}

// Brush returns the current brush. Changes to it affect later strokes only.
func (c *Canvas) Brush() Brush {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brush
}

// Undo removes the most recent stroke. It reports whether there was one.
func (c *Canvas) Undo() bool {
	if !c.history.Undo() {
		return false
	}
	c.loop.invalidate()
	return true
}

// Redo restores the most recently undone stroke. It reports whether there
// was one.
func (c *Canvas) Redo() bool {
	if !c.history.Redo() {
		return false
	}
	c.loop.invalidate()
	return true
}

// CanUndo reports whether Undo would remove a stroke.
func (c *Canvas) CanUndo() bool { return c.history.CanUndo() }

// CanRedo reports whether Redo would restore a stroke.
func (c *Canvas) CanRedo() bool { return c.history.CanRedo() }

// History returns the committed strokes from oldest to newest.
func (c *Canvas) History() []HistoryEntry {
	return c.history.Entries()
}

// Bitmap returns the board and all committed strokes at 1:1, independent of
// the current scale and offset.
func (c *Canvas) Bitmap() (*image.RGBA, error) {
	c.mu.Lock()
	w, h := c.width, c.height
	c.mu.Unlock()

	l, err := renderBoard(w, h, c.board, c.history.Entries())
	if err != nil {
		return nil, err
	}
	return l.Image(), nil
}

// Reset clears the history and returns the viewport to scale 1 and
// offset 0.
func (c *Canvas) Reset() {
	c.history.Clear()
	c.mu.Lock()
	c.viewport.Reset()
	c.live.Reset()
	c.liveBrush = nil
	if c.status != StateDestroyed {
		c.setStatusLocked(StateIdle)
	}
	notes := c.takePendingLocked()
	c.mu.Unlock()
	c.deliver(notes)
	c.loop.invalidate()
}

// SetMinScale sets the lower zoom bound, clamped to [0, 1]. It takes
// effect when the next gesture is released.
func (c *Canvas) SetMinScale(s float64) { c.viewport.SetMinScale(s) }

// SetMaxScale sets the upper zoom bound, clamped to at least 1. It takes
// effect when the next gesture is released.
func (c *Canvas) SetMaxScale(s float64) { c.viewport.SetMaxScale(s) }

// SetScaleListener replaces the scale listener. Nil removes it.
func (c *Canvas) SetScaleListener(l ScaleListener) {
	c.viewport.SetScaleListener(l)
}

func (c *Canvas) setStatusLocked(s State) {
	if c.status == s {
		return
	}
	Logger().Debug("sketch: canvas state", "from", c.status, "to", s)
	c.status = s
	// Entering StateIdle still needs one frame to show the settled view.
	c.loop.invalidate()
}

func (c *Canvas) takePendingLocked() []func() {
	notes := c.pending
	c.pending = nil
	return notes
}

func (c *Canvas) deliver(notes []func()) {
	for _, fn := range notes {
		c.dispatch(fn)
	}
}

// busy implements frameSource.
func (c *Canvas) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.status != StateIdle || c.recognizer.State() != StateIdle
}

// renderFrame implements frameSource.
func (c *Canvas) renderFrame(now time.Duration) (*image.RGBA, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.recognizer.Poll(now)
	if c.status == StateAnimating && !c.viewport.Step(now) {
		c.setStatusLocked(StateIdle)
	}
	fs := frameState{
		width:  c.width,
		height: c.height,
		view:   c.viewport.State(),
	}
	if c.status == StateDrawing && !c.live.IsEmpty() {
		fs.live = c.live.Clone()
		fs.liveBrush = c.liveBrush
	}
	notes := c.takePendingLocked()
	c.mu.Unlock()
	c.deliver(notes)

	fs.entries, fs.gen = c.history.Snapshot()
	return c.comp.compose(fs)
}

// canvasGestures applies recognized gestures to the canvas. Its methods
// run inside HandleEvent or a frame with c.mu held.
type canvasGestures Canvas

func (g *canvasGestures) OnActionDown(Point) {
	c := (*Canvas)(g)
	c.aborted = c.viewport.Abort()
	c.discardTap = false
	c.live.Reset()
	c.liveBrush = c.brush.Clone()
	if c.status == StateAnimating {
		c.setStatusLocked(StateIdle)
	}
}

func (g *canvasGestures) OnSingleTapUp(Point) {
	c := (*Canvas)(g)
	c.discardTap = c.aborted
}

func (g *canvasGestures) OnDrawPath(t *Track) {
	c := (*Canvas)(g)
	if c.discardTap {
		return
	}
	c.setStatusLocked(StateDrawing)

	// Stations are appended in canvas space as the screen track grows.
	// The viewport does not move while drawing.
	view := c.viewport.State()
	stations := t.stations
	if c.live.Len() > len(stations) {
		c.live.Reset()
	}
	for _, s := range stations[c.live.Len():] {
		p := view.ScreenToCanvas(s.Point)
		c.live.AddStation(PointV{Point: p, V: Velocity{X: s.V.X / view.Scale, Y: s.V.Y / view.Scale}})
	}
}

func (g *canvasGestures) OnScaleStart(pivot Point) {
	c := (*Canvas)(g)
	c.live.Reset()
	c.setStatusLocked(StateScaling)
	c.viewport.BeginScale(pivot)
}

func (g *canvasGestures) OnScale(s Scale, pivotDelta Offset) {
	c := (*Canvas)(g)
	c.viewport.Scale(s, pivotDelta)
}

func (g *canvasGestures) OnScaleEnd(pivot Point) {
	c := (*Canvas)(g)
	c.viewport.EndScale(pivot)
}

func (g *canvasGestures) OnPan(focus Point, delta Offset) {
	c := (*Canvas)(g)
	c.setStatusLocked(StatePanning)
	c.viewport.Pan(focus, delta)
}

func (g *canvasGestures) OnActionUp(_ Point, fling bool, v Velocity) {
	c := (*Canvas)(g)
	if c.status == StateDrawing && !c.discardTap && !c.live.IsEmpty() {
		// The stored track is the recognizer's screen track mapped into
		// canvas space; live is only its incremental preview.
		track := c.recognizer.Track().Transform(c.viewport.Inverse())
		e := c.history.Commit(c.liveBrush, track)
		Logger().Debug("sketch: stroke committed", "id", e.ID, "stations", e.Track.Len())
	}
	c.live.Reset()
	c.aborted, c.discardTap = false, false

	if c.viewport.Release(fling, v, c.eventTime) {
		c.setStatusLocked(StateAnimating)
	} else {
		c.setStatusLocked(StateIdle)
	}
}

func (g *canvasGestures) OnCancel() {
	c := (*Canvas)(g)
	c.live.Reset()
	c.aborted, c.discardTap = false, false
	if c.viewport.Release(false, Velocity{}, c.eventTime) {
		c.setStatusLocked(StateAnimating)
	} else {
		c.setStatusLocked(StateIdle)
	}
}
