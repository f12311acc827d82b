package sketch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

// fakeClock is a Clock that only moves when told to.
type fakeClock struct {
	now atomic.Int64
}

func (c *fakeClock) Now() time.Duration { return time.Duration(c.now.Load()) }

func (c *fakeClock) Set(d time.Duration) { c.now.Store(int64(d)) }

type canvasHarness struct {
	*Canvas
	clock  *fakeClock
	scales *scaleRecorder
	target *ImageTarget
}

func newTestCanvas(t *testing.T, opts ...Option) *canvasHarness {
	t.Helper()
	h := &canvasHarness{
		clock:  &fakeClock{},
		scales: &scaleRecorder{},
		target: NewImageTarget(gputypes.TextureFormatRGBA8Unorm),
	}
	opts = append([]Option{WithClock(h.clock), WithScaleListener(h.scales)}, opts...)
	c, err := New(400, 400, h.target, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	h.Canvas = c
	return h
}

// send stamps ev with its time on the fake clock and handles it.
func (h *canvasHarness) send(a Action, id int, x, y float64, at time.Duration) {
	h.clock.Set(at)
	h.HandleEvent(ev(a, id, x, y, at))
}

func (h *canvasHarness) stroke(at time.Duration, pts ...Point) {
	h.send(ActionDown, 0, pts[0].X, pts[0].Y, at)
	for i, p := range pts[1:] {
		h.send(ActionMove, 0, p.X, p.Y, at+ms(10*(i+1)))
	}
	last := pts[len(pts)-1]
	h.send(ActionUp, 0, last.X, last.Y, at+ms(10*len(pts)))
}

// pinch zooms by moving a second pointer from (200,100) to x2, with the
// first pointer held at (100,100).
func (h *canvasHarness) pinch(at time.Duration, x2 float64) {
	h.send(ActionDown, 0, 100, 100, at)
	h.send(ActionPointerDown, 1, 200, 100, at+ms(10))
	h.send(ActionMove, 1, x2, 100, at+ms(20))
	h.send(ActionPointerUp, 1, x2, 100, at+ms(30))
	h.send(ActionUp, 0, 100, 100, at+ms(40))
}

// settle renders frames until the canvas is idle.
func (h *canvasHarness) settle(t *testing.T, from time.Duration) time.Duration {
	t.Helper()
	now := from
	for i := 0; i < 1000 && h.State() != StateIdle; i++ {
		now += 16 * time.Millisecond
		h.clock.Set(now)
		if _, err := h.renderFrame(now); err != nil {
			t.Fatalf("renderFrame() error = %v", err)
		}
	}
	if h.State() != StateIdle {
		t.Fatalf("canvas did not settle, state %v", h.State())
	}
	return now
}

func bitmapAt(t *testing.T, c *Canvas, x, y int) [4]uint8 {
	t.Helper()
	img, err := c.Bitmap()
	if err != nil {
		t.Fatalf("Bitmap() error = %v", err)
	}
	px := img.RGBAAt(x, y)
	return [4]uint8{px.R, px.G, px.B, px.A}
}

var (
	boardPx = [4]uint8{255, 255, 255, 255}
	penPx   = [4]uint8{0x88, 0x88, 0x88, 255}
)

func TestNewErrors(t *testing.T) {
	rgba := NewImageTarget(gputypes.TextureFormatRGBA8Unorm)
	bad := DefaultConfig()
	bad.MaxScale = 0.5

	tests := []struct {
		name   string
		w, h   int
		target RenderTarget
		opts   []Option
		want   error
	}{
		{"zero width", 0, 10, rgba, nil, ErrInvalidSize},
		{"negative height", 10, -1, rgba, nil, ErrInvalidSize},
		{"nil target", 10, 10, nil, nil, ErrNilTarget},
		{"unsupported format", 10, 10, NewImageTarget(gputypes.TextureFormatR8Unorm), nil, ErrUnsupportedFormat},
		{"invalid config", 10, 10, rgba, []Option{WithConfig(bad)}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.w, tt.h, tt.target, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
			if c != nil {
				t.Error("New() returned a canvas with an error")
			}
		})
	}
}

func TestCanvasStrokeCommits(t *testing.T) {
	h := newTestCanvas(t)
	h.stroke(0, Pt(10, 50), Pt(40, 50), Pt(80, 50), Pt(120, 50))

	if h.State() != StateIdle {
		t.Errorf("State() = %v, want Idle", h.State())
	}
	if got := len(h.History()); got != 1 {
		t.Fatalf("History() has %d entries, want 1", got)
	}
	if !h.CanUndo() || h.CanRedo() {
		t.Errorf("CanUndo() = %v, CanRedo() = %v", h.CanUndo(), h.CanRedo())
	}
	if got := bitmapAt(t, h.Canvas, 60, 50); got != penPx {
		t.Errorf("stroke pixel = %v, want %v", got, penPx)
	}
	if got := bitmapAt(t, h.Canvas, 60, 200); got != boardPx {
		t.Errorf("board pixel = %v, want %v", got, boardPx)
	}
}

func TestCanvasUndoRedo(t *testing.T) {
	h := newTestCanvas(t)
	h.stroke(0, Pt(10, 50), Pt(40, 50), Pt(80, 50))

	if !h.Undo() {
		t.Fatal("Undo() = false")
	}
	if got := bitmapAt(t, h.Canvas, 40, 50); got != boardPx {
		t.Errorf("after Undo pixel = %v, want board", got)
	}
	if h.Undo() {
		t.Error("second Undo() = true")
	}
	if !h.Redo() {
		t.Fatal("Redo() = false")
	}
	if got := bitmapAt(t, h.Canvas, 40, 50); got != penPx {
		t.Errorf("after Redo pixel = %v, want pen", got)
	}
}

func TestCanvasTapDrawsDot(t *testing.T) {
	h := newTestCanvas(t)
	h.send(ActionDown, 0, 50, 50, 0)
	h.send(ActionUp, 0, 50, 50, ms(30))

	if got := len(h.History()); got != 1 {
		t.Fatalf("History() has %d entries, want 1", got)
	}
	if got := bitmapAt(t, h.Canvas, 50, 50); got != penPx {
		t.Errorf("dot pixel = %v, want %v", got, penPx)
	}
}

func TestCanvasEraser(t *testing.T) {
	h := newTestCanvas(t)
	h.stroke(0, Pt(10, 50), Pt(40, 50), Pt(80, 50))
	h.SetBrush(NewEraser())
	h.stroke(ms(500), Pt(40, 10), Pt(40, 50), Pt(40, 90))

	if got := bitmapAt(t, h.Canvas, 40, 50); got[3] != 0 {
		t.Errorf("erased alpha = %d, want 0", got[3])
	}
	if got := bitmapAt(t, h.Canvas, 15, 50); got != penPx {
		t.Errorf("unerased stroke = %v, want pen", got)
	}
	if got := h.History()[1].Brush.Mode(); got != CompositeDestinationOut {
		t.Errorf("second entry mode = %v", got)
	}
}

func TestCanvasBrushChangeMidStroke(t *testing.T) {
	h := newTestCanvas(t)
	h.send(ActionDown, 0, 10, 50, 0)
	h.send(ActionMove, 0, 60, 50, ms(10))
	h.SetBrush(NewEraser())
	h.send(ActionUp, 0, 100, 50, ms(20))

	if got := h.History()[0].Brush.Mode(); got != CompositeSourceOver {
		t.Errorf("committed mode = %v, want the brush the stroke began with", got)
	}
	if _, ok := h.Brush().(*Eraser); !ok {
		t.Errorf("Brush() = %T, want *Eraser", h.Brush())
	}
}

func TestCanvasDrawsInCanvasSpace(t *testing.T) {
	h := newTestCanvas(t)
	h.pinch(0, 300)

	if s := h.View(); s.Scale != 2 || s.OffsetX != -100 || s.OffsetY != -100 {
		t.Fatalf("View() = %+v, want scale 2 offset (-100,-100)", s)
	}
	want := []string{"start 1", "change 2", "end 2"}
	if fmt.Sprint(h.scales.notes) != fmt.Sprint(want) {
		t.Errorf("scale notes = %v, want %v", h.scales.notes, want)
	}
	if got := len(h.History()); got != 0 {
		t.Errorf("pinch committed %d strokes", got)
	}

	h.stroke(ms(500), Pt(100, 100), Pt(140, 100), Pt(200, 100))
	st := h.History()[0].Track.Stations()
	if first := st[0].Point; !approxPt(first, Pt(100, 100)) {
		t.Errorf("first station = %v, want canvas (100,100)", first)
	}
	if last := st[len(st)-1].Point; !approxPt(last, Pt(150, 100)) {
		t.Errorf("last station = %v, want canvas (150,100)", last)
	}
}

func TestCanvasReconcileAnimates(t *testing.T) {
	h := newTestCanvas(t)
	h.pinch(0, 150)

	if h.State() != StateAnimating {
		t.Fatalf("State() = %v after zooming below min, want Animating", h.State())
	}
	if !h.busy() {
		t.Error("busy() = false while animating")
	}
	h.settle(t, ms(40))
	if s := h.View(); s != (ViewportState{Scale: 1}) {
		t.Errorf("settled view = %+v, want identity", s)
	}
	if h.busy() {
		t.Error("busy() = true after settling")
	}
	if got := h.scales.notes[len(h.scales.notes)-1]; got != "end 1" {
		t.Errorf("last scale note = %q, want end 1", got)
	}
}

func TestCanvasPanFlingAfterPinch(t *testing.T) {
	h := newTestCanvas(t)
	h.send(ActionDown, 0, 100, 100, 0)
	h.send(ActionPointerDown, 1, 200, 100, ms(10))
	h.send(ActionMove, 1, 300, 100, ms(20))
	h.send(ActionPointerUp, 1, 300, 100, ms(30))
	// The remaining pointer pans right at 2000 px/s.
	for i, x := range []float64{110, 130, 150, 170} {
		h.send(ActionMove, 0, x, 100, ms(40+10*i))
	}
	if h.State() != StatePanning {
		t.Fatalf("State() = %v, want Panning", h.State())
	}
	want := []string{"start 1", "change 2", "end 2"}
	if fmt.Sprint(h.scales.notes) != fmt.Sprint(want) {
		t.Fatalf("notes before release = %v, want %v", h.scales.notes, want)
	}

	h.send(ActionUp, 0, 190, 100, ms(80))
	if h.State() != StateAnimating {
		t.Fatalf("State() = %v after release, want Animating", h.State())
	}
	if fmt.Sprint(h.scales.notes) != fmt.Sprint(want) {
		t.Errorf("release notified %v", h.scales.notes[len(want):])
	}
	h.settle(t, ms(80))
	if x := h.View().OffsetX; x < -400 || x > 0 {
		t.Errorf("offset x = %v after fling, want within [-400, 0]", x)
	}
	if fmt.Sprint(h.scales.notes) != fmt.Sprint(want) {
		t.Errorf("fling notified %v", h.scales.notes[len(want):])
	}
}

func TestCanvasDownInterruptsPinch(t *testing.T) {
	h := newTestCanvas(t)
	h.send(ActionDown, 0, 100, 100, 0)
	h.send(ActionPointerDown, 1, 200, 100, ms(10))
	h.send(ActionMove, 1, 300, 100, ms(20))
	if h.State() != StateScaling {
		t.Fatalf("State() = %v, want Scaling", h.State())
	}
	h.send(ActionDown, 2, 50, 50, ms(30))
	if h.State() == StateScaling {
		t.Error("canvas still scaling after the gesture was interrupted")
	}
	if s, e := h.scales.count("start"), h.scales.count("end"); s != 1 || e != 1 {
		t.Errorf("notes = %v, want the episode closed", h.scales.notes)
	}
	h.send(ActionUp, 2, 50, 50, ms(40))
	if got := len(h.History()); got != 1 {
		t.Errorf("tap after the interruption committed %d strokes, want 1", got)
	}
}

func TestCanvasTapDuringAnimationIsDiscarded(t *testing.T) {
	h := newTestCanvas(t)
	h.pinch(0, 150)
	if h.State() != StateAnimating {
		t.Fatalf("State() = %v, want Animating", h.State())
	}
	h.clock.Set(ms(60))
	if _, err := h.renderFrame(ms(60)); err != nil {
		t.Fatalf("renderFrame() error = %v", err)
	}

	h.send(ActionDown, 0, 50, 50, ms(70))
	if h.View().Scale == 1 {
		t.Fatal("animation finished before the tap")
	}
	h.send(ActionUp, 0, 50, 50, ms(90))
	if got := len(h.History()); got != 0 {
		t.Errorf("tap that stopped the animation committed %d strokes", got)
	}
	// The view is still zoomed out, so release reconciles it again.
	if h.State() != StateAnimating {
		t.Fatalf("State() = %v after tap, want Animating", h.State())
	}
	h.settle(t, ms(90))
	if s, e := h.scales.count("start"), h.scales.count("end"); s != e {
		t.Errorf("scale episodes: %d starts, %d ends", s, e)
	}

	h.send(ActionDown, 0, 50, 50, ms(1000))
	h.send(ActionUp, 0, 50, 50, ms(1020))
	if got := len(h.History()); got != 1 {
		t.Errorf("later tap committed %d strokes, want 1", got)
	}
}

func TestCanvasCancelDiscardsStroke(t *testing.T) {
	h := newTestCanvas(t)
	h.send(ActionDown, 0, 10, 50, 0)
	h.send(ActionMove, 0, 60, 50, ms(10))
	if h.State() != StateDrawing {
		t.Fatalf("State() = %v, want Drawing", h.State())
	}
	h.send(ActionCancel, 0, 0, 0, ms(20))
	if h.State() != StateIdle || len(h.History()) != 0 {
		t.Errorf("after cancel: state %v, %d strokes", h.State(), len(h.History()))
	}
}

func TestCanvasPollStartsStroke(t *testing.T) {
	h := newTestCanvas(t)
	h.send(ActionDown, 0, 10, 50, 0)
	h.clock.Set(ms(150))
	h.Poll()
	if h.State() != StateDrawing {
		t.Errorf("State() = %v after tap timeout, want Drawing", h.State())
	}
}

func TestCanvasLiveStrokeRendered(t *testing.T) {
	h := newTestCanvas(t)
	h.send(ActionDown, 0, 10, 50, 0)
	h.send(ActionMove, 0, 60, 50, ms(10))
	h.send(ActionMove, 0, 120, 50, ms(20))

	img, err := h.renderFrame(ms(30))
	if err != nil {
		t.Fatalf("renderFrame() error = %v", err)
	}
	if px := img.RGBAAt(60, 50); px.R != 0x88 || px.A != 255 {
		t.Errorf("live stroke pixel = %v, want pen gray", px)
	}
	if len(h.History()) != 0 {
		t.Error("stroke committed before release")
	}
}

func TestCanvasReset(t *testing.T) {
	h := newTestCanvas(t)
	h.stroke(0, Pt(10, 50), Pt(40, 50), Pt(80, 50))
	h.pinch(ms(500), 300)
	h.Reset()

	if h.CanUndo() || h.CanRedo() {
		t.Error("history survived Reset")
	}
	if s := h.View(); s != (ViewportState{Scale: 1}) {
		t.Errorf("View() = %+v after Reset", s)
	}
	if got := bitmapAt(t, h.Canvas, 40, 50); got != boardPx {
		t.Errorf("pixel = %v after Reset, want board", got)
	}
}

func TestCanvasScaleBounds(t *testing.T) {
	h := newTestCanvas(t)
	h.SetMaxScale(1.5)
	h.pinch(0, 300)
	h.settle(t, ms(40))
	if s := h.View().Scale; s != 1.5 {
		t.Errorf("settled scale = %v, want 1.5", s)
	}
}

func TestCanvasResize(t *testing.T) {
	h := newTestCanvas(t)
	if err := h.Resize(0, 10); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Resize(0, 10) error = %v", err)
	}
	if err := h.Resize(200, 100); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	img, err := h.Bitmap()
	if err != nil {
		t.Fatalf("Bitmap() error = %v", err)
	}
	if img.Rect != image.Rect(0, 0, 200, 100) {
		t.Errorf("Bitmap bounds = %v", img.Rect)
	}
}

func TestCanvasStartClose(t *testing.T) {
	h := newTestCanvas(t)
	done := make(chan error, 1)
	go func() { done <- h.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for h.target.Frames() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.target.Frames() == 0 {
		t.Fatal("no frame presented after Start")
	}
	if err := h.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Close")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := h.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
	if h.State() != StateDestroyed {
		t.Errorf("State() = %v, want Destroyed", h.State())
	}

	// Input after Close is ignored.
	h.stroke(time.Second, Pt(10, 10), Pt(50, 10))
	if len(h.History()) != 0 {
		t.Error("closed canvas accepted a stroke")
	}
}

func TestCanvasDispatcher(t *testing.T) {
	var queued []func()
	h := newTestCanvas(t, WithDispatcher(func(fn func()) { queued = append(queued, fn) }))
	h.pinch(0, 300)
	if len(h.scales.notes) != 0 {
		t.Fatalf("notes delivered outside the dispatcher: %v", h.scales.notes)
	}
	for _, fn := range queued {
		fn()
	}
	if len(h.scales.notes) != 3 {
		t.Errorf("notes = %v, want start, change and end", h.scales.notes)
	}
}
