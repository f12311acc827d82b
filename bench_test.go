package sketch

import (
	"image/color"
	"math"
	"testing"
)

// wave returns a stroke of n stations across a w-pixel surface at height y.
func wave(n int, w, y float64) *Track {
	tr := NewTrack()
	for i := 0; i < n; i++ {
		x := float64(i) * w / float64(n)
		tr.AddStation(PointV{Point: Pt(x, y+math.Sin(float64(i)/4)*20)})
	}
	return tr
}

func benchEntries(count, w, h int) []HistoryEntry {
	entries := make([]HistoryEntry, count)
	for i := range entries {
		y := float64(h) * float64(i+1) / float64(count+1)
		var b Brush = redPen(8)
		if i%5 == 4 {
			b = NewEraser()
		}
		entries[i] = entry(b, wave(64, float64(w), y))
	}
	return entries
}

func BenchmarkTrackAddStation(b *testing.B) {
	tr := NewTrack()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%4096 == 0 {
			tr.Reset()
		}
		x := float64(i % 4096)
		tr.AddStation(PointV{Point: Pt(x, math.Sin(x/8)*50)})
	}
}

func BenchmarkTrackTransform(b *testing.B) {
	tr := wave(256, 800, 300)
	m := ViewportState{Scale: 2, OffsetX: -100, OffsetY: -50}.Matrix().Invert()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tr.Transform(m)
	}
}

// BenchmarkCompositorIncremental measures a frame that adds one committed
// stroke to a valid cache.
func BenchmarkCompositorIncremental(b *testing.B) {
	const w, h = 512, 512
	entries := benchEntries(64, w, h)
	c := newCompositor(color.White, nil)
	var gen uint64
	if _, err := c.compose(frameState{width: w, height: h, view: ViewportState{Scale: 1}, gen: gen}); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := i%len(entries) + 1
		if n == 1 {
			b.StopTimer()
			gen++
			if _, err := c.compose(frameState{width: w, height: h, view: ViewportState{Scale: 1}, gen: gen}); err != nil {
				b.Fatal(err)
			}
			b.StartTimer()
		}
		fs := frameState{width: w, height: h, view: ViewportState{Scale: 1}, entries: entries[:n], gen: gen}
		if _, err := c.compose(fs); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompositorRebuild measures a frame after an undo, which redraws
// every committed stroke.
func BenchmarkCompositorRebuild(b *testing.B) {
	const w, h = 512, 512
	entries := benchEntries(64, w, h)
	c := newCompositor(color.White, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fs := frameState{width: w, height: h, view: ViewportState{Scale: 1}, entries: entries, gen: uint64(i)}
		if _, err := c.compose(fs); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompose measures a steady frame with a valid cache and a stroke
// in progress. A frame must stay well under 16ms.
func BenchmarkCompose(b *testing.B) {
	const w, h = 800, 600
	views := []struct {
		name string
		view ViewportState
	}{
		{"identity", ViewportState{Scale: 1}},
		{"zoomed", ViewportState{Scale: 2.5, OffsetX: -400, OffsetY: -300}},
		{"zoomed_out", ViewportState{Scale: 0.5, OffsetX: 200, OffsetY: 150}},
	}
	entries := benchEntries(32, w, h)
	live := wave(128, w, h/2)
	pen := redPen(12)

	for _, v := range views {
		b.Run(v.name, func(b *testing.B) {
			c := newCompositor(color.White, nil)
			fs := frameState{
				width: w, height: h, view: v.view,
				entries: entries, live: live, liveBrush: pen,
			}
			if _, err := c.compose(fs); err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.compose(fs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// discardGestures ignores every gesture.
type discardGestures struct{}

func (discardGestures) OnActionDown(Point)               {}
func (discardGestures) OnSingleTapUp(Point)              {}
func (discardGestures) OnDrawPath(*Track)                {}
func (discardGestures) OnScaleStart(Point)               {}
func (discardGestures) OnScale(Scale, Offset)            {}
func (discardGestures) OnScaleEnd(Point)                 {}
func (discardGestures) OnPan(Point, Offset)              {}
func (discardGestures) OnActionUp(Point, bool, Velocity) {}
func (discardGestures) OnCancel()                        {}

func BenchmarkRecognizerDraw(b *testing.B) {
	r := NewRecognizer(DefaultConfig(), discardGestures{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		step := i % 256
		at := ms(step)
		switch step {
		case 0:
			r.Handle(ev(ActionDown, 0, 0, 0, at))
		case 255:
			r.Handle(ev(ActionUp, 0, float64(step), 10, at))
		default:
			r.Handle(ev(ActionMove, 0, float64(step), 10, at))
		}
	}
}
