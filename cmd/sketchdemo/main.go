// Command sketchdemo drives a sketch canvas with scripted gestures and
// saves the result as PNG images.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/sketch"
)

// scaleLog prints scale-change notifications.
type scaleLog struct {
	p *message.Printer
}

func (l scaleLog) OnScaleChangeStart(s float64) { l.p.Printf("zoom start  %.2fx\n", s) }
func (l scaleLog) OnScaleChange(float64)        {}
func (l scaleLog) OnScaleChangeEnd(s float64)   { l.p.Printf("zoom end    %.2fx\n", s) }

func main() {
	var (
		width   = flag.Int("width", 800, "surface width")
		height  = flag.Int("height", 600, "surface height")
		output  = flag.String("output", "sketch.png", "bitmap output file")
		frame   = flag.String("frame", "frame.png", "last rendered frame output file")
		verbose = flag.Bool("v", false, "log gesture and render events")
	)
	flag.Parse()

	if *verbose {
		sketch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	p := message.NewPrinter(language.English)

	target := sketch.NewImageTarget(gputypes.TextureFormatRGBA8Unorm)
	c, err := sketch.New(*width, *height, target, sketch.WithScaleListener(scaleLog{p}))
	if err != nil {
		log.Fatalf("Failed to create canvas: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	s := &script{c: c}
	w, h := float64(*width), float64(*height)

	// A wave across the board.
	var wave []sketch.Point
	for x := 40.0; x <= w-40; x += 12 {
		wave = append(wave, sketch.Pt(x, h/2+80*math.Sin(x/60)))
	}
	s.stroke(wave)

	// Dots along the top.
	for x := 60.0; x < w-40; x += 60 {
		s.tap(sketch.Pt(x, 60))
	}

	// Erase a band through the middle of the wave.
	pen := c.Brush()
	c.SetBrush(sketch.NewEraser())
	s.stroke([]sketch.Point{sketch.Pt(w/2, 100), sketch.Pt(w/2, h/2), sketch.Pt(w/2, h-100)})
	c.SetBrush(pen)

	// Zoom in about the center and draw at the new scale.
	s.pinch(sketch.Pt(w/2-50, h/2), sketch.Pt(w/2+50, h/2), 150)
	s.waitIdle()
	thick := sketch.NewPen()
	thick.SetWidth(6)
	c.SetBrush(thick)
	s.stroke([]sketch.Point{sketch.Pt(w/2-100, h/2-100), sketch.Pt(w/2, h/2-60), sketch.Pt(w/2+100, h/2-100)})

	// Zoom out past the minimum and let the view settle back.
	s.pinch(sketch.Pt(w/2-200, h/2), sketch.Pt(w/2+200, h/2), -350)
	s.waitIdle()

	// Undo and redo the last stroke.
	c.Undo()
	c.Redo()

	s.waitIdle()
	time.Sleep(50 * time.Millisecond)
	if img := target.Latest(); img != nil {
		if err := savePNG(*frame, img); err != nil {
			log.Fatalf("Failed to save frame: %v", err)
		}
	}

	bmp, err := c.Bitmap()
	if err != nil {
		log.Fatalf("Failed to render bitmap: %v", err)
	}
	if err := savePNG(*output, bmp); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		log.Fatalf("Render loop: %v", err)
	}
	_ = c.Close()

	p.Printf("%d strokes, %d frames presented\n", len(c.History()), target.Frames())
	p.Printf("Bitmap saved to %s (%dx%d), last frame to %s\n", *output, *width, *height, *frame)
}

// script feeds timed pointer events to a canvas.
type script struct {
	c *sketch.Canvas
}

const step = 8 * time.Millisecond

func (s *script) send(a sketch.Action, id int, p sketch.Point) {
	s.c.HandleEvent(sketch.PointerEvent{Action: a, ID: id, X: p.X, Y: p.Y, Time: s.c.Now()})
}

func (s *script) stroke(pts []sketch.Point) {
	s.send(sketch.ActionDown, 0, pts[0])
	for _, p := range pts[1:] {
		time.Sleep(step)
		s.send(sketch.ActionMove, 0, p)
	}
	time.Sleep(step)
	s.send(sketch.ActionUp, 0, pts[len(pts)-1])
	s.waitIdle()
}

func (s *script) tap(p sketch.Point) {
	s.send(sketch.ActionDown, 0, p)
	time.Sleep(time.Millisecond)
	s.send(sketch.ActionUp, 0, p)
}

// pinch spreads two pointers apart horizontally by spread pixels in total.
func (s *script) pinch(a, b sketch.Point, spread float64) {
	s.send(sketch.ActionDown, 0, a)
	s.send(sketch.ActionPointerDown, 1, b)
	const n = 10
	for i := 1; i <= n; i++ {
		time.Sleep(step)
		d := spread / 2 * float64(i) / n
		s.send(sketch.ActionMove, 0, sketch.Pt(a.X-d, a.Y))
		s.send(sketch.ActionMove, 1, sketch.Pt(b.X+d, b.Y))
	}
	d := spread / 2
	s.send(sketch.ActionPointerUp, 1, sketch.Pt(b.X+d, b.Y))
	s.send(sketch.ActionUp, 0, sketch.Pt(a.X-d, a.Y))
}

func (s *script) waitIdle() {
	deadline := time.Now().Add(2 * time.Second)
	for s.c.State() != sketch.StateIdle && time.Now().Before(deadline) {
		time.Sleep(step)
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
