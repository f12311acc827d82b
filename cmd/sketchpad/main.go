// Command sketchpad is a desktop drawing pad built on the sketch canvas.
//
// Drag with the primary button to draw. Scrolling zooms about the pointer.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/gogpu/gputypes"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/sketch"
)

const (
	// pinchSpan is the distance between the synthetic pointers of a scroll zoom.
	pinchSpan = 100
	// scrollZoom is the zoom factor of one scroll unit.
	scrollZoom = 1.01
)

// pad forwards mouse input to a sketch canvas and shows its frames.
type pad struct {
	widget.BaseWidget

	canvas *sketch.Canvas
	image  *fynecanvas.Image
	down   bool
}

var (
	_ fyne.Widget       = (*pad)(nil)
	_ fyne.Draggable    = (*pad)(nil)
	_ fyne.Scrollable   = (*pad)(nil)
	_ desktop.Mouseable = (*pad)(nil)
)

func newPad(c *sketch.Canvas, target *sketch.ImageTarget) *pad {
	p := &pad{canvas: c, image: fynecanvas.NewImageFromImage(nil)}
	p.image.FillMode = fynecanvas.ImageFillOriginal
	p.image.ScaleMode = fynecanvas.ImageScalePixels
	target.OnPresent(func() {
		frame := target.Latest()
		fyne.Do(func() {
			p.image.Image = frame
			p.image.Refresh()
		})
	})
	p.ExtendBaseWidget(p)
	return p
}

func (p *pad) send(a sketch.Action, id int, pos fyne.Position) {
	p.canvas.HandleEvent(sketch.PointerEvent{
		Action: a,
		ID:     id,
		X:      float64(pos.X),
		Y:      float64(pos.Y),
		Time:   p.canvas.Now(),
	})
}

func (p *pad) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p.down = true
	p.send(sketch.ActionDown, 0, e.Position)
}

func (p *pad) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary || !p.down {
		return
	}
	p.down = false
	p.send(sketch.ActionUp, 0, e.Position)
}

func (p *pad) Dragged(e *fyne.DragEvent) {
	if p.down {
		p.send(sketch.ActionMove, 0, e.Position)
	}
}

func (p *pad) DragEnd() {}

// Scrolled zooms by replaying the scroll as a short two-finger pinch
// centered on the pointer.
func (p *pad) Scrolled(e *fyne.ScrollEvent) {
	if p.down || e.Scrolled.DY == 0 {
		return
	}
	f := float32(1)
	for i := float32(0); i < abs(e.Scrolled.DY); i++ {
		if e.Scrolled.DY > 0 {
			f *= scrollZoom
		} else {
			f /= scrollZoom
		}
	}
	c := e.Position
	half := float32(pinchSpan / 2)
	p.send(sketch.ActionDown, 0, c.SubtractXY(half, 0))
	p.send(sketch.ActionPointerDown, 1, c.AddXY(half, 0))
	p.send(sketch.ActionMove, 0, c.SubtractXY(half*f, 0))
	p.send(sketch.ActionMove, 1, c.AddXY(half*f, 0))
	p.send(sketch.ActionPointerUp, 1, c.AddXY(half*f, 0))
	p.send(sketch.ActionUp, 0, c.SubtractXY(half*f, 0))
}

func (p *pad) Resize(size fyne.Size) {
	p.BaseWidget.Resize(size)
	w, h := int(size.Width), int(size.Height)
	if w > 0 && h > 0 {
		if err := p.canvas.Resize(w, h); err != nil {
			slog.Warn("resize failed", "err", err)
		}
	}
}

func (p *pad) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.image)
}

func (p *pad) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// zoomLabel shows the current zoom level.
type zoomLabel struct {
	label   *widget.Label
	printer *message.Printer
}

func (z zoomLabel) set(s float64) {
	z.label.SetText(z.printer.Sprintf("Zoom %.0f%%", s*100))
}

func (z zoomLabel) OnScaleChangeStart(s float64) { z.set(s) }
func (z zoomLabel) OnScaleChange(s float64)      { z.set(s) }
func (z zoomLabel) OnScaleChangeEnd(s float64)   { z.set(s) }

func main() {
	var (
		width   = flag.Int("width", 1024, "initial canvas width")
		height  = flag.Int("height", 768, "initial canvas height")
		maxZoom = flag.Float64("max-zoom", 6, "maximum zoom")
		output  = flag.String("output", "sketch.png", "file written by the save action")
		verbose = flag.Bool("v", false, "log gesture and render events")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	sketch.SetLogger(logger)

	a := app.New()
	w := a.NewWindow("Sketchpad")

	zoom := zoomLabel{label: widget.NewLabel(""), printer: message.NewPrinter(language.English)}
	zoom.set(1)

	target := sketch.NewImageTarget(gputypes.TextureFormatRGBA8Unorm)
	c, err := sketch.New(*width, *height, target,
		sketch.WithDispatcher(fyne.Do),
		sketch.WithScaleListener(zoom),
	)
	if err != nil {
		log.Fatalf("Failed to create canvas: %v", err)
	}
	c.SetMaxScale(*maxZoom)

	pen := sketch.NewPen()
	eraser := sketch.NewEraser()
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() { c.SetBrush(pen) }),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() { c.SetBrush(eraser) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { c.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { c.Redo() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DeleteIcon(), func() {
			c.Reset()
			zoom.set(1)
		}),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			if err := save(c, *output); err != nil {
				slog.Error("save failed", "err", err)
				return
			}
			slog.Info("bitmap saved", "path", *output)
		}),
	)

	p := newPad(c, target)
	w.SetContent(container.NewBorder(toolbar, zoom.label, nil, nil, p))
	w.Resize(fyne.NewSize(float32(*width), float32(*height)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := c.Start(ctx); err != nil {
			slog.Error("render loop stopped", "err", err)
		}
	}()
	// Fires the tap timeout while a pointer is held still.
	go func() {
		t := time.NewTicker(20 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Poll()
			}
		}
	}()

	w.SetOnClosed(func() {
		cancel()
		_ = c.Close()
	})
	w.ShowAndRun()
}

func save(c *sketch.Canvas, path string) error {
	img, err := c.Bitmap()
	if err != nil {
		return err
	}
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
