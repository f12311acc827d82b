package sketch

import (
	"fmt"
	"image/color"

	"github.com/gogpu/gg"

	"github.com/gogpu/sketch/internal/blend"
)

// CompositeMode selects how a brush combines with what is already drawn.
type CompositeMode uint8

const (
	// CompositeSourceOver paints over existing content.
	CompositeSourceOver CompositeMode = iota
	// CompositeDestinationOut removes existing content under the stroke.
	CompositeDestinationOut
)

// String returns the mode name.
func (m CompositeMode) String() string {
	return m.blendMode().String()
}

func (m CompositeMode) blendMode() blend.Mode {
	if m == CompositeDestinationOut {
		return blend.ModeDestinationOut
	}
	return blend.ModeSourceOver
}

// Default brush parameters.
const (
	DefaultPenWidth    = 16
	DefaultEraserWidth = 32
)

// DefaultPenColor is the color of NewPen.
var DefaultPenColor color.Color = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}

// Brush renders a Track into a Layer.
//
// Brushes are mutable. Anything that must not observe later changes, such
// as a committed history entry, holds its own Clone.
type Brush interface {
	Color() color.Color
	SetColor(c color.Color)
	Width() float64
	SetWidth(w float64)
	Mode() CompositeMode
	// DrawTrack draws t into dst. Empty tracks draw nothing.
	DrawTrack(dst *Layer, t *Track) error
	// Clone returns an independent copy.
	Clone() Brush
}

// stroke holds the parameters shared by brushes.
type stroke struct {
	color color.Color
	width float64
	cap   gg.LineCap
}

func (s *stroke) Color() color.Color { return s.color }

func (s *stroke) SetColor(c color.Color) {
	if c != nil {
		s.color = c
	}
}

func (s *stroke) Width() float64 { return s.width }

func (s *stroke) SetWidth(w float64) {
	if w > 0 && finite(w) {
		s.width = w
	}
}

// Cap returns the line cap. Brushes start with gg.LineCapRound.
func (s *stroke) Cap() gg.LineCap { return s.cap }

// SetCap sets the line cap. Unknown caps are ignored.
func (s *stroke) SetCap(c gg.LineCap) {
	switch c {
	case gg.LineCapButt, gg.LineCapRound, gg.LineCapSquare:
		s.cap = c
	}
}

// draw rasterizes t with round joins and the brush cap. A track whose
// stations all coincide, such as a tap, becomes a dot of the stroke width
// shaped by the cap; a butt cap leaves it invisible.
func (s *stroke) draw(dst *Layer, t *Track, col color.Color, mode CompositeMode) error {
	if dst == nil || t == nil || t.IsEmpty() {
		return nil
	}
	lo, hi := t.Bounds()
	r := strokeBounds(lo, hi, s.width)

	err := dst.paint(r, mode.blendMode(), func(dc *gg.Context) error {
		dc.SetStrokeBrush(gg.Solid(straight(col)))
		if t.Length() < 1e-6 {
			switch s.cap {
			case gg.LineCapRound:
				dc.DrawCircle(lo.X, lo.Y, s.width/2)
			case gg.LineCapSquare:
				dc.DrawRectangle(lo.X-s.width/2, lo.Y-s.width/2, s.width, s.width)
			default:
				return nil
			}
			return dc.Fill()
		}
		dc.SetLineWidth(s.width)
		dc.SetLineCap(s.cap)
		dc.SetLineJoin(gg.LineJoinRound)
		tracePath(dc, t.path)
		return dc.Stroke()
	})
	if err != nil {
		return fmt.Errorf("sketch: draw track: %w", err)
	}
	return nil
}

// tracePath replays p onto the context's current path.
func tracePath(dc *gg.Context, p *gg.Path) {
	for _, el := range p.Elements() {
		switch e := el.(type) {
		case gg.MoveTo:
			dc.MoveTo(e.Point.X, e.Point.Y)
		case gg.LineTo:
			dc.LineTo(e.Point.X, e.Point.Y)
		case gg.QuadTo:
			dc.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
		}
	}
}

// Pen draws opaque round strokes over existing content.
type Pen struct {
	stroke
}

// NewPen returns a gray pen of width DefaultPenWidth.
func NewPen() *Pen {
	return &Pen{stroke{color: DefaultPenColor, width: DefaultPenWidth, cap: gg.LineCapRound}}
}

// Mode returns CompositeSourceOver.
func (p *Pen) Mode() CompositeMode { return CompositeSourceOver }

// DrawTrack implements Brush.
func (p *Pen) DrawTrack(dst *Layer, t *Track) error {
	return p.draw(dst, t, p.color, CompositeSourceOver)
}

// Clone implements Brush.
func (p *Pen) Clone() Brush {
	c := *p
	return &c
}

// Eraser removes content under its stroke, revealing whatever is composited
// beneath the layer. Its color is recorded but does not affect the result.
type Eraser struct {
	stroke
}

// NewEraser returns an eraser of width DefaultEraserWidth.
func NewEraser() *Eraser {
	return &Eraser{stroke{color: color.Black, width: DefaultEraserWidth, cap: gg.LineCapRound}}
}

// Mode returns CompositeDestinationOut.
func (e *Eraser) Mode() CompositeMode { return CompositeDestinationOut }

// DrawTrack implements Brush.
func (e *Eraser) DrawTrack(dst *Layer, t *Track) error {
	return e.draw(dst, t, color.Black, CompositeDestinationOut)
}

// Clone implements Brush.
func (e *Eraser) Clone() Brush {
	c := *e
	return &c
}
