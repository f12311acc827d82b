package sketch

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/sketch/internal/blend"
)

// Layer is an off-screen RGBA raster that brushes draw into.
//
// Pixels are stored in the github.com/gogpu/gg Pixmap layout: straight
// (non-premultiplied) RGBA, 4 bytes per pixel. Layer is not safe for
// concurrent use.
type Layer struct {
	dc *gg.Context
	// scratch receives one stroke at a time before it is composited
	// into dc with the brush's mode. Allocated on first use.
	scratch *gg.Context
}

// NewLayer returns a transparent layer of the given size.
func NewLayer(width, height int) (*Layer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &Layer{dc: gg.NewContext(width, height)}, nil
}

// Width returns the layer width in pixels.
func (l *Layer) Width() int { return l.dc.Width() }

// Height returns the layer height in pixels.
func (l *Layer) Height() int { return l.dc.Height() }

// Bounds returns the layer rectangle.
func (l *Layer) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width(), l.Height())
}

// Pix returns the layer's pixel buffer. It is shared, not copied.
func (l *Layer) Pix() []uint8 {
	return l.dc.ResizeTarget().Data()
}

// Fill sets every pixel to c.
func (l *Layer) Fill(c color.Color) {
	l.dc.ClearWithColor(straight(c))
}

// Clear makes every pixel transparent.
func (l *Layer) Clear() {
	l.dc.Clear()
}

// CopyFrom replaces the contents of l with those of src. Layers of
// different sizes copy their overlapping top-left region.
func (l *Layer) CopyFrom(src *Layer) {
	if l.Width() == src.Width() && l.Height() == src.Height() {
		copy(l.Pix(), src.Pix())
		return
	}
	l.Clear()
	xdraw.Draw(l.NRGBA(), l.Bounds(), src.NRGBA(), image.Point{}, xdraw.Src)
}

// Resize changes the layer size. Contents are discarded.
func (l *Layer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if err := l.dc.Resize(width, height); err != nil {
		return fmt.Errorf("sketch: resize layer: %w", err)
	}
	l.scratch = nil
	return nil
}

// NRGBA returns an image view of the layer. The view shares the layer's
// pixels and reflects later drawing.
func (l *Layer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    l.Pix(),
		Stride: l.Width() * 4,
		Rect:   l.Bounds(),
	}
}

// Image returns a premultiplied copy of the layer.
func (l *Layer) Image() *image.RGBA {
	img := image.NewRGBA(l.Bounds())
	xdraw.Draw(img, img.Bounds(), l.NRGBA(), image.Point{}, xdraw.Src)
	return img
}

// paint draws one shape into the scratch context with fn and composites
// the pixels inside r onto the layer with mode.
func (l *Layer) paint(r image.Rectangle, mode blend.Mode, fn func(dc *gg.Context) error) error {
	r = r.Intersect(l.Bounds())
	if r.Empty() {
		return nil
	}
	if l.scratch == nil {
		l.scratch = gg.NewContext(l.Width(), l.Height())
	}
	scratch := l.scratch.ResizeTarget().Data()
	blend.Clear(scratch, l.Width(), r)
	if err := fn(l.scratch); err != nil {
		return err
	}
	blend.Composite(l.Pix(), scratch, l.Width(), r, mode)
	return nil
}

// straight converts c to a gg color with straight alpha.
func straight(c color.Color) gg.RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return gg.RGBA2(float64(n.R)/255, float64(n.G)/255, float64(n.B)/255, float64(n.A)/255)
}

// strokeBounds returns the pixel rectangle covered by a shape spanning
// lo..hi drawn with the given line width and any cap.
func strokeBounds(lo, hi Point, width float64) image.Rectangle {
	pad := width*math.Sqrt2/2 + 2
	return image.Rect(
		int(math.Floor(lo.X-pad)), int(math.Floor(lo.Y-pad)),
		int(math.Ceil(hi.X+pad)), int(math.Ceil(hi.Y+pad)),
	)
}
