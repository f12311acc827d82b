package sketch

import (
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// frameState is everything the compositor needs for one frame. It is
// captured under the canvas lock and is immutable afterwards.
type frameState struct {
	width, height int
	view          ViewportState
	entries       []HistoryEntry
	gen           uint64
	live          *Track
	liveBrush     Brush
}

// compositor owns the render goroutine's layers.
//
// The cache layer holds the board and every committed stroke. It is
// extended incrementally as strokes are committed and rebuilt from the
// history when entries are removed or restored. The working layer is the
// cache plus the stroke in progress.
type compositor struct {
	board      color.Color
	background image.Image

	cache *Layer
	work  *Layer
	frame *image.RGBA

	valid      bool
	drawnGen   uint64
	drawnCount int
}

func newCompositor(board color.Color, background image.Image) *compositor {
	if background == nil {
		background = checkerboard(16, color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}, color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff})
	}
	return &compositor{board: board, background: background}
}

// compose renders fs into the frame buffer and returns it. The returned
// image is reused by the next call.
func (c *compositor) compose(fs frameState) (*image.RGBA, error) {
	if err := c.ensureSize(fs.width, fs.height); err != nil {
		return nil, err
	}
	if err := c.updateCache(fs.entries, fs.gen); err != nil {
		return nil, err
	}

	src := c.cache
	if fs.live != nil && !fs.live.IsEmpty() && fs.liveBrush != nil {
		c.work.CopyFrom(c.cache)
		if err := fs.liveBrush.DrawTrack(c.work, fs.live); err != nil {
			return nil, fmt.Errorf("sketch: draw live stroke: %w", err)
		}
		src = c.work
	}

	drawTiled(c.frame, c.background)
	blit(c.frame, src, fs.view)
	return c.frame, nil
}

func (c *compositor) ensureSize(w, h int) error {
	if c.cache != nil && c.cache.Width() == w && c.cache.Height() == h {
		return nil
	}
	if c.cache == nil {
		var err error
		if c.cache, err = NewLayer(w, h); err != nil {
			return err
		}
		if c.work, err = NewLayer(w, h); err != nil {
			return err
		}
	} else {
		if err := c.cache.Resize(w, h); err != nil {
			return err
		}
		if err := c.work.Resize(w, h); err != nil {
			return err
		}
	}
	c.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	c.valid = false
	Logger().Info("sketch: compositor resized", "width", w, "height", h)
	return nil
}

func (c *compositor) updateCache(entries []HistoryEntry, gen uint64) error {
	if c.valid && gen == c.drawnGen && len(entries) >= c.drawnCount {
		if err := drawEntries(c.cache, entries[c.drawnCount:]); err != nil {
			return err
		}
		c.drawnCount = len(entries)
		return nil
	}

	c.cache.Fill(c.board)
	c.valid = false
	if err := drawEntries(c.cache, entries); err != nil {
		return err
	}
	c.valid = true
	c.drawnGen = gen
	c.drawnCount = len(entries)
	return nil
}

// drawEntries draws committed strokes oldest first.
func drawEntries(dst *Layer, entries []HistoryEntry) error {
	for _, e := range entries {
		if err := e.Brush.DrawTrack(dst, e.Track); err != nil {
			return fmt.Errorf("sketch: redraw entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// renderBoard draws the board and entries into a new layer at 1:1.
func renderBoard(w, h int, board color.Color, entries []HistoryEntry) (*Layer, error) {
	l, err := NewLayer(w, h)
	if err != nil {
		return nil, err
	}
	l.Fill(board)
	if err := drawEntries(l, entries); err != nil {
		return nil, err
	}
	return l, nil
}

// blit draws src onto dst through the viewport transform.
func blit(dst *image.RGBA, src *Layer, view ViewportState) {
	img := src.NRGBA()
	if view.Scale == 1 && view.OffsetX == math.Trunc(view.OffsetX) && view.OffsetY == math.Trunc(view.OffsetY) {
		off := image.Pt(int(view.OffsetX), int(view.OffsetY))
		xdraw.Draw(dst, img.Bounds().Add(off), img, image.Point{}, xdraw.Over)
		return
	}
	aff := f64.Aff3{
		view.Scale, 0, view.OffsetX,
		0, view.Scale, view.OffsetY,
	}
	xdraw.ApproxBiLinear.Transform(dst, aff, img, img.Bounds(), xdraw.Over, nil)
}

// drawTiled covers dst with copies of tile.
func drawTiled(dst *image.RGBA, tile image.Image) {
	tb := tile.Bounds()
	if tb.Empty() {
		return
	}
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += tb.Dy() {
		for x := b.Min.X; x < b.Max.X; x += tb.Dx() {
			r := image.Rect(x, y, x+tb.Dx(), y+tb.Dy())
			xdraw.Draw(dst, r, tile, tb.Min, xdraw.Src)
		}
	}
}

// checkerboard returns a 2x2-cell tile with cells of the given size.
func checkerboard(cell int, a, b color.Color) image.Image {
	tile := image.NewRGBA(image.Rect(0, 0, 2*cell, 2*cell))
	xdraw.Draw(tile, tile.Bounds(), image.NewUniform(a), image.Point{}, xdraw.Src)
	ub := image.NewUniform(b)
	xdraw.Draw(tile, image.Rect(cell, 0, 2*cell, cell), ub, image.Point{}, xdraw.Src)
	xdraw.Draw(tile, image.Rect(0, cell, cell, 2*cell), ub, image.Point{}, xdraw.Src)
	return tile
}
