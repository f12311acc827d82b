// Package sketch provides an interactive raster drawing surface.
//
// # Overview
//
// sketch turns a stream of multi-touch pointer events into freehand strokes
// on a zoomable, pannable canvas. It separates drawing from pinch-zoom,
// panning, tapping and flinging, keeps the viewport elastically bounded,
// records committed strokes in a linear undo/redo history and redraws the
// surface from a dedicated fixed-rate render goroutine.
//
// # Quick Start
//
//	target := sketch.NewImageTarget(gputypes.TextureFormatRGBA8Unorm)
//	c, err := sketch.New(800, 600, target)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	go c.Start(ctx)
//
//	// Feed pointer events from the host's input goroutine.
//	c.HandleEvent(sketch.PointerEvent{Action: sketch.ActionDown, X: 10, Y: 10, Time: c.Now()})
//
// # Architecture
//
// The package is organized into:
//   - Geometry: Point, Velocity, Offset, Scale
//   - Strokes: Track (midpoint quadratic smoothing), Brush (Pen, Eraser), Layer
//   - History: History, HistoryEntry
//   - Input: Recognizer, GestureListener, PointerEvent
//   - View: Viewport (elastic bounds, reconciliation and fling animation)
//   - Output: RenderTarget, ImageTarget, and the render loop run by Canvas.Start
//   - Facade: Canvas
//
// Rasterization uses github.com/gogpu/gg; the viewport blit uses
// golang.org/x/image/draw.
//
// # Coordinate System
//
// Screen space is the host surface in pixels. Canvas space is the drawing
// board. The viewport maps canvas to screen as
//
//	screen = canvas*scale + offset
//
// Origin (0,0) at top-left, X increases right, Y increases down.
//
// # Threading
//
// HandleEvent and the scale listener run on the host's input goroutine.
// Compositing runs on the render goroutine started by Canvas.Start. Scale
// notifications raised on the render goroutine are handed to the configured
// dispatcher so listeners always run where the host expects them.
package sketch
