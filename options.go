package sketch

import "image"

// Option configures a Canvas during creation.
//
// Example:
//
//	c, err := sketch.New(800, 600, target,
//	    sketch.WithBrush(sketch.NewEraser()),
//	    sketch.WithDispatcher(fyne.Do),
//	)
type Option func(*options)

// Dispatcher runs fn on the host's UI goroutine.
type Dispatcher func(fn func())

type options struct {
	config     Config
	clock      Clock
	dispatch   Dispatcher
	listener   ScaleListener
	brush      Brush
	background image.Image
}

func defaultOptions() options {
	return options{
		config:   DefaultConfig(),
		dispatch: func(fn func()) { fn() },
	}
}

// WithConfig replaces the default thresholds. The config is validated by New.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithClock sets the time source. Pointer event timestamps passed to
// HandleEvent must come from the same clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithDispatcher sets how scale notifications reach the UI goroutine.
// The default runs them inline on whichever goroutine raised them.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		if d != nil {
			o.dispatch = d
		}
	}
}

// WithScaleListener registers the scale-change listener.
func WithScaleListener(l ScaleListener) Option {
	return func(o *options) {
		o.listener = l
	}
}

// WithBrush sets the initial brush. The default is NewPen().
func WithBrush(b Brush) Option {
	return func(o *options) {
		o.brush = b
	}
}

// WithBackground sets the tile drawn behind the board where strokes have
// been erased or the board does not cover the surface. The default is a
// light checkerboard.
func WithBackground(tile image.Image) Option {
	return func(o *options) {
		o.background = tile
	}
}
