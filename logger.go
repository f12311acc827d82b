package sketch

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// silentHandler drops all records and reports every level disabled.
type silentHandler struct{}

func (silentHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (silentHandler) Handle(context.Context, slog.Record) error { return nil }
func (h silentHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h silentHandler) WithGroup(string) slog.Handler           { return h }

var silent = slog.New(silentHandler{})

// current is shared by the input and render goroutines.
var current atomic.Pointer[slog.Logger]

func init() { current.Store(silent) }

// SetLogger configures the logger used by sketch and its sub-packages.
// By default sketch produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by sketch:
//   - [slog.LevelDebug]: gesture state transitions, ignored pointer events
//   - [slog.LevelInfo]: render loop start and stop, surface resize
//   - [slog.LevelWarn]: skipped frames, rejected non-finite geometry
//
// Example:
//
//	sketch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return current.Load()
}
