package sketch

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"
)

// frameSource produces frames for the render loop.
type frameSource interface {
	// busy reports whether frames must be rendered continuously, as while
	// drawing, scaling, panning or animating.
	busy() bool
	// renderFrame advances animations to now and composes a frame.
	renderFrame(now time.Duration) (*image.RGBA, error)
}

// renderLoop renders frames from a source at a fixed interval on its own
// goroutine.
//
// While the source is idle the loop blocks until invalidate is called.
// A frame that panics or fails is logged and skipped; the loop keeps
// running.
type renderLoop struct {
	interval time.Duration
	clock    Clock
	source   frameSource
	target   RenderTarget

	out     *image.RGBA
	wake    chan struct{}
	dirty   atomic.Bool
	running atomic.Bool
	frames  atomic.Uint64
	skipped atomic.Uint64
}

func newRenderLoop(interval time.Duration, clock Clock, source frameSource, target RenderTarget) *renderLoop {
	return &renderLoop{
		interval: interval,
		clock:    clock,
		source:   source,
		target:   target,
		wake:     make(chan struct{}, 1),
	}
}

// invalidate requests one more frame even if the source is idle.
func (l *renderLoop) invalidate() {
	l.dirty.Store(true)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// run renders until ctx is done. It returns ErrAlreadyStarted if the loop
// is already running.
func (l *renderLoop) run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer l.running.Store(false)

	log := Logger()
	log.Info("sketch: render loop started", "interval", l.interval)
	defer log.Info("sketch: render loop stopped", "frames", l.frames.Load(), "skipped", l.skipped.Load())

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		if !l.source.busy() && !l.dirty.Swap(false) {
			select {
			case <-ctx.Done():
				return nil
			case <-l.wake:
				continue
			}
		}

		start := time.Now()
		l.frame(l.clock.Now())

		remaining := l.interval - time.Since(start)
		if remaining <= 0 {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		timer.Reset(remaining)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (l *renderLoop) frame(now time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			l.skipped.Add(1)
			Logger().Warn("sketch: frame panicked, skipped", "panic", fmt.Sprint(r))
		}
	}()

	img, err := l.source.renderFrame(now)
	if err != nil {
		l.skipped.Add(1)
		Logger().Warn("sketch: frame failed, skipped", "err", err)
		return
	}
	l.out = encodeFrame(l.out, img, l.target.Format())
	if err := l.target.Present(l.out); err != nil {
		l.skipped.Add(1)
		Logger().Warn("sketch: present failed", "err", err)
		return
	}
	l.frames.Add(1)
}
