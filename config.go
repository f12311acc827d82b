package sketch

import (
	"errors"
	"fmt"
	"image/color"
	"time"
)

// Errors returned by sketch.
var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("sketch: invalid config")

	// ErrInvalidSize is returned for non-positive surface dimensions.
	ErrInvalidSize = errors.New("sketch: invalid surface size")

	// ErrNilTarget is returned when a Canvas is created without a render target.
	ErrNilTarget = errors.New("sketch: nil render target")

	// ErrUnsupportedFormat is returned for render targets whose pixel
	// format frames cannot be encoded in.
	ErrUnsupportedFormat = errors.New("sketch: unsupported target format")

	// ErrClosed is returned by operations on a closed Canvas or RenderLoop.
	ErrClosed = errors.New("sketch: closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("sketch: already started")
)

// Config holds the tunable thresholds of the drawing surface.
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	// TapTimeout is how long the first pointer may stay down before the
	// gesture is committed to drawing.
	TapTimeout time.Duration

	// TouchSlop is the distance in pixels a pointer may travel before it
	// counts as movement.
	TouchSlop float64

	// PanConfirmTimeout is how long a pointer left over from a pinch must
	// stay down before the gesture becomes a pan.
	PanConfirmTimeout time.Duration

	// MinFlingVelocity and MaxFlingVelocity bound the release velocity in
	// pixels per second.
	MinFlingVelocity float64
	MaxFlingVelocity float64

	// VelocityWindow is the age of the oldest sample used for velocity.
	VelocityWindow time.Duration

	// Damping divides movement that pushes the viewport further out of bounds.
	Damping float64

	// AnimationDuration is the length of a bounds reconciliation animation.
	AnimationDuration time.Duration

	// FlingDeceleration is in pixels per second squared.
	FlingDeceleration float64

	// FrameInterval is the render loop period.
	FrameInterval time.Duration

	MinScale float64
	MaxScale float64

	// BoardColor fills the cache layer beneath all strokes.
	BoardColor color.Color
}

// DefaultConfig returns the default thresholds: 60 frames per second,
// scale bounds [1, 6] and a white board.
func DefaultConfig() Config {
	return Config{
		TapTimeout:        100 * time.Millisecond,
		TouchSlop:         8,
		PanConfirmTimeout: 100 * time.Millisecond,
		MinFlingVelocity:  50,
		MaxFlingVelocity:  8000,
		VelocityWindow:    100 * time.Millisecond,
		Damping:           4,
		AnimationDuration: 250 * time.Millisecond,
		FlingDeceleration: 4000,
		FrameInterval:     time.Second / 60,
		MinScale:          1,
		MaxScale:          6,
		BoardColor:        color.White,
	}
}

// Validate reports the first invalid field, wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.TapTimeout <= 0:
		return fmt.Errorf("%w: tap timeout %v must be positive", ErrInvalidConfig, c.TapTimeout)
	case c.TouchSlop < 0 || !finite(c.TouchSlop):
		return fmt.Errorf("%w: touch slop %v", ErrInvalidConfig, c.TouchSlop)
	case c.PanConfirmTimeout <= 0:
		return fmt.Errorf("%w: pan confirm timeout %v must be positive", ErrInvalidConfig, c.PanConfirmTimeout)
	case c.MinFlingVelocity < 0 || c.MaxFlingVelocity < c.MinFlingVelocity:
		return fmt.Errorf("%w: fling velocity range [%v, %v]", ErrInvalidConfig, c.MinFlingVelocity, c.MaxFlingVelocity)
	case c.VelocityWindow <= 0:
		return fmt.Errorf("%w: velocity window %v must be positive", ErrInvalidConfig, c.VelocityWindow)
	case c.Damping < 1 || !finite(c.Damping):
		return fmt.Errorf("%w: damping %v must be at least 1", ErrInvalidConfig, c.Damping)
	case c.AnimationDuration <= 0:
		return fmt.Errorf("%w: animation duration %v must be positive", ErrInvalidConfig, c.AnimationDuration)
	case c.FlingDeceleration <= 0 || !finite(c.FlingDeceleration):
		return fmt.Errorf("%w: fling deceleration %v must be positive", ErrInvalidConfig, c.FlingDeceleration)
	case c.FrameInterval <= 0:
		return fmt.Errorf("%w: frame interval %v must be positive", ErrInvalidConfig, c.FrameInterval)
	case c.MinScale < 0 || c.MinScale > 1 || !finite(c.MinScale):
		return fmt.Errorf("%w: min scale %v must be in [0, 1]", ErrInvalidConfig, c.MinScale)
	case c.MaxScale < 1 || !finite(c.MaxScale):
		return fmt.Errorf("%w: max scale %v must be at least 1", ErrInvalidConfig, c.MaxScale)
	case c.BoardColor == nil:
		return fmt.Errorf("%w: nil board color", ErrInvalidConfig)
	}
	return nil
}
