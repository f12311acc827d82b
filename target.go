package sketch

import (
	"errors"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
)

// RenderTarget receives composed frames from the render goroutine.
//
// Present is called once per rendered frame with an image owned by the
// render loop; implementations must copy what they keep before returning.
type RenderTarget interface {
	// Format returns the pixel layout the target expects. Frames are
	// delivered in RGBA order for TextureFormatRGBA8Unorm and in BGRA order
	// for TextureFormatBGRA8Unorm, premultiplied in both cases.
	Format() gputypes.TextureFormat

	// Present consumes one frame, already encoded in Format order.
	Present(frame *image.RGBA) error
}

// supportedFormat reports whether frames can be encoded for f.
func supportedFormat(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatRGBA8Unorm || f == gputypes.TextureFormatBGRA8Unorm
}

// encodeFrame writes src into dst in format f. dst is reallocated when its
// size differs from src.
func encodeFrame(dst *image.RGBA, src *image.RGBA, f gputypes.TextureFormat) *image.RGBA {
	if dst == nil || dst.Rect != src.Rect {
		dst = image.NewRGBA(src.Rect)
	}
	copy(dst.Pix, src.Pix)
	if f == gputypes.TextureFormatBGRA8Unorm {
		swizzleRB(dst.Pix)
	}
	return dst
}

func swizzleRB(pix []uint8) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

// ImageTarget is a CPU render target that keeps the latest frame.
//
// Example:
//
//	target := sketch.NewImageTarget(gputypes.TextureFormatRGBA8Unorm)
//	c, _ := sketch.New(800, 600, target)
//	...
//	img := target.Latest()
type ImageTarget struct {
	format gputypes.TextureFormat

	mu     sync.Mutex
	latest *image.RGBA
	frames uint64
	notify func()
}

// NewImageTarget returns an empty target that stores frames in format.
func NewImageTarget(format gputypes.TextureFormat) *ImageTarget {
	return &ImageTarget{format: format}
}

// Format implements RenderTarget.
func (t *ImageTarget) Format() gputypes.TextureFormat {
	return t.format
}

// OnPresent registers fn to be called after each frame is stored. fn runs
// on the render goroutine.
func (t *ImageTarget) OnPresent(fn func()) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}

// Present implements RenderTarget.
func (t *ImageTarget) Present(frame *image.RGBA) error {
	if frame == nil {
		return errors.New("sketch: present nil frame")
	}
	t.mu.Lock()
	if t.latest == nil || t.latest.Rect != frame.Rect {
		t.latest = image.NewRGBA(frame.Rect)
	}
	copy(t.latest.Pix, frame.Pix)
	t.frames++
	fn := t.notify
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// Latest returns a copy of the most recent frame, or nil before the first.
func (t *ImageTarget) Latest() *image.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return nil
	}
	out := image.NewRGBA(t.latest.Rect)
	copy(out.Pix, t.latest.Pix)
	return out
}

// Frames returns how many frames have been presented.
func (t *ImageTarget) Frames() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}
