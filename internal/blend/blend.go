// Package blend composites straight-alpha RGBA8 buffers.
//
// Buffers use the github.com/gogpu/gg Pixmap layout: 4 bytes per pixel in
// R, G, B, A order, color channels not premultiplied.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
package blend

import "image"

// Mode is a Porter-Duff compositing operator.
type Mode uint8

const (
	// ModeSourceOver paints source over destination. Result: S + D*(1-Sa)
	ModeSourceOver Mode = iota
	// ModeDestinationOut keeps destination where source is transparent. Result: D*(1-Sa)
	ModeDestinationOut
)

// String returns the operator name.
func (m Mode) String() string {
	switch m {
	case ModeSourceOver:
		return "SourceOver"
	case ModeDestinationOut:
		return "DestinationOut"
	default:
		return "Unknown"
	}
}

// Composite applies src onto dst with mode inside r. Both buffers are
// width pixels wide; r is clipped to the buffer.
func Composite(dst, src []uint8, width int, r image.Rectangle, mode Mode) {
	if width <= 0 {
		return
	}
	height := len(dst) / (4 * width)
	r = r.Intersect(image.Rect(0, 0, width, height))
	if r.Empty() || len(src) < len(dst) {
		return
	}

	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := (y*width + r.Min.X) * 4
		end := (y*width + r.Max.X) * 4
		for ; i < end; i += 4 {
			sa := src[i+3]
			if sa == 0 {
				continue
			}
			switch mode {
			case ModeDestinationOut:
				dst[i+3] = mulDiv255(dst[i+3], 255-sa)
			default:
				sourceOver(dst[i:i+4:i+4], src[i:i+4:i+4])
			}
		}
	}
}

// Clear zeroes the pixels of buf inside r.
func Clear(buf []uint8, width int, r image.Rectangle) {
	if width <= 0 {
		return
	}
	r = r.Intersect(image.Rect(0, 0, width, len(buf)/(4*width)))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		clear(buf[(y*width+r.Min.X)*4 : (y*width+r.Max.X)*4])
	}
}

// sourceOver blends one straight-alpha pixel over another in place.
func sourceOver(d, s []uint8) {
	sa := uint32(s[3])
	if sa == 255 {
		copy(d, s)
		return
	}
	da := uint32(d[3])
	// Alpha of the destination that remains visible, scaled to 0..65025.
	dw := da * (255 - sa)
	outA := sa*255 + dw
	if outA == 0 {
		return
	}
	for c := 0; c < 3; c++ {
		d[c] = uint8((uint32(s[c])*sa*255 + uint32(d[c])*dw + outA/2) / outA)
	}
	d[3] = uint8((outA + 127) / 255)
}
