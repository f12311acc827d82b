package blend

import (
	"image"
	"testing"
)

func TestMulDiv255(t *testing.T) {
	tests := []struct {
		a, b byte
		want byte
	}{
		{0, 0, 0},
		{255, 255, 255},
		{0, 255, 0},
		{255, 0, 0},
		{128, 128, 64},
		{200, 100, 78},
		{1, 255, 1},
		{255, 1, 1},
	}
	for _, tt := range tests {
		if got := mulDiv255(tt.a, tt.b); got != tt.want {
			t.Errorf("mulDiv255(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDiv255Exact(t *testing.T) {
	for x := 0; x <= 255*255; x++ {
		if got := int(div255(uint16(x))); got != x/255 {
			t.Fatalf("div255(%d) = %d, want %d", x, got, x/255)
		}
	}
}

func pixels(n int, r, g, b, a uint8) []uint8 {
	buf := make([]uint8, n*4)
	for i := 0; i < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = r, g, b, a
	}
	return buf
}

func TestComposite(t *testing.T) {
	tests := []struct {
		name string
		dst  [4]uint8
		src  [4]uint8
		mode Mode
		want [4]uint8
	}{
		{"over opaque", [4]uint8{255, 255, 255, 255}, [4]uint8{10, 20, 30, 255}, ModeSourceOver, [4]uint8{10, 20, 30, 255}},
		{"over transparent src", [4]uint8{1, 2, 3, 200}, [4]uint8{90, 90, 90, 0}, ModeSourceOver, [4]uint8{1, 2, 3, 200}},
		{"over half onto white", [4]uint8{255, 255, 255, 255}, [4]uint8{0, 0, 0, 128}, ModeSourceOver, [4]uint8{127, 127, 127, 255}},
		{"over onto empty", [4]uint8{0, 0, 0, 0}, [4]uint8{40, 50, 60, 100}, ModeSourceOver, [4]uint8{40, 50, 60, 100}},
		{"out opaque", [4]uint8{255, 255, 255, 255}, [4]uint8{0, 0, 0, 255}, ModeDestinationOut, [4]uint8{255, 255, 255, 0}},
		{"out half", [4]uint8{255, 255, 255, 255}, [4]uint8{0, 0, 0, 128}, ModeDestinationOut, [4]uint8{255, 255, 255, 127}},
		{"out transparent src", [4]uint8{9, 9, 9, 255}, [4]uint8{0, 0, 0, 0}, ModeDestinationOut, [4]uint8{9, 9, 9, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := tt.dst[:]
			src := tt.src[:]
			Composite(dst, src, 1, image.Rect(0, 0, 1, 1), tt.mode)
			if [4]uint8(dst) != tt.want {
				t.Errorf("Composite(%v) = %v, want %v", tt.mode, dst, tt.want)
			}
		})
	}
}

func TestCompositeClipsToRect(t *testing.T) {
	dst := pixels(4, 255, 255, 255, 255) // 2x2
	src := pixels(4, 0, 0, 0, 255)
	Composite(dst, src, 2, image.Rect(1, 0, 5, 1), ModeDestinationOut)

	wantAlpha := []uint8{255, 0, 255, 255}
	for i, want := range wantAlpha {
		if got := dst[i*4+3]; got != want {
			t.Errorf("pixel %d alpha = %d, want %d", i, got, want)
		}
	}
}

func TestClear(t *testing.T) {
	buf := pixels(9, 1, 1, 1, 1) // 3x3
	Clear(buf, 3, image.Rect(1, 1, 10, 10))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			a := buf[(y*3+x)*4+3]
			cleared := x >= 1 && y >= 1
			if cleared != (a == 0) {
				t.Errorf("pixel (%d,%d) alpha = %d, cleared = %v", x, y, a, cleared)
			}
		}
	}
}
