package frame

import (
	"testing"
)

func TestPixelFormatSizes(t *testing.T) {
	cases := []struct {
		format PixelFormat
		bpp    int
		depth  int
	}{
		{Mono8, 1, 8},
		{Mono16, 2, 16},
		{RGB24, 3, 8},
	}
	for _, tc := range cases {
		if got := tc.format.BytesPerPixel(); got != tc.bpp {
			t.Errorf("%s BytesPerPixel: expected %d, got %d", tc.format, tc.bpp, got)
		}
		if got := tc.format.BitDepth(); got != tc.depth {
			t.Errorf("%s BitDepth: expected %d, got %d", tc.format, tc.depth, got)
		}
	}
}

func TestFrameByteSize(t *testing.T) {
	f := New(640, 480, Mono16)
	if got := f.ByteSize(); got != 640*480*2 {
		t.Errorf("ByteSize: expected %d, got %d", 640*480*2, got)
	}
	if len(f.Data) != 640*480*2 {
		t.Errorf("Data length: expected %d, got %d", 640*480*2, len(f.Data))
	}
	if f.Timestamp.IsZero() {
		t.Error("New frame missing capture timestamp")
	}
}
