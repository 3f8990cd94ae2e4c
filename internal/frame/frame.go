package frame

import (
	"time"
)

// PixelFormat identifies the pixel encoding of a frame buffer
type PixelFormat string

const (
	Mono8  PixelFormat = "mono8"
	Mono16 PixelFormat = "mono16"
	RGB24  PixelFormat = "rgb24"
)

// BytesPerPixel returns the storage size of one pixel in this format
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case Mono8:
		return 1
	case Mono16:
		return 2
	case RGB24:
		return 3
	default:
		return 1
	}
}

// BitDepth returns the significant bits per sample for this format
func (f PixelFormat) BitDepth() int {
	switch f {
	case Mono16:
		return 16
	default:
		return 8
	}
}

// Frame is one captured image buffer.
// Ownership transfers to the recorder on submit: the producer must not
// modify Data afterwards.
type Frame struct {
	Width     int
	Height    int
	Format    PixelFormat
	Data      []byte
	Timestamp time.Time
}

// New allocates a zeroed frame for the given geometry
func New(width, height int, format PixelFormat) *Frame {
	return &Frame{
		Width:     width,
		Height:    height,
		Format:    format,
		Data:      make([]byte, width*height*format.BytesPerPixel()),
		Timestamp: time.Now(),
	}
}

// ByteSize returns the size of the pixel buffer in bytes
func (f *Frame) ByteSize() int64 {
	if f.Data != nil {
		return int64(len(f.Data))
	}
	return int64(f.Width * f.Height * f.Format.BytesPerPixel())
}
