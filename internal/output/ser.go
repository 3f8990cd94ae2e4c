package output

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/astroshed/starcapture/internal/frame"
	"github.com/astroshed/starcapture/internal/logger"
)

// SER v3 header layout: 14-byte file ID followed by seven little-endian
// int32 fields, three 40-byte ASCII identity fields and two int64
// timestamps, 178 bytes total. FrameCount is back-patched on Close.
const (
	serFileID     = "LUCAM-RECORDER"
	serHeaderSize = 178

	serColorMono = 0
	serColorRGB  = 100
)

// SERWriter streams frames into a single SER container file
type SERWriter struct {
	file     *os.File
	path     string
	meta     Metadata
	started  time.Time
	frames   int32
	width    int32
	height   int32
	depth    int32
	colorID  int32
	headerOK bool
}

// NewSERWriter creates the output file and reserves its header
func NewSERWriter(dir string, meta Metadata) (*SERWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, basename(meta)+".ser")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SER file: %w", err)
	}

	// Placeholder header; rewritten with real geometry and frame count on Close
	if _, err := file.Write(make([]byte, serHeaderSize)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to reserve SER header: %w", err)
	}

	logger.WithComponent("ser-writer").Info().
		Str("path", path).
		Msg("SER recording file created")

	return &SERWriter{
		file:    file,
		path:    path,
		meta:    meta,
		started: time.Now(),
	}, nil
}

// Filename implements Writer
func (w *SERWriter) Filename() string {
	return w.path
}

// Handle implements Writer
func (w *SERWriter) Handle(f *frame.Frame) error {
	if !w.headerOK {
		w.width = int32(f.Width)
		w.height = int32(f.Height)
		w.depth = int32(f.Format.BitDepth())
		w.colorID = serColorMono
		if f.Format == frame.RGB24 {
			w.colorID = serColorRGB
		}
		w.headerOK = true
	}

	if _, err := w.file.Write(f.Data); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", w.frames+1, err)
	}
	w.frames++
	return nil
}

// Close patches the header with the final frame count and closes the file
func (w *SERWriter) Close() error {
	header := w.buildHeader()
	if _, err := w.file.WriteAt(header, 0); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalize SER header: %w", err)
	}

	logger.WithComponent("ser-writer").Info().
		Str("path", w.path).
		Int32("frames", w.frames).
		Msg("SER recording finalized")

	return w.file.Close()
}

func (w *SERWriter) buildHeader() []byte {
	buf := make([]byte, serHeaderSize)
	copy(buf[0:14], serFileID)

	le := binary.LittleEndian
	le.PutUint32(buf[14:], 0)                // LuID
	le.PutUint32(buf[18:], uint32(w.colorID))
	le.PutUint32(buf[22:], 0)                // frame data is big-endian flag, 0 = little
	le.PutUint32(buf[26:], uint32(w.width))
	le.PutUint32(buf[30:], uint32(w.height))
	le.PutUint32(buf[34:], uint32(w.depth))
	le.PutUint32(buf[38:], uint32(w.frames))

	putPadded := func(off int, s string) {
		b := []byte(s)
		if len(b) > 40 {
			b = b[:40]
		}
		copy(buf[off:off+40], b)
	}
	putPadded(42, w.meta.Observer)
	putPadded(82, w.meta.Camera)
	putPadded(122, w.meta.Telescope)

	// Offset 162 holds local time, 170 UTC
	utcTicks := dotNetTicks(w.started)
	_, zoneOffset := w.started.Zone()
	le.PutUint64(buf[162:], utcTicks+uint64(int64(zoneOffset))*10_000_000)
	le.PutUint64(buf[170:], utcTicks)
	return buf
}

// dotNetTicks converts a time to 100ns intervals since 0001-01-01, the
// timestamp encoding the SER format inherited from .NET
func dotNetTicks(t time.Time) uint64 {
	const epochOffsetSeconds = 62135596800
	secs := uint64(t.Unix()) + epochOffsetSeconds
	return secs*10_000_000 + uint64(t.Nanosecond())/100
}
