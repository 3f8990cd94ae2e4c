package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/astroshed/starcapture/internal/frame"
)

// Writer serializes frames to an on-disk container format.
// Handle is called from a single goroutine, in arrival order. The writer is
// responsible for its own per-frame robustness; the recorder does not catch
// its failures.
type Writer interface {
	// Filename returns the finalized output path. Stable for the lifetime
	// of the writer.
	Filename() string

	// Handle writes one frame, synchronously
	Handle(f *frame.Frame) error

	// Close finalizes the container
	Close() error
}

// Factory produces a writer instance for one recording session
type Factory func() (Writer, error)

// Metadata carries the identity fields container formats embed
type Metadata struct {
	Camera    string
	Observer  string
	Telescope string
}

// NewFactory resolves a format name to a writer factory.
// Supported formats: "ser", "tiff".
func NewFactory(format, dir string, meta Metadata) (Factory, error) {
	switch strings.ToLower(format) {
	case "ser":
		return func() (Writer, error) {
			return NewSERWriter(dir, meta)
		}, nil
	case "tiff":
		return func() (Writer, error) {
			return NewTIFFSequenceWriter(dir, meta)
		}, nil
	default:
		return nil, fmt.Errorf("unknown save format: %q", format)
	}
}

// Formats lists the supported save format names
func Formats() []string {
	return []string{"ser", "tiff"}
}

// basename builds the timestamped recording name shared by all formats
func basename(meta Metadata) string {
	camera := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, meta.Camera)
	if camera == "" {
		camera = "capture"
	}
	return fmt.Sprintf("%s_%s", camera, time.Now().Format("20060102_150405"))
}
