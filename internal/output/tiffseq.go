package output

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/astroshed/starcapture/internal/frame"
	"github.com/astroshed/starcapture/internal/logger"
)

// TIFFSequenceWriter writes each frame as a numbered TIFF file inside a
// per-recording directory. Filename() returns that directory, so the
// metadata sidecar lands next to it.
type TIFFSequenceWriter struct {
	dir    string
	frames int
}

// NewTIFFSequenceWriter creates the sequence directory
func NewTIFFSequenceWriter(dir string, meta Metadata) (*TIFFSequenceWriter, error) {
	seqDir := filepath.Join(dir, basename(meta))
	if err := os.MkdirAll(seqDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sequence directory: %w", err)
	}

	logger.WithComponent("tiff-writer").Info().
		Str("dir", seqDir).
		Msg("TIFF sequence directory created")

	return &TIFFSequenceWriter{dir: seqDir}, nil
}

// Filename implements Writer
func (w *TIFFSequenceWriter) Filename() string {
	return w.dir
}

// Handle implements Writer
func (w *TIFFSequenceWriter) Handle(f *frame.Frame) error {
	w.frames++
	path := filepath.Join(w.dir, fmt.Sprintf("frame_%06d.tiff", w.frames))

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	img := toImage(f)
	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// Close implements Writer
func (w *TIFFSequenceWriter) Close() error {
	logger.WithComponent("tiff-writer").Info().
		Str("dir", w.dir).
		Int("frames", w.frames).
		Msg("TIFF sequence finalized")
	return nil
}

// toImage wraps or converts frame pixels into an image.Image for encoding
func toImage(f *frame.Frame) image.Image {
	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.Format {
	case frame.Mono8:
		return &image.Gray{Pix: f.Data, Stride: f.Width, Rect: rect}
	case frame.Mono16:
		return &image.Gray16{Pix: f.Data, Stride: f.Width * 2, Rect: rect}
	case frame.RGB24:
		img := image.NewNRGBA(rect)
		for i := 0; i < f.Width*f.Height; i++ {
			img.Pix[i*4] = f.Data[i*3]
			img.Pix[i*4+1] = f.Data[i*3+1]
			img.Pix[i*4+2] = f.Data[i*3+2]
			img.Pix[i*4+3] = 0xff
		}
		return img
	default:
		return &image.Gray{Pix: f.Data, Stride: f.Width, Rect: rect}
	}
}
