package output

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/astroshed/starcapture/internal/frame"
)

// TestTIFFSequenceWriter verifies each frame lands as a decodable numbered
// TIFF inside the sequence directory.
func TestTIFFSequenceWriter(t *testing.T) {
	dir := t.TempDir()

	w, err := NewTIFFSequenceWriter(dir, Metadata{Camera: "cam"})
	if err != nil {
		t.Fatalf("NewTIFFSequenceWriter failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := w.Handle(frame.New(16, 8, frame.Mono8)); err != nil {
			t.Fatalf("Handle frame %d failed: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		path := filepath.Join(w.Filename(), fmt.Sprintf("frame_%06d.tiff", i))
		file, err := os.Open(path)
		if err != nil {
			t.Fatalf("Frame file %d missing: %v", i, err)
		}
		img, err := tiff.Decode(file)
		file.Close()
		if err != nil {
			t.Fatalf("Frame file %d not decodable: %v", i, err)
		}
		if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
			t.Errorf("Frame %d bounds: got %v", i, b)
		}
	}
}

// TestTIFFSequenceWriterRGB verifies RGB frames convert and encode.
func TestTIFFSequenceWriterRGB(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTIFFSequenceWriter(dir, Metadata{Camera: "cam"})
	if err != nil {
		t.Fatal(err)
	}
	f := frame.New(4, 4, frame.RGB24)
	f.Data[0] = 0xff // one red pixel
	if err := w.Handle(f); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(filepath.Join(w.Filename(), "frame_000001.tiff"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	img, err := tiff.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r == 0 {
		t.Error("Red channel lost in conversion")
	}
}
