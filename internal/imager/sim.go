package imager

import (
	"context"
	"time"

	"github.com/astroshed/starcapture/internal/frame"
	"github.com/astroshed/starcapture/internal/logger"
)

// Simulator is a synthetic imager producing a moving test pattern at a
// fixed rate. It stands in for real camera drivers in the CLI and in tests.
type Simulator struct {
	name   string
	width  int
	height int
	format frame.PixelFormat
	fps    int
	seq    uint64
}

// NewSimulator creates a test-pattern imager with the given geometry and rate
func NewSimulator(width, height, fps int) *Simulator {
	if fps <= 0 {
		fps = 30
	}
	return &Simulator{
		name:   "Simulated Camera",
		width:  width,
		height: height,
		format: frame.Mono8,
		fps:    fps,
	}
}

// Name implements Imager
func (s *Simulator) Name() string {
	return s.name
}

// Controls implements Imager with a control set shaped like a typical
// planetary camera driver
func (s *Simulator) Controls() []Control {
	return []Control{
		{
			Name:         "exposure",
			Kind:         KindNumber,
			Value:        float64(1e6 / s.fps),
			IsDuration:   true,
			DurationUnit: 1e-6,
		},
		{Name: "gain", Kind: KindNumber, Value: float64(50)},
		{
			Name:  "binning",
			Kind:  KindCombo,
			Value: float64(1),
			Choices: []Choice{
				{Label: "1x1", Value: float64(1)},
				{Label: "2x2", Value: float64(2)},
			},
		},
		{Name: "high speed mode", Kind: KindBool, Value: false},
	}
}

// NextFrame renders the next test-pattern frame
func (s *Simulator) NextFrame() *frame.Frame {
	f := frame.New(s.width, s.height, s.format)
	// Diagonal gradient scrolling one pixel per frame, enough to make
	// dropped frames visible in the output.
	shift := int(s.seq % 256)
	for y := 0; y < s.height; y++ {
		row := y * s.width
		for x := 0; x < s.width; x++ {
			f.Data[row+x] = byte((x + y + shift) % 256)
		}
	}
	s.seq++
	return f
}

// Stream delivers frames to handler at the configured rate until ctx is done
func (s *Simulator) Stream(ctx context.Context, handler func(*frame.Frame)) {
	log := logger.WithComponent("sim-imager")
	interval := time.Second / time.Duration(s.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().
		Int("width", s.width).
		Int("height", s.height).
		Int("fps", s.fps).
		Msg("Simulated capture started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", s.seq).Msg("Simulated capture stopped")
			return
		case <-ticker.C:
			handler(s.NextFrame())
		}
	}
}
