package imager

import (
	"context"
	"testing"
	"time"

	"github.com/astroshed/starcapture/internal/frame"
)

// TestSimulatorControls verifies the control set covers every control kind,
// including a duration-flavored exposure.
func TestSimulatorControls(t *testing.T) {
	sim := NewSimulator(64, 48, 25)

	kinds := map[ControlKind]bool{}
	var exposure *Control
	for _, ctl := range sim.Controls() {
		kinds[ctl.Kind] = true
		if ctl.Name == "exposure" {
			c := ctl
			exposure = &c
		}
	}
	for _, kind := range []ControlKind{KindNumber, KindCombo, KindBool} {
		if !kinds[kind] {
			t.Errorf("Missing control kind %s", kind)
		}
	}
	if exposure == nil {
		t.Fatal("Missing exposure control")
	}
	if !exposure.IsDuration || exposure.DurationUnit != 1e-6 {
		t.Errorf("Exposure should be a microsecond duration control: %+v", exposure)
	}
	// 25 fps -> 40000µs exposure -> 40ms
	if got := exposure.Duration(); got != 40*time.Millisecond {
		t.Errorf("Exposure duration: expected 40ms, got %v", got)
	}
}

// TestSimulatorFramesMove verifies consecutive frames differ (the pattern
// scrolls) and have the right geometry.
func TestSimulatorFramesMove(t *testing.T) {
	sim := NewSimulator(32, 16, 30)

	f1 := sim.NextFrame()
	f2 := sim.NextFrame()

	if f1.Width != 32 || f1.Height != 16 || f1.Format != frame.Mono8 {
		t.Errorf("Unexpected frame geometry: %+v", f1)
	}
	if f1.ByteSize() != 32*16 {
		t.Errorf("ByteSize: expected %d, got %d", 32*16, f1.ByteSize())
	}

	same := true
	for i := range f1.Data {
		if f1.Data[i] != f2.Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Consecutive frames are identical; pattern does not move")
	}
}

// TestSimulatorStreamDelivers verifies Stream produces frames at roughly
// the configured rate and stops with the context.
func TestSimulatorStreamDelivers(t *testing.T) {
	sim := NewSimulator(8, 8, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	count := 0
	sim.Stream(ctx, func(*frame.Frame) { count++ })

	if count == 0 {
		t.Fatal("Stream delivered no frames")
	}
	// 100 fps over 100ms -> ~10 frames; accept generous jitter
	if count > 30 {
		t.Errorf("Stream delivered implausibly many frames: %d", count)
	}
}
