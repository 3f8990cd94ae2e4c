package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/astroshed/starcapture/internal/frame"
	"github.com/astroshed/starcapture/internal/output"
)

// fakeWriter records handled frames in memory
type fakeWriter struct {
	path string

	mu      sync.Mutex
	handled []*frame.Frame
	closed  bool
}

func (f *fakeWriter) Filename() string { return f.path }

func (f *fakeWriter) Handle(fr *frame.Frame) error {
	f.mu.Lock()
	f.handled = append(f.handled, fr)
	f.mu.Unlock()
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeWriter) frames() []*frame.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*frame.Frame(nil), f.handled...)
}

func fakeFactory(w *fakeWriter) output.Factory {
	return func() (output.Writer, error) { return w, nil }
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

// TestWorkerLazyQueueSizing verifies capacity is computed once, from the
// first frame's byte size, and never recomputed.
func TestWorkerLazyQueueSizing(t *testing.T) {
	var active atomic.Bool
	small := frame.New(4, 4, frame.Mono8) // 16 bytes
	budget := 4 * small.ByteSize()

	w := newWriterWorker(fakeFactory(&fakeWriter{path: "x"}), 100, budget, &active, nil, newBroadcaster())

	w.Submit(small)
	q := w.queue.Load()
	if q == nil {
		t.Fatal("Queue not allocated on first submit")
	}
	if q.Capacity() != 4 {
		t.Fatalf("Expected capacity 4, got %d", q.Capacity())
	}

	// A bigger frame must not trigger a resize
	w.Submit(frame.New(64, 64, frame.Mono16))
	if got := w.queue.Load(); got != q {
		t.Error("Queue was reallocated after the first submit")
	}
	if w.queue.Load().Capacity() != 4 {
		t.Errorf("Capacity changed to %d", w.queue.Load().Capacity())
	}
}

// TestWorkerMinimumCapacity verifies a budget smaller than one frame still
// yields a single-slot queue.
func TestWorkerMinimumCapacity(t *testing.T) {
	var active atomic.Bool
	w := newWriterWorker(fakeFactory(&fakeWriter{path: "x"}), 100, 1, &active, nil, newBroadcaster())

	w.Submit(frame.New(32, 32, frame.Mono8))
	if got := w.queue.Load().Capacity(); got != 1 {
		t.Errorf("Expected capacity 1, got %d", got)
	}
}

// TestWorkerDropAccounting verifies that with capacity C, no consumer and N
// submissions, exactly N-C drop events fire with a count increasing by one
// per drop.
func TestWorkerDropAccounting(t *testing.T) {
	const capacity = 3
	const total = 10

	var active atomic.Bool
	events := newBroadcaster()
	ch, cancel := events.Subscribe()
	defer cancel()

	f := frame.New(4, 4, frame.Mono8)
	w := newWriterWorker(fakeFactory(&fakeWriter{path: "x"}), 100, capacity*f.ByteSize(), &active, nil, events)

	for i := 0; i < total; i++ {
		w.Submit(frame.New(4, 4, frame.Mono8))
	}

	if got := w.DroppedFrames(); got != total-capacity {
		t.Errorf("Expected %d dropped, got %d", total-capacity, got)
	}

	want := uint64(1)
	for want <= total-capacity {
		select {
		case ev := <-ch:
			if ev.Type != EventFramesDropped {
				t.Fatalf("Unexpected event type %s", ev.Type)
			}
			if ev.Count != want {
				t.Fatalf("Drop count not monotonic: expected %d, got %d", want, ev.Count)
			}
			want++
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for drop event %d", want)
		}
	}
}

// TestWorkerCeilingStopsRecording verifies the frame ceiling terminates the
// session on its own, clears the active flag and emits finished.
func TestWorkerCeilingStopsRecording(t *testing.T) {
	const ceiling = 5

	var active atomic.Bool
	active.Store(true)
	events := newBroadcaster()
	ch, cancel := events.Subscribe()
	defer cancel()

	fw := &fakeWriter{path: "x"}
	f := frame.New(4, 4, frame.Mono8)
	w := newWriterWorker(fakeFactory(fw), ceiling, 100*f.ByteSize(), &active, nil, events)

	go w.Run()

	for i := 0; i < ceiling+3; i++ {
		w.Submit(frame.New(4, 4, frame.Mono8))
		time.Sleep(2 * time.Millisecond)
	}

	finished := 0
	deadline := time.After(2 * time.Second)
	for finished == 0 {
		select {
		case ev := <-ch:
			if ev.Type == EventFinished {
				finished++
			}
		case <-deadline:
			t.Fatal("No finished event after reaching ceiling")
		}
	}

	if active.Load() {
		t.Error("Active flag still set after ceiling reached")
	}
	if got := w.SavedFrames(); got != ceiling {
		t.Errorf("Expected %d frames written, got %d", ceiling, got)
	}
	if got := len(fw.frames()); got != ceiling {
		t.Errorf("Writer handled %d frames, expected %d", got, ceiling)
	}
	if !fw.closed {
		t.Error("Writer was not closed")
	}
}

// TestWorkerWritesInSubmissionOrder verifies a draining consumer loses
// nothing and preserves order.
func TestWorkerWritesInSubmissionOrder(t *testing.T) {
	const total = 20

	var active atomic.Bool
	active.Store(true)

	fw := &fakeWriter{path: "x"}
	f := frame.New(4, 4, frame.Mono8)
	w := newWriterWorker(fakeFactory(fw), total, 100*f.ByteSize(), &active, nil, newBroadcaster())

	go w.Run()

	sent := make([]*frame.Frame, total)
	for i := range sent {
		sent[i] = frame.New(4, 4, frame.Mono8)
		w.Submit(sent[i])
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool { return w.SavedFrames() == total })

	if got := w.DroppedFrames(); got != 0 {
		t.Errorf("Expected zero drops with a draining consumer, got %d", got)
	}
	got := fw.frames()
	for i := range sent {
		if got[i] != sent[i] {
			t.Fatalf("Frame %d written out of order", i)
		}
	}
}

// TestWorkerFinalizesSession verifies the sidecar is written on the run
// exit path with the final statistics and dimensions.
func TestWorkerFinalizesSession(t *testing.T) {
	base := filepath.Join(t.TempDir(), "rec.ser")

	var active atomic.Bool
	active.Store(true)

	session := NewSession("cam", "obs", "scope", nil)
	fw := &fakeWriter{path: base}
	f := frame.New(8, 6, frame.Mono8)
	w := newWriterWorker(fakeFactory(fw), 3, 100*f.ByteSize(), &active, session, newBroadcaster())

	go w.Run()
	for i := 0; i < 3; i++ {
		w.Submit(frame.New(8, 6, frame.Mono8))
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool {
		_, err := os.Stat(base + ".txt")
		return err == nil
	})

	data, err := os.ReadFile(base + ".txt")
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Sidecar not valid JSON: %v", err)
	}
	if doc["total-frames"].(float64) != 3 {
		t.Errorf("total-frames: expected 3, got %v", doc["total-frames"])
	}
	if doc["width"].(float64) != 8 || doc["height"].(float64) != 6 {
		t.Errorf("Dimensions wrong: %vx%v", doc["width"], doc["height"])
	}
}
