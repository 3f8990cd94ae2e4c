package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/astroshed/starcapture/internal/frame"
	"github.com/astroshed/starcapture/internal/logger"
	"github.com/astroshed/starcapture/internal/output"
)

// idleInterval bounds the consumer's poll sleep on an empty queue: small
// enough not to lag FPS reporting, large enough not to busy-spin
const idleInterval = time.Millisecond

// fpsReportInterval drives both the instantaneous and the smoothed counters
const fpsReportInterval = time.Second

// WriterWorker owns the frame queue and the external writer for one
// recording session. Producers hand frames to Submit; Run drains the queue
// on its own goroutine until the shared active flag clears or the frame
// ceiling is reached.
type WriterWorker struct {
	factory      output.Factory
	maxFrames    uint64
	memoryBudget int64
	active       *atomic.Bool
	session      *Session // touched only by Run after construction
	sessionID    string
	events       *broadcaster

	// submitMu serializes producers: frame arrivals may come from any
	// goroutine, but the queue's lock-free path requires a single logical
	// producer. It also guards the one-time lazy queue sizing.
	submitMu sync.Mutex
	queue    atomic.Pointer[frameQueue]

	saved      atomic.Uint64
	dropped    atomic.Uint64
	outputPath atomic.Value // string
}

func newWriterWorker(factory output.Factory, maxFrames uint64, memoryBudget int64, active *atomic.Bool, session *Session, events *broadcaster) *WriterWorker {
	w := &WriterWorker{
		factory:      factory,
		maxFrames:    maxFrames,
		memoryBudget: memoryBudget,
		active:       active,
		session:      session,
		events:       events,
	}
	if session != nil {
		w.sessionID = session.ID
	}
	return w
}

// Submit offers a frame to the session. The queue is sized on the first
// call from the memory budget and this frame's byte size; a full queue
// drops the frame, counts it and reports the cumulative drop count.
func (w *WriterWorker) Submit(f *frame.Frame) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	q := w.queue.Load()
	if q == nil {
		var capacity int64 = 1
		if bs := f.ByteSize(); bs > 0 {
			capacity = w.memoryBudget / bs
		}
		q = newFrameQueue(capacity)
		w.queue.Store(q)
		logger.WithComponent("writer-worker").Info().
			Int64("memory_budget", w.memoryBudget).
			Int64("frame_bytes", f.ByteSize()).
			Int("capacity", q.Capacity()).
			Msg("Frame queue allocated")
	}

	if !q.Push(f) {
		dropped := w.dropped.Add(1)
		w.events.publish(Event{
			Type:      EventFramesDropped,
			SessionID: w.sessionID,
			Count:     dropped,
		})
		logger.WithComponent("writer-worker").Warn().
			Uint64("dropped", dropped).
			Msg("Frame queue full, dropping frame")
	}
}

// Run is the consumer loop. It builds the external writer, binds the
// session's sidecar path, then pops and writes frames until the active flag
// clears or the ceiling is reached. Reaching the ceiling clears the flag
// itself. Queued-but-unwritten frames at stop time are discarded.
func (w *WriterWorker) Run() {
	log := logger.WithComponent("writer-worker")

	writer, err := w.factory()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create output writer")
		w.active.Store(false)
		w.finish()
		return
	}
	w.outputPath.Store(writer.Filename())

	if w.session != nil {
		w.session.SetBaseFilename(writer.Filename())
	}

	saveFPS := NewFPSCounter(func(fps float64) {
		w.events.publish(Event{Type: EventSaveFPS, SessionID: w.sessionID, FPS: fps})
	}, fpsReportInterval, false)
	meanFPS := NewFPSCounter(func(fps float64) {
		w.events.publish(Event{Type: EventMeanFPS, SessionID: w.sessionID, FPS: fps})
	}, fpsReportInterval, true)

	w.events.publish(Event{
		Type:      EventStarted,
		SessionID: w.sessionID,
		Path:      writer.Filename(),
	})
	log.Info().Str("path", writer.Filename()).Msg("Recording started")

	var frames uint64
	width, height := -1, -1

	for w.active.Load() && frames < w.maxFrames {
		q := w.queue.Load()
		if q == nil {
			time.Sleep(idleInterval)
			continue
		}
		f, ok := q.Pop()
		if !ok {
			time.Sleep(idleInterval)
			continue
		}

		if err := writer.Handle(f); err != nil {
			// The writer owns its failure handling; surfaced here for
			// observability only.
			log.Error().Err(err).Msg("Writer failed to handle frame")
		}
		saveFPS.Tick()
		meanFPS.Tick()
		frames++
		w.saved.Store(frames)
		w.events.publish(Event{
			Type:      EventFrameSaved,
			SessionID: w.sessionID,
			Count:     frames,
		})
		if width == -1 || height == -1 {
			width, height = f.Width, f.Height
		}
	}
	w.active.Store(false)

	if err := writer.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to finalize output writer")
	}

	if w.session != nil {
		w.session.Finalize(frames, width, height)
	}
	w.finish()

	log.Info().
		Uint64("frames", frames).
		Uint64("dropped", w.dropped.Load()).
		Msg("Recording finished")
}

// finish persists and releases the session and emits the single finished
// event; this runs on every Run exit path
func (w *WriterWorker) finish() {
	if w.session != nil {
		w.session.Close()
		w.session = nil
	}
	w.events.publish(Event{Type: EventFinished, SessionID: w.sessionID})
}

// SavedFrames returns the number of frames written so far
func (w *WriterWorker) SavedFrames() uint64 {
	return w.saved.Load()
}

// DroppedFrames returns the cumulative dropped-frame count
func (w *WriterWorker) DroppedFrames() uint64 {
	return w.dropped.Load()
}

// OutputPath returns the writer's output path once known
func (w *WriterWorker) OutputPath() string {
	if p, ok := w.outputPath.Load().(string); ok {
		return p
	}
	return ""
}
