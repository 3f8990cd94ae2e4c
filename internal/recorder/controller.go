package recorder

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/astroshed/starcapture/internal/config"
	"github.com/astroshed/starcapture/internal/frame"
	"github.com/astroshed/starcapture/internal/imager"
	"github.com/astroshed/starcapture/internal/logger"
	"github.com/astroshed/starcapture/internal/output"
)

// Controller orchestrates recording sessions, one at a time. Frames are
// handed to Handle at camera rate; a slower writer on its own goroutine
// drains them through a bounded queue, dropping under backpressure rather
// than blocking the capture path.
type Controller struct {
	configMgr *config.Manager
	events    *broadcaster

	// active is the shared recording flag: set on start, cleared on stop
	// or when the worker hits its frame ceiling. Read by Handle and by the
	// worker's run loop.
	active atomic.Bool

	mu     sync.Mutex
	worker *WriterWorker
	last   Status // stats of the most recently finished session
}

// NewController creates a recording controller backed by the given config
func NewController(configMgr *config.Manager) *Controller {
	return &Controller{
		configMgr: configMgr,
		events:    newBroadcaster(),
	}
}

// Subscribe registers an observer for recorder events. Delivery is
// fire-and-forget; call the returned cancel when done.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.events.Subscribe()
}

// Handle dispatches an incoming frame to the active session. A no-op when
// nothing is recording; otherwise the frame is queued (or dropped) without
// ever blocking on the writer.
func (c *Controller) Handle(f *frame.Frame) {
	if !c.active.Load() {
		return
	}
	c.mu.Lock()
	w := c.worker
	c.mu.Unlock()
	if w != nil {
		w.Submit(f)
	}
}

// StartRecording begins a session for the given imager. A no-op when a
// session is already running or when no save destination is configured.
func (c *Controller) StartRecording(im imager.Imager) {
	log := logger.WithComponent("recorder")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker != nil {
		log.Warn().Msg("Recording already in progress")
		return
	}

	cfg := c.configMgr.Get()
	if cfg.SaveDirectory == "" {
		log.Warn().Msg("No save directory configured, not recording")
		return
	}

	factory, err := output.NewFactory(cfg.SaveFormat, cfg.SaveDirectory, output.Metadata{
		Camera:    im.Name(),
		Observer:  cfg.Observer,
		Telescope: cfg.Telescope,
	})
	if err != nil {
		log.Warn().Err(err).Str("format", cfg.SaveFormat).Msg("No writer for configured format, not recording")
		return
	}

	var session *Session
	if cfg.SaveInfoFile {
		session = NewSession(im.Name(), cfg.Observer, cfg.Telescope, im.Controls())
	}

	maxFrames := cfg.FramesLimit
	if maxFrames == 0 {
		maxFrames = math.MaxUint64
	}

	w := newWriterWorker(factory, maxFrames, cfg.MemoryBudget(), &c.active, session, c.events)
	c.worker = w
	c.active.Store(true)

	go func() {
		w.Run()
		c.mu.Lock()
		c.last = Status{
			OutputPath:    w.OutputPath(),
			SavedFrames:   w.SavedFrames(),
			DroppedFrames: w.DroppedFrames(),
		}
		if c.worker == w {
			c.worker = nil
		}
		c.mu.Unlock()
	}()

	log.Info().
		Str("camera", im.Name()).
		Str("format", cfg.SaveFormat).
		Uint64("frames_limit", cfg.FramesLimit).
		Msg("Recording session started")
}

// EndRecording requests a stop. It only clears the active flag; the worker
// observes it, finishes the frame in hand, tears down and emits the
// finished event asynchronously.
func (c *Controller) EndRecording() {
	c.active.Store(false)
}

// IsRecording reports whether a session is currently active
func (c *Controller) IsRecording() bool {
	return c.active.Load()
}

// Status is a point-in-time snapshot of the controller for observability
type Status struct {
	Recording     bool   `json:"recording"`
	OutputPath    string `json:"output_path,omitempty"`
	SavedFrames   uint64 `json:"saved_frames"`
	DroppedFrames uint64 `json:"dropped_frames"`
}

// GetStatus returns a snapshot of the current session, or an idle status
func (c *Controller) GetStatus() Status {
	c.mu.Lock()
	w := c.worker
	last := c.last
	c.mu.Unlock()

	st := Status{Recording: c.active.Load()}
	if w != nil {
		st.OutputPath = w.OutputPath()
		st.SavedFrames = w.SavedFrames()
		st.DroppedFrames = w.DroppedFrames()
	} else {
		st.OutputPath = last.OutputPath
		st.SavedFrames = last.SavedFrames
		st.DroppedFrames = last.DroppedFrames
	}
	return st
}
