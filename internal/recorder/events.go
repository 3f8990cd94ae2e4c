package recorder

import (
	"sync"
	"time"
)

// EventType identifies a recorder lifecycle or progress event
type EventType string

const (
	// EventStarted fires once the writer is up; Path carries the output path
	EventStarted EventType = "recording-started"

	// EventFrameSaved fires per written frame; Count is the running total
	EventFrameSaved EventType = "frame-saved"

	// EventFramesDropped fires per dropped frame; Count is cumulative
	EventFramesDropped EventType = "frames-dropped"

	// EventSaveFPS carries the instantaneous write rate
	EventSaveFPS EventType = "save-fps"

	// EventMeanFPS carries the smoothed write rate
	EventMeanFPS EventType = "mean-fps"

	// EventFinished fires exactly once when the session has torn down
	EventFinished EventType = "finished"
)

// Event is one observable recorder occurrence. Delivery is fire-and-forget:
// a subscriber that does not keep up loses events, never the recorder.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Path      string    `json:"path,omitempty"`
	Count     uint64    `json:"count,omitempty"`
	FPS       float64   `json:"fps,omitempty"`
	Time      time.Time `json:"time"`
}

// subscriberBuffer sizes each subscriber channel; progress events are
// high-frequency so a shallow buffer is enough for any live consumer.
const subscriberBuffer = 64

// broadcaster fans events out to any number of subscribers with
// non-blocking delivery
type broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new event channel. The returned cancel func must be
// called when the subscriber is done; it closes the channel.
func (b *broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// publish delivers e to every subscriber, skipping any with a full buffer
func (b *broadcaster) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
