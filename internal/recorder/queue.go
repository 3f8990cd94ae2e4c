package recorder

import (
	"sync/atomic"

	"github.com/astroshed/starcapture/internal/frame"
)

// frameQueue is a bounded single-producer/single-consumer ring. Push and Pop
// never block and take no locks; this is only sound while exactly one
// goroutine pushes and exactly one pops (WriterWorker serializes producers
// behind its submit mutex).
type frameQueue struct {
	buf  []*frame.Frame
	size uint64

	// head is the next slot to pop, tail the next slot to push.
	// tail-head is the current fill level.
	head atomic.Uint64
	tail atomic.Uint64
}

func newFrameQueue(capacity int64) *frameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &frameQueue{
		buf:  make([]*frame.Frame, capacity),
		size: uint64(capacity),
	}
}

// Capacity returns the fixed number of slots
func (q *frameQueue) Capacity() int {
	return int(q.size)
}

// Len returns the current number of queued frames
func (q *frameQueue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Push enqueues a frame. Returns false when the ring is full; the frame is
// then the caller's to drop.
func (q *frameQueue) Push(f *frame.Frame) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == q.size {
		return false
	}
	q.buf[tail%q.size] = f
	q.tail.Store(tail + 1)
	return true
}

// Pop dequeues the oldest frame, or reports empty
func (q *frameQueue) Pop() (*frame.Frame, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return nil, false
	}
	f := q.buf[head%q.size]
	q.buf[head%q.size] = nil
	q.head.Store(head + 1)
	return f, true
}
