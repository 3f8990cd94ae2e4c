package recorder

import (
	"testing"
	"time"
)

// TestBroadcasterFanOut verifies every subscriber sees a published event.
func TestBroadcasterFanOut(t *testing.T) {
	b := newBroadcaster()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.publish(Event{Type: EventStarted, Path: "/tmp/x.ser"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventStarted || ev.Path != "/tmp/x.ser" {
				t.Errorf("Subscriber %d got wrong event: %+v", i, ev)
			}
			if ev.Time.IsZero() {
				t.Errorf("Subscriber %d event missing timestamp", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d never received the event", i)
		}
	}
}

// TestBroadcasterNonBlocking verifies a stalled subscriber cannot block
// publish.
func TestBroadcasterNonBlocking(t *testing.T) {
	b := newBroadcaster()

	_, cancel := b.Subscribe() // never read
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.publish(Event{Type: EventFrameSaved, Count: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}
}

// TestBroadcasterCancelIdempotent verifies cancel can be called twice.
func TestBroadcasterCancelIdempotent(t *testing.T) {
	b := newBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()
	cancel() // must not panic on double close

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after cancel")
	}

	b.publish(Event{Type: EventFinished}) // no subscribers left, must not panic
}
