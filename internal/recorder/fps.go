package recorder

import (
	"time"
)

// FPSCounter estimates a tick rate and reports it through a callback
// whenever the reporting interval elapses. In the default elapsed mode the
// reported rate is ticks-in-window / window-seconds and the window resets
// after each report; in mean mode the rate is accumulated over the whole
// lifetime of the counter, which gives a much steadier display value.
//
// Tick is purely arithmetic and never blocks. Not safe for concurrent use;
// the recorder only ever ticks from the writer goroutine.
type FPSCounter struct {
	report   func(fps float64)
	interval time.Duration
	mean     bool

	windowTicks uint64
	windowStart time.Time
	totalTicks  uint64
	startedAt   time.Time
}

// NewFPSCounter creates a counter reporting through report every interval.
// A zero interval defaults to one second. With mean set, the counter reports
// the lifetime mean rate instead of the last-window rate.
func NewFPSCounter(report func(fps float64), interval time.Duration, mean bool) *FPSCounter {
	if interval <= 0 {
		interval = time.Second
	}
	return &FPSCounter{
		report:   report,
		interval: interval,
		mean:     mean,
	}
}

// Tick records one occurrence and reports the current rate if the reporting
// interval has elapsed
func (c *FPSCounter) Tick() {
	now := time.Now()
	if c.startedAt.IsZero() {
		c.startedAt = now
		c.windowStart = now
	}
	c.windowTicks++
	c.totalTicks++

	elapsed := now.Sub(c.windowStart)
	if elapsed < c.interval {
		return
	}

	var rate float64
	if c.mean {
		if total := now.Sub(c.startedAt).Seconds(); total > 0 {
			rate = float64(c.totalTicks) / total
		}
	} else {
		rate = float64(c.windowTicks) / elapsed.Seconds()
	}
	if c.report != nil {
		c.report(rate)
	}

	c.windowTicks = 0
	c.windowStart = now
}
