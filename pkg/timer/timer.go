// Package timer measures elapsed time around a scoped unit of work.
package timer

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a start/stop pair of readings taken from a clock.
// The real clock returned by clock.New carries Go's monotonic reading, so
// wall clock adjustments during a measurement do not skew it.
type Timer struct {
	clock   clock.Clock
	start   time.Time
	stop    time.Time
	stopped bool
}

// Start creates a Timer and takes the first reading. A nil clock means the real clock.
func Start(c clock.Clock) *Timer {
	if c == nil {
		c = clock.New()
	}
	return &Timer{clock: c, start: c.Now()}
}

// Stop takes the second reading and returns the elapsed time.
// Only the first call records a reading, so it is safe to defer Stop
// after an explicit call.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.stop = t.clock.Now()
		t.stopped = true
	}
	return t.Elapsed()
}

// Elapsed returns the non-negative time between the readings. Before Stop is
// called it reports the time elapsed so far.
func (t *Timer) Elapsed() time.Duration {
	end := t.stop
	if !t.stopped {
		end = t.clock.Now()
	}
	d := end.Sub(t.start)
	if d < 0 {
		return 0
	}
	return d
}

// Seconds returns Elapsed as float seconds.
func (t *Timer) Seconds() float64 {
	return t.Elapsed().Seconds()
}
