package reporter

import "time"

func roundDuration(dur time.Duration) time.Duration {
	switch {
	case dur > time.Minute:
		return dur.Round(10 * time.Second)
	case dur > time.Second:
		return dur.Round(10 * time.Millisecond)
	case dur > time.Millisecond:
		return dur.Round(10 * time.Microsecond)
	case dur > time.Microsecond:
		return dur.Round(10 * time.Nanosecond)
	default:
		return dur
	}
}
