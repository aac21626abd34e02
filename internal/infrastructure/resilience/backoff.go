package resilience

import "time"

// Backoff is a bounded, increasing retry schedule.
type Backoff struct {
	delays []time.Duration
}

// NewBackoff creates a schedule from explicit delays.
func NewBackoff(delays ...time.Duration) Backoff {
	return Backoff{delays: append([]time.Duration(nil), delays...)}
}

// Attempts returns the number of retries in the schedule.
func (b Backoff) Attempts() int {
	return len(b.delays)
}

// Delay returns the delay before the given 0-based retry attempt, and
// false once the schedule is exhausted.
func (b Backoff) Delay(attempt int) (time.Duration, bool) {
	if attempt < 0 || attempt >= len(b.delays) {
		return 0, false
	}
	return b.delays[attempt], true
}
