package stream

import "time"

const (
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 10 * time.Second
)

// Backoff is a linear reconnect schedule capped at Max
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns min(Base*attempt, Max). Attempt counts consecutive losses
// starting at 1; zero or negative attempts yield no delay.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	base, limit := b.Base, b.Max
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if limit <= 0 {
		limit = DefaultMaxDelay
	}
	// guards the multiplication against overflow
	if time.Duration(attempt) > limit/base {
		return limit
	}
	return min(base*time.Duration(attempt), limit)
}
