package connection

import "time"

// Backoff yields exponentially growing reconnect delays: base, 2*base, 4*base, ... capped at max.
// It is not safe for concurrent use.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	next time.Duration
}

// NewBackoff creates a Backoff starting at base and capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Base: base, Max: max}
}

// Next returns the delay to wait now and advances the sequence.
func (b *Backoff) Next() time.Duration {
	if b.next <= 0 {
		b.next = b.Base
	}
	wait := b.next
	if wait > b.Max {
		wait = b.Max
	}

	b.next *= 2
	if b.next > b.Max {
		b.next = b.Max
	}
	return wait
}

// Reset restarts the sequence at Base.
func (b *Backoff) Reset() {
	b.next = 0
}
