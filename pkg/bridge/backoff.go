// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import "time"

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// backoff produces the reconnect delay ladder: min doubling up to a cap,
// rewound to min after a successful connect.
type backoff struct {
	min  time.Duration
	max  time.Duration
	next time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	return &backoff{min: min, max: max, next: min}
}

// Delay returns the current delay and advances the ladder.
func (b *backoff) Delay() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset rewinds the ladder to its minimum delay.
func (b *backoff) Reset() {
	b.next = b.min
}
