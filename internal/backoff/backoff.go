// Package backoff computes capped exponential reconnect delays.
package backoff

import "time"

// Defaults used by the client connection manager and the notification listener.
const (
	DefaultBase = time.Second
	DefaultCap  = 30 * time.Second
)

// Delay returns min(base * 2^(attempt-1), ceiling). Attempts below 1 are treated as 1.
func Delay(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d >= ceiling {
			return ceiling
		}
		d *= 2
	}
	if d > ceiling {
		return ceiling
	}
	return d
}
