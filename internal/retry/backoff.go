package retry

import "time"

// ExponentialBackoff returns base * 2^attempt.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}

// CappedBackoff is ExponentialBackoff bounded by max. Large attempts do not overflow.
func CappedBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt >= 30 {
		return max
	}
	d := ExponentialBackoff(attempt, base)
	if d <= 0 || d > max {
		return max
	}
	return d
}
