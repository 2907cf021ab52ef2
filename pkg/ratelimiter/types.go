package ratelimiter

import (
	"fmt"
	"math"
	"time"
)

// Outcome is the verdict of a rate limit check.
type Outcome uint8

const (
	// Allowed means a token is available and the request may proceed.
	Allowed Outcome = iota
	// Delayed means tokens are available but the request came sooner than the
	// configured minimum interval. The caller may wait Decision.Wait and retry.
	Delayed
	// Denied means the bucket is empty. Decision.Wait holds the retry hint.
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Delayed:
		return "delayed"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Decision contains the result of a rate limit check.
type Decision struct {
	Outcome   Outcome
	Wait      time.Duration // Delay for Delayed, retry hint for Denied, zero for Allowed
	Limit     int           // Bucket capacity, zero when the key is not rate limited
	Remaining int           // Tokens left after the call
}

// Allowed reports whether the request may proceed right now.
func (d Decision) Allowed() bool {
	return d.Outcome == Allowed
}

// RetryAfter returns how long to wait before the next attempt.
// Returns 0 if the request was allowed.
func (d Decision) RetryAfter() time.Duration {
	if d.Outcome == Allowed {
		return 0
	}
	return d.Wait
}

// RetryAfterSeconds rounds the retry hint up to whole seconds, as expected by
// the Retry-After header. Non-allowed decisions never report less than 1.
func (d Decision) RetryAfterSeconds() int {
	if d.Outcome == Allowed {
		return 0
	}
	return max(1, int(math.Ceil(d.Wait.Seconds())))
}

// Config defines the quota of a single bucket.
type Config struct {
	MaxRequests int           `yaml:"max_requests"`           // Bucket capacity (burst size)
	TimeWindow  time.Duration `yaml:"time_window"`            // Window in which MaxRequests are refilled
	MinInterval time.Duration `yaml:"min_interval,omitempty"` // Minimum gap between consumed requests, zero disables it
}

// RefillRate returns the number of tokens added per second.
func (c Config) RefillRate() float64 {
	return float64(c.MaxRequests) / c.TimeWindow.Seconds()
}

// Validate reports whether the config can back a token bucket.
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	if c.TimeWindow <= 0 {
		return fmt.Errorf("%w: time window must be positive, got %v", ErrInvalidConfig, c.TimeWindow)
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("%w: min interval must not be negative, got %v", ErrInvalidConfig, c.MinInterval)
	}
	return nil
}

// Status is a point-in-time view of one bucket.
type Status struct {
	Key             string        `json:"key"`
	TokensAvailable int           `json:"tokens_available"`
	Capacity        int           `json:"capacity"`
	RefillRate      float64       `json:"refill_rate"`
	TimeUntilRefill time.Duration `json:"time_until_refill"` // Time until the bucket is full again
}

// Observer receives every decision made by a Registry.
// It is called outside of any lock.
type Observer interface {
	ObserveDecision(key string, d Decision)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(key string, d Decision)

func (f ObserverFunc) ObserveDecision(key string, d Decision) { f(key, d) }
