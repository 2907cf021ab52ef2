package ratelimiter

import (
	"math"
	"time"
)

// TokenBucket holds the admission state of a single resource.
//
// Refill differs from the textbook "last_refill = now" step: only the time
// that produced whole tokens is taken off the clock, so a bucket checked
// every few milliseconds still earns its next token on schedule.
//
// The bucket is not safe for concurrent use on its own; the Registry guards
// every bucket with the lock of the shard that owns it. All methods take the
// current time explicitly so the arithmetic stays deterministic.
type TokenBucket struct {
	capacity    int
	tokens      int
	refillRate  float64 // tokens per second
	lastRefill  time.Time
	minInterval time.Duration
	lastRequest time.Time // zero until the first consumption
	lastAccess  time.Time // last Check or Consume through the Registry; drives idle eviction
}

// NewTokenBucket creates a full bucket for the given config.
// The config must be valid, see Config.Validate.
func NewTokenBucket(cfg Config, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:    cfg.MaxRequests,
		tokens:      cfg.MaxRequests,
		refillRate:  cfg.RefillRate(),
		lastRefill:  now,
		minInterval: cfg.MinInterval,
		lastAccess:  now,
	}
}

// refill adds the whole tokens earned since the last refill.
// lastRefill only advances by the time that produced those tokens, so
// frequent checks never discard partial progress towards the next token.
func (b *TokenBucket) refill(now time.Time) {
	if b.tokens >= b.capacity {
		b.tokens = b.capacity
		b.lastRefill = now
		return
	}

	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}

	earned := math.Floor(elapsed.Seconds() * b.refillRate)
	if earned < 1 {
		return
	}

	missing := b.capacity - b.tokens
	if earned >= float64(missing) {
		b.tokens = b.capacity
		b.lastRefill = now
		return
	}

	b.tokens += int(earned)
	b.lastRefill = b.lastRefill.Add(time.Duration(earned / b.refillRate * float64(time.Second)))
}

// Check reports whether a request may proceed without spending a token.
func (b *TokenBucket) Check(now time.Time) Decision {
	b.refill(now)

	d := Decision{Limit: b.capacity, Remaining: b.tokens}

	if b.minInterval > 0 && !b.lastRequest.IsZero() {
		if since := now.Sub(b.lastRequest); since < b.minInterval {
			d.Outcome = Delayed
			d.Wait = b.minInterval - max(since, 0)
			return d
		}
	}

	if b.tokens > 0 {
		d.Outcome = Allowed
		return d
	}

	d.Outcome = Denied
	d.Wait = b.tokenInterval()
	return d
}

// Consume spends one token and records the request time.
// It returns false and leaves the bucket untouched when no token is available.
func (b *TokenBucket) Consume(now time.Time) bool {
	b.refill(now)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	b.lastRequest = now
	return true
}

// Reset refills the bucket to capacity and forgets the last request.
func (b *TokenBucket) Reset(now time.Time) {
	b.tokens = b.capacity
	b.lastRefill = now
	b.lastRequest = time.Time{}
}

// Tokens returns the number of tokens available at now.
func (b *TokenBucket) Tokens(now time.Time) int {
	b.refill(now)
	return b.tokens
}

// Status returns a snapshot of the bucket at now.
func (b *TokenBucket) Status(key string, now time.Time) Status {
	b.refill(now)
	st := Status{
		Key:             key,
		TokensAvailable: b.tokens,
		Capacity:        b.capacity,
		RefillRate:      b.refillRate,
	}
	if b.tokens < b.capacity {
		st.TimeUntilRefill = time.Duration(float64(b.capacity-b.tokens) / b.refillRate * float64(time.Second))
	}
	return st
}

// tokenInterval is the time it takes to earn a single token.
func (b *TokenBucket) tokenInterval() time.Duration {
	return time.Duration(float64(time.Second) / b.refillRate)
}
