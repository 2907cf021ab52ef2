package ratelimiter

import (
	"errors"
	"fmt"
	"time"
)

// Package-level error definitions for rate limiter operations.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRateLimitExceeded indicates that the bucket for a key is empty.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrRoutesFile indicates that a route quota file could not be read or parsed.
	ErrRoutesFile = errors.New("failed to load rate limit routes")

	// ErrInternal indicates that a bucket operation failed unexpectedly.
	// The registry reports such failures as Denied.
	ErrInternal = errors.New("rate limiter internal failure")
)

// ExceededError is returned by Registry.Acquire when a key has no tokens left.
// It matches ErrRateLimitExceeded with errors.Is.
type ExceededError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry after %v", e.Key, e.RetryAfter)
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}
