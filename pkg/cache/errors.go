package cache

import "errors"

var (
	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrEmptyKey indicates that a value was stored under an empty key.
	ErrEmptyKey = errors.New("cache key must not be empty")

	// ErrSerialization indicates that a value could not be encoded or a cached
	// payload could not be decoded.
	ErrSerialization = errors.New("cache serialization failed")

	// ErrRemoteTierUnavailable wraps failures of the remote tier. They are
	// logged and never fail a cache operation.
	ErrRemoteTierUnavailable = errors.New("remote cache tier unavailable")

	// ErrNoWarmer indicates that warming was requested without a Warmer.
	ErrNoWarmer = errors.New("cache warmer is not configured")

	// ErrWarming wraps the errors collected during a warming run.
	ErrWarming = errors.New("cache warming failed")
)
