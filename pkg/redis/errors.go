package redis

import "errors"

var (
	ErrEmptyURL   = errors.New("redis: empty connection URL")
	ErrInvalidURL = errors.New("redis: invalid connection URL")
	ErrNotReady   = errors.New("redis: server not ready")
	ErrUnhealthy  = errors.New("redis: healthcheck failed")
	// ErrCommandFailed wraps every remote tier failure other than a miss.
	ErrCommandFailed = errors.New("redis: command failed")
)
