package httpserver

import "errors"

var (
	// ErrStart is returned by Run when the listener cannot be bound or the
	// server is already running.
	ErrStart = errors.New("httpserver: start failed")
	// ErrShutdown wraps a failed graceful drain.
	ErrShutdown = errors.New("httpserver: shutdown failed")
	// ErrAlreadyRunning is joined with ErrStart on a second Run.
	ErrAlreadyRunning = errors.New("httpserver: already running")
)
