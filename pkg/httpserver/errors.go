package httpserver

import "errors"

var (
	// ErrStart wraps failures to bind the listener or keep it serving, and
	// marks a Run call on a server that is already running.
	ErrStart = errors.New("httpserver: start failed")

	// ErrShutdown wraps a graceful drain that exceeded the shutdown timeout.
	ErrShutdown = errors.New("httpserver: shutdown failed")
)
