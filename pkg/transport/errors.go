package transport

import "errors"

var (
	// ErrClosed is returned by operations on a closed Channel.
	ErrClosed = errors.New("transport: channel is closed")

	// ErrAlreadyConnected is returned when a second connection attempt
	// arrives while one is already active, per the single-connection
	// model of Section 5.
	ErrAlreadyConnected = errors.New("transport: a connection is already active")
)
