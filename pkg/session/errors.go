package session

import "errors"

var (
	// ErrNoConsumer is returned by NewMachine when no Consumer is given.
	ErrNoConsumer = errors.New("session: consumer is required")

	// ErrNoChannel is returned by NewMachine when no Channel is given.
	ErrNoChannel = errors.New("session: channel is required")
)
