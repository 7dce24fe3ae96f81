package controller

import "errors"

var (
	// ErrPSKRequired is returned by Config.Validate when the PSK is
	// all-zero.
	ErrPSKRequired = errors.New("controller: psk is required")

	// ErrSeedStorePathRequired is returned by Config.Validate when no
	// seed store path is given.
	ErrSeedStorePathRequired = errors.New("controller: seed store path is required")

	// ErrNoDoor is returned by Config.Validate when no Consumer is
	// given.
	ErrNoDoor = errors.New("controller: door consumer is required")

	// ErrAlreadyStarted is returned by Start when the controller is
	// already running.
	ErrAlreadyStarted = errors.New("controller: already started")

	// ErrNotStarted is returned by Stop when the controller was never
	// started.
	ErrNotStarted = errors.New("controller: not started")
)
