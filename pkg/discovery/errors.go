package discovery

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when the service is already
	// being advertised.
	ErrAlreadyStarted = errors.New("discovery: already advertising")

	// ErrClosed is returned by operations on a closed Advertiser.
	ErrClosed = errors.New("discovery: advertiser is closed")
)
