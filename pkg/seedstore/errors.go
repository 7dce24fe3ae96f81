package seedstore

import "errors"

var (
	// ErrIndexOutOfRange is returned when a seed index is not within
	// [0, NumSeeds).
	ErrIndexOutOfRange = errors.New("seedstore: index out of range")

	// ErrShortFile is returned when the backing file is smaller than
	// the layout requires.
	ErrShortFile = errors.New("seedstore: file too short for seed layout")
)
