package frame

import "errors"

// Package-level errors. These distinguish the failure kinds of Section 7
// for logging and tests; the wire behavior for all three is identical
// (silently drop), so callers other than the session machine should not
// branch on which one came back.
var (
	// ErrMalformed is returned when the length field, ciphertext alignment,
	// or total transmission size is invalid.
	ErrMalformed = errors.New("frame: malformed transmission")

	// ErrBadMAC is returned when the recomputed HMAC does not match the
	// trailing MAC of the transmission.
	ErrBadMAC = errors.New("frame: bad mac")

	// ErrBadPadding is returned when the PKCS#7 padding recovered after
	// decryption is invalid.
	ErrBadPadding = errors.New("frame: bad padding")

	// ErrPayloadTooLarge is returned by Encode when the padded payload
	// would not fit within MaxTransmissionSize.
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)
