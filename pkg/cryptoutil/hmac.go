// Package cryptoutil collects the small set of primitive operations the
// secure channel core is built from: HMAC-SHA1 and constant-time comparison.
package cryptoutil

import (
	"crypto/hmac"
	"crypto/sha1"
	"hash"
)

// MACLen is the length in bytes of an HMAC-SHA1 output.
const MACLen = sha1.Size

// HMACSHA1 computes the HMAC-SHA1 of message under key.
func HMACSHA1(key, message []byte) [MACLen]byte {
	h := hmac.New(sha1.New, key)
	h.Write(message)
	var out [MACLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

// NewHMACSHA1 returns a hash.Hash for computing HMAC-SHA1 incrementally,
// useful when the message is assembled from several rounds (as the
// network entropy sampler does).
func NewHMACSHA1(key []byte) hash.Hash {
	return hmac.New(sha1.New, key)
}

// Equal reports whether two MACs (or tokens) are equal, in constant time
// with respect to their length. Use this instead of bytes.Equal wherever
// a secret-derived value is being compared.
func Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}
