// Package frame implements the wire envelope of the secure channel: a
// length-prefixed transmission authenticated with encrypt-then-MAC
// (AES-128-CBC for confidentiality, HMAC-SHA1 for integrity).
//
// A transmission is, in order: a 2-byte little-endian length, a 16-byte
// IV, an AES-128-CBC ciphertext whose length is a multiple of 16, and a
// 20-byte HMAC-SHA1 covering everything before it, including the length
// field itself. Encode fills in the length before computing the MAC so
// that framing is bound to the authenticated region; Decode verifies the
// MAC before attempting to decrypt anything, so a tampered transmission
// is never fed to the block cipher.
package frame

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/valblant/garagelink/pkg/cryptoutil"
)

const (
	// IVLen is the length in bytes of the AES-CBC initialization vector.
	IVLen = 16

	// BlockLen is the AES block size; ciphertext length is always a
	// multiple of it.
	BlockLen = 16

	// MACLen is the length in bytes of the trailing HMAC-SHA1.
	MACLen = cryptoutil.MACLen

	// LengthFieldLen is the length in bytes of the leading length field.
	LengthFieldLen = 2

	// MaxTransmissionSize is the largest permitted total transmission
	// size in bytes. The length field must satisfy 0 < length < this.
	MaxTransmissionSize = 256

	// headerLen is the number of bytes preceding the ciphertext.
	headerLen = LengthFieldLen + IVLen

	// minTransmissionSize is the smallest legal transmission: a
	// single ciphertext block plus header and MAC.
	minTransmissionSize = headerLen + BlockLen + MACLen
)

// Encode builds a complete wire transmission for payload, encrypted and
// authenticated under psk, using iv as the AES-CBC initialization vector.
// iv is normally produced by the session's RNG (Section 4.3); Encode does
// not generate it so that nonce generation stays centralized there.
func Encode(psk [16]byte, iv [16]byte, payload []byte) ([]byte, error) {
	padded := pkcs7Pad(payload)

	total := headerLen + len(padded) + MACLen
	if total >= MaxTransmissionSize {
		return nil, ErrPayloadTooLarge
	}

	block, err := aes.NewCipher(psk[:])
	if err != nil {
		return nil, err
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, padded)

	out := make([]byte, total)
	binary.LittleEndian.PutUint16(out[0:2], uint16(total))
	copy(out[2:headerLen], iv[:])
	copy(out[headerLen:headerLen+len(ciphertext)], ciphertext)

	mac := cryptoutil.HMACSHA1(psk[:], out[:headerLen+len(ciphertext)])
	copy(out[headerLen+len(ciphertext):], mac[:])

	return out, nil
}

// Decode verifies and decrypts a complete wire transmission, returning the
// plaintext payload. The MAC is checked before any decryption is attempted,
// and the only two outcomes for an inauthentic or malformed transmission
// are ErrMalformed and ErrBadMAC; no other error kind is distinguishable
// from the wire, which is why a failed Decode must never be treated as
// anything but "drop silently" by the caller (Section 7).
func Decode(psk [16]byte, wire []byte) ([]byte, error) {
	// The structural checks use the size of the transmission actually
	// received, so a tampered length field is caught by the MAC (which
	// covers it) and reported as ErrBadMAC like any other integrity failure.
	if len(wire) < minTransmissionSize || len(wire) >= MaxTransmissionSize {
		return nil, ErrMalformed
	}
	ciphertextLen := len(wire) - headerLen - MACLen
	if ciphertextLen <= 0 || ciphertextLen%BlockLen != 0 {
		return nil, ErrMalformed
	}

	macOffset := headerLen + ciphertextLen
	wantMAC := cryptoutil.HMACSHA1(psk[:], wire[:macOffset])
	if !cryptoutil.Equal(wantMAC[:], wire[macOffset:macOffset+MACLen]) {
		return nil, ErrBadMAC
	}
	if int(binary.LittleEndian.Uint16(wire[0:2])) != len(wire) {
		return nil, ErrMalformed
	}

	var iv [16]byte
	copy(iv[:], wire[2:headerLen])

	block, err := aes.NewCipher(psk[:])
	if err != nil {
		return nil, err
	}
	padded := make([]byte, ciphertextLen)
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(padded, wire[headerLen:macOffset])

	return pkcs7Unpad(padded)
}

// pkcs7Pad appends PKCS#7 padding to payload. The original firmware
// computes pad = aesLen - msgLen where aesLen = (msgLen &^ 15) + 16,
// which always yields pad in 1..16 inclusive, including the edge case
// where the payload is already block-aligned (pad = 16, a full extra
// block of padding, not zero padding).
func pkcs7Pad(payload []byte) []byte {
	pad := BlockLen - (len(payload) % BlockLen)
	out := make([]byte, len(payload)+pad)
	copy(out, payload)
	for i := len(payload); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

// pkcs7Unpad strips and validates PKCS#7 padding from a decrypted block.
func pkcs7Unpad(padded []byte) ([]byte, error) {
	if len(padded) == 0 || len(padded)%BlockLen != 0 {
		return nil, ErrBadPadding
	}
	pad := int(padded[len(padded)-1])
	if pad < 1 || pad > BlockLen || pad > len(padded) {
		return nil, ErrBadPadding
	}
	for i := len(padded) - pad; i < len(padded); i++ {
		if padded[i] != byte(pad) {
			return nil, ErrBadPadding
		}
	}
	return padded[:len(padded)-pad], nil
}
