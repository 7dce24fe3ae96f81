package frame

import (
	"bytes"
	"testing"
)

var testPSK = [16]byte{0: 1, 1: 2, 2: 3, 15: 0xff}

func mustEncode(t *testing.T, payload []byte) []byte {
	t.Helper()
	var iv [16]byte
	copy(iv[:], []byte("0123456789abcdef"))
	wire, err := Encode(testPSK, iv, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return wire
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"short", []byte("NEED_CHALLENGE")},
		{"block-aligned-16", bytes.Repeat([]byte{0x42}, 16)},
		{"block-aligned-32", bytes.Repeat([]byte{0x7}, 32)},
		{"near-max-207", bytes.Repeat([]byte{0x9}, 207)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := mustEncode(t, tt.payload)
			got, err := Decode(testPSK, wire)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Fatalf("got %q, want %q", got, tt.payload)
			}
		})
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	var iv [16]byte
	_, err := Encode(testPSK, iv, bytes.Repeat([]byte{0}, 300))
	if err != ErrPayloadTooLarge {
		t.Fatalf("got %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecodeBitFlipIsBadMAC(t *testing.T) {
	wire := mustEncode(t, []byte("GET_STATUS"))
	for i := 0; i < len(wire)-MACLen; i++ {
		corrupt := append([]byte(nil), wire...)
		corrupt[i] ^= 0x01
		_, err := Decode(testPSK, corrupt)
		if err != ErrBadMAC {
			t.Fatalf("byte %d: got %v, want ErrBadMAC", i, err)
		}
	}
}

func TestDecodeTruncation(t *testing.T) {
	wire := mustEncode(t, []byte("GET_STATUS"))
	for n := 1; n < len(wire); n++ {
		_, err := Decode(testPSK, wire[:n])
		if err != ErrMalformed && err != ErrBadMAC {
			t.Fatalf("truncated to %d: got %v, want ErrMalformed or ErrBadMAC", n, err)
		}
	}
}

func TestDecodeLengthOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		wire []byte
	}{
		{"zero-length", []byte{0x00, 0x00}},
		{"length-too-big", []byte{0x2c, 0x01}}, // 300
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(testPSK, tt.wire)
			if err != ErrMalformed {
				t.Fatalf("got %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeMismatchedDeclaredLength(t *testing.T) {
	wire := mustEncode(t, []byte("GET_STATUS"))
	wire = append(wire, 0x00) // declared length no longer matches slice length
	_, err := Decode(testPSK, wire)
	if err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestWrongKeyIsBadMAC(t *testing.T) {
	wire := mustEncode(t, []byte("GET_STATUS"))
	var otherPSK [16]byte
	otherPSK[0] = 0xAA
	_, err := Decode(otherPSK, wire)
	if err != ErrBadMAC {
		t.Fatalf("got %v, want ErrBadMAC", err)
	}
}
