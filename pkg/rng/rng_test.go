package rng

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/valblant/garagelink/pkg/seedstore"
)

func newTestStore(t *testing.T) *seedstore.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seeds.bin")

	buf := make([]byte, seedstore.FileSize)
	copy(buf[0:6], []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66})
	binary.LittleEndian.PutUint16(buf[seedstore.IndexOffset:], 0)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := seedstore.Open(seedstore.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestNonceDistinctAcrossCalls(t *testing.T) {
	g := New(Config{
		PSK:   [16]byte{1, 2, 3},
		Store: newTestStore(t),
	})

	a := g.Nonce()
	b := g.Nonce()
	if bytes.Equal(a[:], b[:]) {
		t.Fatalf("two consecutive nonces were equal: %x", a)
	}
}

func TestNonceDeterministicGivenSamePSKAndSeed(t *testing.T) {
	// Two independently constructed generators sharing a PSK and an
	// identical seed file, with pinging disabled (the constant substitute
	// for network entropy), start from the same LCG state and the same
	// network entropy. Their Nonce outputs also mix in wall-clock timer
	// entropy, so determinism is checked on the PRG words and the network
	// entropy rather than on whole nonces.
	g1 := New(Config{PSK: [16]byte{9}, Store: newTestStore(t)})
	g2 := New(Config{PSK: [16]byte{9}, Store: newTestStore(t)})

	g1.init()
	g2.init()
	if g1.networkEntropy != g2.networkEntropy {
		t.Fatalf("network entropy differs: %x vs %x", g1.networkEntropy, g2.networkEntropy)
	}
	for i := 0; i < 4; i++ {
		if w1, w2 := g1.next(), g2.next(); w1 != w2 {
			t.Fatalf("PRG word %d differs: %#x vs %#x", i, w1, w2)
		}
	}

	n1 := g1.Nonce()
	n2 := g2.Nonce()
	if len(n1) != 16 || len(n2) != 16 {
		t.Fatalf("expected 16-byte nonces")
	}
}

func TestPingDisabledUsesConstantSubstitute(t *testing.T) {
	g := New(Config{
		PSK:         [16]byte{5},
		Store:       newTestStore(t),
		PingEnabled: false,
	})
	g.init()
	if g.networkEntropy == [16]byte{} {
		t.Fatalf("expected non-zero network entropy from constant substitute")
	}
}
