// Package rng implements the secure channel's pseudo-random generator:
// a seeded 48-bit multiplicative LCG (the drand48/mrand48 family) whose
// output is mixed with per-boot network-timing entropy and per-call
// timer entropy, both expanded through HMAC-SHA1 under the pre-shared
// key. It produces the 128-bit nonces used as handshake challenges and
// AES-CBC IVs.
//
// The construction is not claimed to be cryptographically strong; it
// reproduces the observable behavior of the original firmware's entropy
// mixer (Section 4.3), which itself makes no such claim.
package rng

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/valblant/garagelink/pkg/cryptoutil"
	"github.com/valblant/garagelink/pkg/seedstore"
)

// multiplier and increment are the standard drand48-family LCG constants.
const (
	multiplier uint64 = 0x5DEECE66D
	increment  uint64 = 0xB
	mask48     uint64 = (1 << 48) - 1
)

// Config configures a Generator.
type Config struct {
	// PSK is the pre-shared key, reused here as an HMAC key for entropy
	// expansion (Section 4.3).
	PSK [16]byte

	// Store supplies the 48-bit seed that initializes the LCG state.
	Store *seedstore.Store

	// PingEnabled selects whether network-timing entropy is gathered
	// from PingTarget on first use, or a fixed substitute value is used
	// instead. This is the runtime equivalent of the original firmware's
	// PING_TEST_SERVER build-time switch.
	PingEnabled bool

	// PingTarget is a "host:port" TCP address probed for round-trip
	// timing when PingEnabled is set. The original pings an IP address
	// with ICMP; a TCP connect-latency probe is used here instead so
	// that this core does not require raw-socket privileges.
	PingTarget string

	LoggerFactory logging.LoggerFactory
}

// Generator is the entropy-mixing pseudo-random generator of Section 4.3.
// It is owned by the Controller, not a package-level singleton.
type Generator struct {
	psk   [16]byte
	store *seedstore.Store

	pingEnabled bool
	pingTarget  string

	log logging.LeveledLogger

	mu              sync.Mutex
	initialized     bool
	state           uint64   // 48-bit LCG state, held in the low 48 bits
	networkEntropy  [16]byte // computed once, on first use
}

// New creates a Generator. Initialization of the LCG state and the
// network entropy sample is deferred to the first call to Nonce, matching
// the original's init-on-first-use behavior.
func New(cfg Config) *Generator {
	g := &Generator{
		psk:         cfg.PSK,
		store:       cfg.Store,
		pingEnabled: cfg.PingEnabled,
		pingTarget:  cfg.PingTarget,
	}
	if cfg.LoggerFactory != nil {
		g.log = cfg.LoggerFactory.NewLogger("rng")
	}
	return g
}

// Nonce fills and returns a fresh 16-byte pseudorandom value, suitable as
// a handshake challenge or an AES-CBC IV.
func (g *Generator) Nonce() [16]byte {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized {
		g.init()
	}

	timerEntropy := g.timerEntropy()

	var out [16]byte
	for i := 0; i < 4; i++ {
		word := g.next() ^ le32(timerEntropy[i*4:i*4+4]) ^ le32(g.networkEntropy[i*4:i*4+4])
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], word)
	}
	return out
}

// init seeds the LCG from the seed store and samples network entropy
// once. Guarded by g.mu via the caller.
func (g *Generator) init() {
	seed, err := g.store.NextSeed()
	if err != nil {
		if g.log != nil {
			g.log.Warnf("seed store unavailable, starting from zero state: %v", err)
		}
	}
	g.state = seed48(seed)
	g.networkEntropy = g.sampleNetworkEntropy()
	g.initialized = true
}

// seed48 packs a little-endian 6-byte seed into the 48-bit LCG state the
// way the original's seed48(uint16_t[3]) does: the first two bytes are
// the low-order 16 bits of the state, the last two are the high-order 16.
func seed48(seed [6]byte) uint64 {
	s0 := uint64(binary.LittleEndian.Uint16(seed[0:2]))
	s1 := uint64(binary.LittleEndian.Uint16(seed[2:4]))
	s2 := uint64(binary.LittleEndian.Uint16(seed[4:6]))
	return s0 | s1<<16 | s2<<32
}

// next advances the LCG one step and returns the top 32 bits of the new
// 48-bit state, matching mrand48()'s output word.
func (g *Generator) next() uint32 {
	g.state = (g.state*multiplier + increment) & mask48
	return uint32(g.state >> 16)
}

// timerEntropy computes HMAC(PSK, current_millis_le)[:16], refreshed on
// every call per Section 4.3.
func (g *Generator) timerEntropy() [16]byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(time.Now().UnixMilli()))
	mac := cryptoutil.HMACSHA1(g.psk[:], buf[:])
	var out [16]byte
	copy(out[:], mac[:16])
	return out
}

// sampleNetworkEntropy reproduces the original's 10-round HMAC over a
// ping round-trip time, substituting a fixed value when pinging is
// disabled.
func (g *Generator) sampleNetworkEntropy() [16]byte {
	h := cryptoutil.NewHMACSHA1(g.psk[:])
	for i := 0; i < 10; i++ {
		var sample uint32 = 43
		if g.pingEnabled {
			sample = g.pingRoundTrip()
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], sample)
		h.Write(buf[:])
	}
	var out [16]byte
	copy(out[:], h.Sum(nil)[:16])
	return out
}

// pingRoundTrip measures TCP connect latency to pingTarget, in
// milliseconds, as a substitute for the original's ICMP ping burst.
func (g *Generator) pingRoundTrip() uint32 {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", g.pingTarget, 500*time.Millisecond)
	if err != nil {
		return 43
	}
	conn.Close()
	return uint32(time.Since(start).Milliseconds())
}

func le32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
