// Package session implements the secure channel's receive loop and
// conversation lifecycle (Section 4.2): a two-state, non-blocking state
// machine that reads length-prefixed transmissions from a Channel,
// authenticates and decrypts them via pkg/frame, runs the challenge/
// response handshake, and dispatches commanded payloads to a Consumer.
package session

import (
	"encoding/binary"
	"time"

	"github.com/pion/logging"

	"github.com/valblant/garagelink/pkg/cryptoutil"
	"github.com/valblant/garagelink/pkg/frame"
)

// state is one of the two transmission-receive stages of Section 4.2.
type state int

const (
	stateNeedLength state = iota
	stateReceiving
)

// Noncer produces the 16-byte pseudorandom values used as challenges and
// IVs. Satisfied by *rng.Generator; a small interface here keeps the
// session package free of a hard dependency on how entropy is produced,
// and lets tests substitute a deterministic source.
type Noncer interface {
	Nonce() [16]byte
}

// Consumer is the external command handler of Section 4.5/6.1. It must
// be non-blocking and must not retain the payload slice past the call.
type Consumer interface {
	ProcessMessage(payload []byte) []byte
}

// Channel is the byte-transport contract of Section 6: Read returns
// either exactly len(buf) bytes or zero, never a short positive count;
// Write is best-effort.
type Channel interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
}

const needChallenge = "NEED_CHALLENGE"
const sessionExpired = "SESSION_EXPIRED"

// tokenLen is the length in bytes of a conversation_token.
const tokenLen = 20

// Config configures a Machine.
type Config struct {
	PSK [16]byte

	// ConversationDuration is the lifetime of a conversation after a
	// successful handshake. Defaults to 5000ms if zero.
	ConversationDuration time.Duration

	RNG      Noncer
	Channel  Channel
	Consumer Consumer

	LoggerFactory logging.LoggerFactory
}

// Machine is the session state machine of Section 4.2. It owns the
// receive buffer and the single current conversation; there is no
// locking because it is stepped by exactly one goroutine (Section 5).
type Machine struct {
	psk                  [16]byte
	conversationDuration time.Duration

	rng      Noncer
	channel  Channel
	consumer Consumer
	log      logging.LeveledLogger

	state state
	// recvBuf holds the in-progress transmission, sized to its declared
	// length once known. recvBuf[0:2] is filled in while still in
	// stateNeedLength.
	recvBuf []byte

	conv conversation
}

// NewMachine constructs a Machine. The conversation starts invalid; the
// first conversation is created by the client's NEED_CHALLENGE handshake.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Consumer == nil {
		return nil, ErrNoConsumer
	}
	if cfg.Channel == nil {
		return nil, ErrNoChannel
	}
	if cfg.ConversationDuration == 0 {
		cfg.ConversationDuration = 5000 * time.Millisecond
	}

	m := &Machine{
		psk:                  cfg.PSK,
		conversationDuration: cfg.ConversationDuration,
		rng:                  cfg.RNG,
		channel:              cfg.Channel,
		consumer:             cfg.Consumer,
		state:                stateNeedLength,
	}
	if cfg.LoggerFactory != nil {
		m.log = cfg.LoggerFactory.NewLogger("session")
	}
	return m, nil
}

// Step performs one bounded, non-blocking unit of work: at most one read
// of the length prefix or the body, and at most one response write. It
// never blocks on I/O and must be called repeatedly by the host process.
func (m *Machine) Step() error {
	m.invalidateIfExpired(time.Now())

	switch m.state {
	case stateNeedLength:
		return m.stepNeedLength()
	case stateReceiving:
		return m.stepReceiving()
	}
	return nil
}

func (m *Machine) stepNeedLength() error {
	buf := make([]byte, 2)
	n, err := m.channel.Read(buf)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	length := binary.LittleEndian.Uint16(buf)
	if length == 0 || length >= frame.MaxTransmissionSize {
		m.reset()
		return nil
	}

	m.recvBuf = make([]byte, length)
	copy(m.recvBuf[0:2], buf)
	m.state = stateReceiving
	return nil
}

func (m *Machine) stepReceiving() error {
	body := make([]byte, len(m.recvBuf)-2)
	n, err := m.channel.Read(body)
	if err != nil {
		m.reset()
		return err
	}
	if n == len(body) {
		copy(m.recvBuf[2:], body)
		m.processTransmission(m.recvBuf)
	}
	m.reset()
	return nil
}

func (m *Machine) reset() {
	m.recvBuf = nil
	m.state = stateNeedLength
}

// invalidateIfExpired clears the conversation once its deadline has
// passed. Called at the start of every tick; isConversationValid also
// checks the deadline on its own when a command is dispatched.
func (m *Machine) invalidateIfExpired(now time.Time) {
	if m.conv.valid && m.conv.expired(now) {
		if m.log != nil {
			m.log.Debug("conversation expired")
		}
		m.conv = conversation{}
	}
}

// processTransmission decrypts a complete transmission and dispatches
// it. Any decryption failure is dropped silently; the server must never
// act as a decryption oracle (Section 4.2 step 2).
func (m *Machine) processTransmission(wire []byte) {
	payload, err := frame.Decode(m.psk, wire)
	if err != nil {
		if m.log != nil {
			m.log.Debugf("dropping transmission: %v", err)
		}
		return
	}
	if len(payload) == 0 {
		return
	}

	if string(payload) == needChallenge {
		m.handleHandshake()
		return
	}

	if len(payload) < tokenLen {
		m.sendEncrypted([]byte(sessionExpired))
		return
	}

	token := payload[:tokenLen]
	command := payload[tokenLen:]

	if !m.isConversationValid(token, time.Now()) {
		m.sendEncrypted([]byte(sessionExpired))
		return
	}

	response := m.consumer.ProcessMessage(command)
	m.sendEncrypted(response)
}

// handleHandshake implements Section 4.2 step 3: generate a challenge,
// derive the conversation token from it, start the deadline, and send
// the challenge back. A new handshake always supersedes any prior
// conversation, even one not yet expired (Section 5).
func (m *Machine) handleHandshake() {
	challenge := m.rng.Nonce()
	token := cryptoutil.HMACSHA1(m.psk[:], challenge[:])

	m.conv = conversation{
		token:    token,
		valid:    true,
		deadline: time.Now().Add(m.conversationDuration),
	}

	m.sendEncrypted(challenge[:])
}

// isConversationValid reports whether token matches the current
// conversation and the conversation has not expired, per Section 4.2
// step 4. The comparison is constant-time.
func (m *Machine) isConversationValid(token []byte, now time.Time) bool {
	if !m.conv.valid || m.conv.expired(now) {
		return false
	}
	return cryptoutil.Equal(m.conv.token[:], token)
}

// sendEncrypted encrypts payload and writes it to the channel, unless
// its length is at or below 2 bytes: the consumer signals "do not reply"
// with an empty or single-byte response, and that suppression applies
// uniformly to handshake, session-expired, and command replies alike
// (Section 4.2 step 5), matching the original's single shared guard.
func (m *Machine) sendEncrypted(payload []byte) {
	if len(payload) <= 2 {
		return
	}

	iv := m.rng.Nonce()
	wire, err := frame.Encode(m.psk, iv, payload)
	if err != nil {
		if m.log != nil {
			m.log.Warnf("failed to encode response: %v", err)
		}
		return
	}

	if _, err := m.channel.Write(wire); err != nil {
		if m.log != nil {
			m.log.Debugf("failed to write response: %v", err)
		}
	}
}
