package controller

import (
	"time"

	"github.com/pion/logging"
)

// DefaultListenAddr is the address the controller accepts its single
// connection on when Config.ListenAddr is unset.
const DefaultListenAddr = ":7777"

// DefaultConversationDuration is the conversation lifetime applied when
// Config.ConversationDuration is unset, per Section 5.
const DefaultConversationDuration = 5000 * time.Millisecond

// Config configures a Controller, mirroring the teacher's NodeConfig
// pattern: a plain struct validated once in NewController and given its
// defaults before anything downstream reads it.
type Config struct {
	// PSK is the pre-shared key used for both AES-128-CBC and
	// HMAC-SHA1. Required; rejected if all-zero.
	PSK [16]byte

	// ListenAddr is the TCP address to accept the single connection on.
	// Defaults to ":7777".
	ListenAddr string

	// ConversationDuration is the lifetime of a conversation after a
	// successful handshake. Defaults to 5000ms.
	ConversationDuration time.Duration

	// SeedStorePath is the path to the seed file of Section 6.
	// Required.
	SeedStorePath string

	// RotateSeed is the runtime equivalent of the original's
	// build-time ROTATE_SEED switch.
	RotateSeed bool

	// PingEnabled and PingTarget are the runtime equivalent of the
	// original's PING_TEST_SERVER switch. When PingEnabled is false,
	// the constant substitute is used for network entropy.
	PingEnabled bool
	PingTarget  string

	// Advertise and ServiceName control whether the controller
	// announces itself via mDNS.
	Advertise   bool
	ServiceName string

	// Door is the command handler. Required.
	Door Consumer

	LoggerFactory logging.LoggerFactory
}

// Consumer is the command handler the session state machine dispatches
// decrypted commands to. Implemented by *door.Door.
type Consumer interface {
	ProcessMessage(payload []byte) []byte
}

// Validate checks the configuration for errors that applyDefaults
// cannot resolve on its own.
func (c *Config) Validate() error {
	if c.PSK == [16]byte{} {
		return ErrPSKRequired
	}
	if c.SeedStorePath == "" {
		return ErrSeedStorePathRequired
	}
	if c.Door == nil {
		return ErrNoDoor
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.ConversationDuration == 0 {
		c.ConversationDuration = DefaultConversationDuration
	}
	if c.ServiceName == "" {
		c.ServiceName = "garage-controller"
	}
}
