package transport

import (
	"bytes"
	"context"
	"sync"
)

// MemoryChannel is an in-memory Channel backed by a byte queue, grounded
// in the teacher's pkg/transport/pipe.go virtual-network pattern but
// reduced to the single point-to-point connection this core needs.
// Open is a no-op: a MemoryChannel pair is connected at construction.
type MemoryChannel struct {
	mu     sync.Mutex
	inbox  *bytes.Buffer
	outbox *bytes.Buffer
	closed bool
}

// NewMemoryChannelPair returns two interlocked MemoryChannels: bytes
// written to one are read from the other.
func NewMemoryChannelPair() (*MemoryChannel, *MemoryChannel) {
	a := &bytes.Buffer{}
	b := &bytes.Buffer{}
	left := &MemoryChannel{inbox: a, outbox: b}
	right := &MemoryChannel{inbox: b, outbox: a}
	return left, right
}

// Open is immediate; MemoryChannel has no handshake of its own.
func (c *MemoryChannel) Open(ctx context.Context) error {
	return nil
}

// Read implements the atomic-or-nothing contract: exactly len(buf)
// bytes, or 0 with a nil error if fewer are currently queued.
func (c *MemoryChannel) Read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}
	if c.inbox.Len() < len(buf) {
		return 0, nil
	}
	return c.inbox.Read(buf)
}

// Write queues buf for the peer channel.
func (c *MemoryChannel) Write(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}
	return c.outbox.Write(buf)
}

// Close marks the channel closed. The peer channel is unaffected; tests
// close both ends explicitly.
func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var _ Channel = (*MemoryChannel)(nil)
