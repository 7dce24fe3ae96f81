package transport

import (
	"bytes"
	"context"
	"net"
	"sync"

	"github.com/pion/logging"
)

// Config configures a TCPChannel.
type Config struct {
	// ListenAddr is the address to accept the single connection on.
	ListenAddr string

	// LoggerFactory is the factory for creating loggers. If nil, logging
	// is disabled.
	LoggerFactory logging.LoggerFactory
}

// TCPChannel is the production Channel, grounded in the teacher's
// pkg/transport/tcp.go but reduced from a map of concurrent connections
// to exactly one: multi-client concurrent sessions are a non-goal
// (Section 5). A background goroutine accumulates inbound bytes into a
// buffer so Read can honor the "k in {0,n}" contract of Section 6
// without ever blocking the caller's tick.
type TCPChannel struct {
	listener net.Listener
	log      logging.LeveledLogger

	connCh  chan net.Conn
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	conn    net.Conn
	inbox   bytes.Buffer
	readErr error
	closed  bool
}

// NewTCPChannel creates a listener on cfg.ListenAddr and starts the
// background accept loop. It does not block waiting for a peer; call
// Open for that.
func NewTCPChannel(cfg Config) (*TCPChannel, error) {
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	t := &TCPChannel{
		listener: listener,
		connCh:   make(chan net.Conn),
		closeCh:  make(chan struct{}),
	}
	if cfg.LoggerFactory != nil {
		t.log = cfg.LoggerFactory.NewLogger("transport-tcp")
	}

	t.wg.Add(1)
	go t.acceptLoop()

	return t, nil
}

// Addr returns the listener's address, useful when ListenAddr uses an
// ephemeral port (":0") in tests.
func (t *TCPChannel) Addr() net.Addr {
	return t.listener.Addr()
}

// Open blocks until a peer connects or ctx is done. A connection
// accepted while one is already active is refused (Section 5).
func (t *TCPChannel) Open(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	select {
	case conn := <-t.connCh:
		t.mu.Lock()
		t.conn = conn
		t.mu.Unlock()
		t.wg.Add(1)
		go t.readPump(conn)
		if t.log != nil {
			t.log.Infof("accepted connection from %s", conn.RemoteAddr())
		}
		return nil
	case <-t.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *TCPChannel) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closeCh:
				return
			default:
				continue
			}
		}

		t.mu.Lock()
		active := t.conn != nil
		t.mu.Unlock()
		if active {
			if t.log != nil {
				t.log.Warnf("refusing connection from %s: already connected", conn.RemoteAddr())
			}
			conn.Close()
			continue
		}

		select {
		case t.connCh <- conn:
		case <-t.closeCh:
			conn.Close()
			return
		}
	}
}

func (t *TCPChannel) readPump(conn net.Conn) {
	defer t.wg.Done()
	tmp := make([]byte, 512)
	for {
		n, err := conn.Read(tmp)
		if n > 0 {
			t.mu.Lock()
			t.inbox.Write(tmp[:n])
			t.mu.Unlock()
		}
		if err != nil {
			t.mu.Lock()
			if t.readErr == nil {
				t.readErr = err
			}
			t.mu.Unlock()
			return
		}
	}
}

// Read implements the atomic-or-nothing contract of Section 6: it
// returns exactly len(buf) bytes, or 0 with a nil error when fewer
// bytes are currently buffered.
func (t *TCPChannel) Read(buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inbox.Len() < len(buf) {
		if t.readErr != nil && t.inbox.Len() == 0 {
			return 0, t.readErr
		}
		return 0, nil
	}
	return t.inbox.Read(buf)
}

// Write sends buf to the connected peer.
func (t *TCPChannel) Write(buf []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return 0, ErrClosed
	}
	return conn.Write(buf)
}

// Close shuts down the listener, the active connection, and the accept
// and read-pump goroutines. Idempotent.
func (t *TCPChannel) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	close(t.closeCh)
	t.listener.Close()
	if conn != nil {
		conn.Close()
	}
	t.wg.Wait()
	return nil
}

var _ Channel = (*TCPChannel)(nil)
