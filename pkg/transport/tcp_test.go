package transport

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/pion/transport/v3/test"
)

func TestTCPChannelRoundTripOverLoopback(t *testing.T) {
	ch, err := NewTCPChannel(Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewTCPChannel: %v", err)
	}
	defer ch.Close()

	client, dialErr := net.Dial("tcp", ch.Addr().String())
	if dialErr != nil {
		t.Fatalf("Dial: %v", dialErr)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ch.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("client Write: %v", err)
	}
	buf := waitForBytes(t, ch, 4)
	if !bytes.Equal(buf, []byte("ping")) {
		t.Fatalf("server received %q, want %q", buf, "ping")
	}

	if _, err := ch.Write([]byte("pong")); err != nil {
		t.Fatalf("server Write: %v", err)
	}
	got := make([]byte, 4)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := readFull(client, got); err != nil {
		t.Fatalf("client Read: %v", err)
	}
	if !bytes.Equal(got, []byte("pong")) {
		t.Fatalf("client received %q, want %q", got, "pong")
	}
}

func TestTCPChannelRefusesSecondConnection(t *testing.T) {
	ch, err := NewTCPChannel(Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewTCPChannel: %v", err)
	}
	defer ch.Close()

	first, err := net.Dial("tcp", ch.Addr().String())
	if err != nil {
		t.Fatalf("Dial first: %v", err)
	}
	defer first.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ch.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	second, err := net.Dial("tcp", ch.Addr().String())
	if err != nil {
		t.Fatalf("Dial second: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	one := make([]byte, 1)
	if _, err := second.Read(one); err == nil {
		t.Fatalf("expected the second connection to be refused and closed")
	}
}

// TestTCPChannelOverPionBridge drives the two halves of a TCPChannel-style
// exchange over the in-memory connection pair supplied by pion's
// test.Bridge, the
// same dependency the teacher's pkg/transport/pipe.go uses for
// deterministic virtual-network tests.
func TestTCPChannelOverPionBridge(t *testing.T) {
	bridge := test.NewBridge()
	defer bridge.GetConn0().Close()
	defer bridge.GetConn1().Close()

	server := &TCPChannel{conn: bridge.GetConn0(), connCh: make(chan net.Conn), closeCh: make(chan struct{})}
	server.wg.Add(1)
	go server.readPump(bridge.GetConn0())

	if _, err := bridge.GetConn1().Write([]byte("knock")); err != nil {
		t.Fatalf("peer Write: %v", err)
	}
	for i := 0; i < 10 && bridge.Tick() > 0; i++ {
	}

	buf := waitForBytes(t, server, 5)
	if !bytes.Equal(buf, []byte("knock")) {
		t.Fatalf("server received %q, want %q", buf, "knock")
	}
}

func waitForBytes(t *testing.T, ch *TCPChannel, n int) []byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	buf := make([]byte, n)
	for time.Now().Before(deadline) {
		got, err := ch.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got == n {
			return buf
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d bytes", n)
	return nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
