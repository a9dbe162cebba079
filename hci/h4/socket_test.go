package h4

import (
	"net"
	"testing"
	"time"
)

func TestDeadlineConnIdleRead(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c := &deadlineConn{Conn: a, timeout: 20 * time.Millisecond}
	defer c.Close()

	start := time.Now()
	n, err := c.Read(make([]byte, 8))
	if n != 0 || err != nil {
		t.Fatalf("expected idle read, got %d %v", n, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("read returned before the deadline")
	}

	go b.Write([]byte{0x04, 0x13, 0x00})
	if n, err := c.Read(make([]byte, 8)); n != 3 || err != nil {
		t.Fatalf("expected 3 bytes, got %d %v", n, err)
	}
}

func TestDeadlineConnWriteTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c := &deadlineConn{Conn: a, timeout: 20 * time.Millisecond}
	defer c.Close()

	// nobody reads the other end
	if _, err := c.Write([]byte{0x01, 0x03, 0x0c, 0x00}); !isTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
