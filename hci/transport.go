package hci

import (
	"time"

	"github.com/rigado/bthost/buf"
)

// Transport is the byte conduit to the controller (UART, USB, socket).
// A raw channel binds exactly one transport for its lifetime.
type Transport interface {
	// Name identifies the transport in logs.
	Name() string

	// Open starts the transport. From then on every packet received from
	// the controller is handed to h.Recv.
	Open(h Host) error

	// Close stops the transport.
	Close() error

	// Send writes one packet to the controller. On success the transport
	// owns b and releases it; on failure b stays with the caller.
	Send(b *buf.Buf) error
}

// Host is what a transport sees of the stack.
type Host interface {
	// Recv hands a controller packet to the stack. On success the stack
	// owns b; on error the transport still owns it and must release it.
	Recv(b *buf.Buf) error

	// RxBuf allocates a receive buffer of type t.
	RxBuf(t buf.Type, timeout time.Duration) (*buf.Buf, error)
}
