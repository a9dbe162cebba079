package buf

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
)

// Fifo is a bounded first-in first-out queue of buffers. Put never blocks.
type Fifo struct {
	ch chan *Buf
}

// NewFifo returns a queue holding at most capacity buffers.
func NewFifo(capacity int) *Fifo {
	if capacity < 1 {
		capacity = 1
	}
	return &Fifo{ch: make(chan *Buf, capacity)}
}

// Put appends b. When the queue is full it fails with ErrNoResource and b
// stays with the caller.
func (f *Fifo) Put(b *Buf) error {
	if b == nil {
		return errors.Wrap(bthost.ErrInvalid, "nil buf")
	}
	select {
	case f.ch <- b:
		return nil
	default:
		return errors.Wrapf(bthost.ErrNoResource, "fifo full (%d)", cap(f.ch))
	}
}

// Get removes the oldest buffer, waiting until one is available or ctx is
// done.
func (f *Fifo) Get(ctx context.Context) (*Buf, error) {
	select {
	case b := <-f.ch:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryGet removes the oldest buffer if there is one.
func (f *Fifo) TryGet() (*Buf, bool) {
	select {
	case b := <-f.ch:
		return b, true
	default:
		return nil, false
	}
}

// C exposes the queue for select loops.
func (f *Fifo) C() <-chan *Buf { return f.ch }

// Len returns the number of queued buffers.
func (f *Fifo) Len() int { return len(f.ch) }

// Cap returns the queue capacity.
func (f *Fifo) Cap() int { return cap(f.ch) }
