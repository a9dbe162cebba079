package buf

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
)

// Pool is a fixed set of equally sized buffers.
type Pool struct {
	name  string
	size  int
	count int
	ch    chan *Buf

	mu      sync.Mutex
	destroy func(*Buf)
}

// NewPool allocates count buffers with size payload bytes each.
func NewPool(name string, count, size int) *Pool {
	p := &Pool{
		name:  name,
		size:  size,
		count: count,
		ch:    make(chan *Buf, count),
	}
	for len(p.ch) < count {
		p.ch <- &Buf{
			mem:  make([]byte, Headroom+size),
			pool: p,
		}
	}
	return p
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Size returns the payload size of each buffer.
func (p *Pool) Size() int { return p.size }

// Count returns the number of buffers in the pool.
func (p *Pool) Count() int { return p.count }

// Free returns the number of buffers currently available.
func (p *Pool) Free() int { return len(p.ch) }

// SetDestroyHook registers fn to observe every buffer released back to the
// pool. nil removes the hook.
func (p *Pool) SetDestroyHook(fn func(*Buf)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroy = fn
}

// Alloc takes a buffer of type t. A zero timeout does not wait, a negative
// timeout waits forever.
func (p *Pool) Alloc(t Type, timeout time.Duration) (*Buf, error) {
	var b *Buf
	switch {
	case timeout == 0:
		select {
		case b = <-p.ch:
		default:
			return nil, errors.Wrapf(bthost.ErrNoResource, "pool %s empty", p.name)
		}
	case timeout < 0:
		b = <-p.ch
	default:
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return p.AllocContext(ctx, t)
	}
	return p.taken(b, t), nil
}

// AllocContext takes a buffer of type t, waiting until ctx is done.
func (p *Pool) AllocContext(ctx context.Context, t Type) (*Buf, error) {
	select {
	case b := <-p.ch:
		return p.taken(b, t), nil
	case <-ctx.Done():
		return nil, errors.Wrapf(bthost.ErrNoResource, "pool %s: %v", p.name, ctx.Err())
	}
}

func (p *Pool) taken(b *Buf, t Type) *Buf {
	b.Reset()
	b.Type = t
	atomic.StoreInt32(&b.allocated, 1)
	return b
}

func (p *Pool) put(b *Buf) {
	p.mu.Lock()
	fn := p.destroy
	p.mu.Unlock()

	if fn != nil {
		fn(b)
	}
	p.ch <- b
}
