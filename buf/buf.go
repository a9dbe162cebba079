package buf

import (
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
)

// Type is the HCI packet type of a buffer. The values are the H4 packet
// indicators.
type Type uint8

// HCI packet types.
const (
	TypeCmd   Type = 0x01
	TypeACL   Type = 0x02
	TypeSCO   Type = 0x03
	TypeEvent Type = 0x04
	TypeISO   Type = 0x05
)

func (t Type) String() string {
	switch t {
	case TypeCmd:
		return "cmd"
	case TypeACL:
		return "acl"
	case TypeSCO:
		return "sco"
	case TypeEvent:
		return "evt"
	case TypeISO:
		return "iso"
	default:
		return fmt.Sprintf("type(0x%02x)", uint8(t))
	}
}

// Valid reports whether t is a known packet type.
func (t Type) Valid() bool {
	return t >= TypeCmd && t <= TypeISO
}

// Headroom is reserved in front of every pool buffer for the H4 indicator.
const Headroom = 1

// UserDataSize is the size of the per buffer user data area.
const UserDataSize = 8

// Buf is a packet buffer. It is owned by exactly one holder at a time;
// handing it to a queue or a transport hands over ownership.
type Buf struct {
	Type     Type
	UserData [UserDataSize]byte

	mem  []byte
	off  int
	end  int
	pool *Pool

	allocated int32
}

// New returns a buffer that belongs to no pool, with size bytes of
// tailroom after Headroom.
func New(t Type, size int) *Buf {
	return &Buf{
		Type:      t,
		mem:       make([]byte, Headroom+size),
		off:       Headroom,
		end:       Headroom,
		allocated: 1,
	}
}

// Bytes returns the payload. The slice aliases the buffer.
func (b *Buf) Bytes() []byte { return b.mem[b.off:b.end] }

// Len returns the payload length.
func (b *Buf) Len() int { return b.end - b.off }

// Cap returns the total capacity including headroom.
func (b *Buf) Cap() int { return len(b.mem) }

// Headroom returns the bytes available in front of the payload.
func (b *Buf) Headroom() int { return b.off }

// Tailroom returns the bytes available after the payload.
func (b *Buf) Tailroom() int { return len(b.mem) - b.end }

// Pool returns the pool the buffer was allocated from, nil for New buffers.
func (b *Buf) Pool() *Pool { return b.pool }

// Add extends the payload by n bytes and returns the new region.
func (b *Buf) Add(n int) ([]byte, error) {
	if n < 0 || n > b.Tailroom() {
		return nil, errors.Wrapf(bthost.ErrNoResource, "add %d, tailroom %d", n, b.Tailroom())
	}
	s := b.mem[b.end : b.end+n]
	b.end += n
	return s, nil
}

// AddMem appends p to the payload.
func (b *Buf) AddMem(p []byte) error {
	s, err := b.Add(len(p))
	if err != nil {
		return err
	}
	copy(s, p)
	return nil
}

// AddU8 appends one byte.
func (b *Buf) AddU8(v uint8) error {
	s, err := b.Add(1)
	if err != nil {
		return err
	}
	s[0] = v
	return nil
}

// PushU8 prepends one byte using the headroom.
func (b *Buf) PushU8(v uint8) error {
	if b.off == 0 {
		return errors.Wrap(bthost.ErrNoResource, "no headroom")
	}
	b.off--
	b.mem[b.off] = v
	return nil
}

// Pull removes n bytes from the front of the payload and returns them.
func (b *Buf) Pull(n int) ([]byte, error) {
	if n < 0 || n > b.Len() {
		return nil, errors.Wrapf(bthost.ErrInvalid, "pull %d, len %d", n, b.Len())
	}
	s := b.mem[b.off : b.off+n]
	b.off += n
	return s, nil
}

// PullU8 removes and returns the first payload byte.
func (b *Buf) PullU8() (uint8, error) {
	s, err := b.Pull(1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// Reset empties the payload and restores the headroom.
func (b *Buf) Reset() {
	b.off = Headroom
	if b.off > len(b.mem) {
		b.off = len(b.mem)
	}
	b.end = b.off
	b.UserData = [UserDataSize]byte{}
}

// Unref releases the buffer back to its pool. The caller must not touch
// it afterwards. A second release is ignored once the assertion is off.
func (b *Buf) Unref() {
	if !atomic.CompareAndSwapInt32(&b.allocated, 1, 0) {
		bthost.Assert(false, "buf %p released twice", b)
		return
	}
	if b.pool != nil {
		b.pool.put(b)
	}
}
