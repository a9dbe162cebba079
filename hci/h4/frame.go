package h4

import (
	"fmt"
	"time"

	"github.com/rigado/bthost/buf"
)

const frameTimeout = 500 * time.Millisecond

// frame reassembles H4 packets from a byte stream. Bytes before a known
// packet indicator are skipped; a partial frame older than frameTimeout is
// discarded.
type frame struct {
	b       []byte
	timeout time.Time
	out     func([]byte)
	now     func() time.Time
}

func newFrame(out func([]byte)) *frame {
	return &frame{
		b:   make([]byte, 0, 256),
		out: out,
		now: time.Now,
	}
}

func (f *frame) Assemble(b []byte) {
	if len(b) == 0 {
		return
	}
	if len(f.b) != 0 && f.now().After(f.timeout) {
		f.reset()
	}

	for len(b) > 0 {
		if len(f.b) == 0 {
			b = f.waitStart(b)
			if len(b) == 0 {
				return
			}
			f.timeout = f.now().Add(frameTimeout)
		}

		f.b = append(f.b, b...)
		b = nil

		for len(f.b) > 0 {
			tl, err := f.totalLength()
			if err != nil || len(f.b) < tl {
				// need more bytes
				return
			}

			out := make([]byte, tl)
			copy(out, f.b[:tl])
			rem := f.b[tl:]
			f.reset()
			f.out(out)

			if len(rem) > 0 {
				b = append([]byte(nil), rem...)
				break
			}
		}
	}
}

func (f *frame) reset() {
	f.b = f.b[:0]
	f.timeout = time.Time{}
}

// waitStart drops bytes up to the first packet indicator.
func (f *frame) waitStart(b []byte) []byte {
	for i, v := range b {
		if buf.Type(v).Valid() {
			return b[i:]
		}
	}
	return nil
}

// totalLength returns the full frame length including the indicator, once
// enough of the header is buffered.
func (f *frame) totalLength() (int, error) {
	need := func(n int) error {
		if len(f.b) < n {
			return fmt.Errorf("not enough bytes")
		}
		return nil
	}

	switch buf.Type(f.b[0]) {
	case buf.TypeCmd:
		// opcode(2) len(1)
		if err := need(4); err != nil {
			return 0, err
		}
		return 4 + int(f.b[3]), nil
	case buf.TypeACL:
		// handle(2) len(2)
		if err := need(5); err != nil {
			return 0, err
		}
		return 5 + (int(f.b[3]) | int(f.b[4])<<8), nil
	case buf.TypeSCO:
		// handle(2) len(1)
		if err := need(4); err != nil {
			return 0, err
		}
		return 4 + int(f.b[3]), nil
	case buf.TypeEvent:
		// code(1) len(1)
		if err := need(3); err != nil {
			return 0, err
		}
		return 3 + int(f.b[2]), nil
	case buf.TypeISO:
		// handle(2) len(14 bits)
		if err := need(5); err != nil {
			return 0, err
		}
		return 5 + (int(f.b[3])|int(f.b[4])<<8)&0x3fff, nil
	default:
		return 0, fmt.Errorf("invalid packet type 0x%02x", f.b[0])
	}
}
