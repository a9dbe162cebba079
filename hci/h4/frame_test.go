package h4

import (
	"bytes"
	"testing"
	"time"
)

type collector struct {
	frames [][]byte
}

func (c *collector) out(p []byte) { c.frames = append(c.frames, p) }

func TestFrameSplitAcrossReads(t *testing.T) {
	var c collector
	f := newFrame(c.out)

	// command complete for HCI Reset, in three pieces
	f.Assemble([]byte{0x04, 0x0e})
	f.Assemble([]byte{0x04, 0x01, 0x03})
	if len(c.frames) != 0 {
		t.Fatalf("frame emitted early")
	}
	f.Assemble([]byte{0x0c, 0x00})

	if len(c.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(c.frames))
	}
	if !bytes.Equal(c.frames[0], []byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}) {
		t.Fatalf("unexpected frame % x", c.frames[0])
	}
}

func TestFrameSeveralInOneRead(t *testing.T) {
	var c collector
	f := newFrame(c.out)

	f.Assemble([]byte{
		0x04, 0x13, 0x00, // evt, empty
		0x02, 0x40, 0x00, 0x02, 0x00, 0xaa, 0xbb, // acl, 2 bytes
		0x05, 0x01, 0x00, 0x01, 0x40, 0xcc, // iso, flags in the length high bits
		0x04, 0x0f, // partial evt
	})

	if len(c.frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(c.frames))
	}
	if !bytes.Equal(c.frames[1], []byte{0x02, 0x40, 0x00, 0x02, 0x00, 0xaa, 0xbb}) {
		t.Fatalf("acl frame % x", c.frames[1])
	}
	if !bytes.Equal(c.frames[2], []byte{0x05, 0x01, 0x00, 0x01, 0x40, 0xcc}) {
		t.Fatalf("iso frame % x", c.frames[2])
	}
	if !bytes.Equal(f.b, []byte{0x04, 0x0f}) {
		t.Fatalf("partial frame % x", f.b)
	}
}

func TestFrameSkipsGarbage(t *testing.T) {
	var c collector
	f := newFrame(c.out)

	f.Assemble([]byte{0x00, 0xff, 0x80, 0x04, 0x13, 0x00})
	if len(c.frames) != 1 || c.frames[0][0] != 0x04 {
		t.Fatalf("unexpected frames %v", c.frames)
	}
}

func TestFrameTimeout(t *testing.T) {
	var c collector
	f := newFrame(c.out)
	now := time.Unix(1000, 0)
	f.now = func() time.Time { return now }

	f.Assemble([]byte{0x04, 0x0e, 0x04, 0x01})
	now = now.Add(frameTimeout + time.Millisecond)

	// stale partial is dropped, the new frame starts clean
	f.Assemble([]byte{0x04, 0x13, 0x00})
	if len(c.frames) != 1 || !bytes.Equal(c.frames[0], []byte{0x04, 0x13, 0x00}) {
		t.Fatalf("unexpected frames %v", c.frames)
	}
}
