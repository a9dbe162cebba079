package hci

import (
	"fmt"

	"github.com/rigado/bthost/buf"
)

// H4 asks GetTx to take the packet type from the first byte of data.
const H4 buf.Type = 0x00

// State of the raw channel.
type State int32

const (
	StateUnbound State = iota
	StateBound
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Mode selects how packet types travel inside raw channel buffers.
type Mode int32

const (
	// ModePassthrough keeps the type in buf.Buf.Type only.
	ModePassthrough Mode = iota
	// ModeH4 additionally carries the H4 indicator as the first payload
	// byte of every buffer crossing the raw channel.
	ModeH4
)

func (m Mode) String() string {
	switch m {
	case ModePassthrough:
		return "passthrough"
	case ModeH4:
		return "h4"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// number of counter slots, indexed by buf.Type
const typeSlots = int(buf.TypeISO) + 1
