package host

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
	"github.com/rigado/bthost/hci"
	"github.com/rigado/bthost/hci/h4"
	"github.com/rigado/bthost/hci/socket"
)

type transportHci struct {
	id int
}

type transportH4Socket struct {
	addr    string
	timeout time.Duration
}

type transportH4Uart struct {
	path string
	baud uint
}

// transport records which transport the options asked for. At most one
// field is set.
type transport struct {
	hci      *transportHci
	h4uart   *transportH4Uart
	h4socket *transportH4Socket
	custom   hci.Transport
}

func (t transport) configured() bool {
	return t.hci != nil || t.h4uart != nil || t.h4socket != nil || t.custom != nil
}

func getTransport(t transport) (hci.Transport, error) {
	switch {
	case t.custom != nil:
		return t.custom, nil

	case t.hci != nil:
		s, err := socket.NewSocket(t.hci.id)
		if err != nil {
			return nil, err
		}
		return h4.New(fmt.Sprintf("hci%d", s.ID()), s), nil

	case t.h4socket != nil:
		return h4.NewSocket(t.h4socket.addr, t.h4socket.timeout)

	case t.h4uart != nil:
		so := h4.DefaultSerialOptions()
		so.PortName = t.h4uart.path
		if t.h4uart.baud != 0 {
			so.BaudRate = t.h4uart.baud
		}
		return h4.NewSerial(so)

	default:
		return nil, errors.Wrap(bthost.ErrNotReady, "no transport configured")
	}
}
