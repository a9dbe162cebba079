package host

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
	"github.com/rigado/bthost/hci"
)

// Option applies opts in order and returns the first error.
func (s *Stack) Option(opts ...bthost.Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

// SetConfig replaces the configuration. It must precede StackInitOnce.
func (s *Stack) SetConfig(cfg bthost.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initDone {
		return errors.Wrap(bthost.ErrBusy, "stack already initialized")
	}
	s.cfg = cfg
	return nil
}

// SetErrorHandler sets the handler for asynchronous transport errors.
func (s *Stack) SetErrorHandler(handler func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorHandler = handler
	return nil
}

// SetRawMode selects H4 framing inside raw channel buffers.
func (s *Stack) SetRawMode(h4 bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawH4 = h4
	return nil
}

// SetTransportHCISocket selects the HCI user channel of hci<id>.
func (s *Stack) SetTransportHCISocket(id int) error {
	return s.setTransport(transport{
		hci: &transportHci{id},
	})
}

// SetTransportH4Socket selects an H4 server reachable over TCP.
func (s *Stack) SetTransportH4Socket(addr string, timeout time.Duration) error {
	return s.setTransport(transport{
		h4socket: &transportH4Socket{addr, timeout},
	})
}

// SetTransportH4Uart selects an H4 UART. baud 0 keeps the default rate.
func (s *Stack) SetTransportH4Uart(path string, baud uint) error {
	return s.setTransport(transport{
		h4uart: &transportH4Uart{path, baud},
	})
}

// SetTransport binds t, which must implement hci.Transport.
func (s *Stack) SetTransport(t interface{}) error {
	ht, ok := t.(hci.Transport)
	if !ok || ht == nil {
		return errors.Wrapf(bthost.ErrInvalid, "%T is not an hci transport", t)
	}
	return s.setTransport(transport{custom: ht})
}

func (s *Stack) setTransport(t transport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw != nil && s.raw.Transport() != nil {
		return errors.Wrap(bthost.ErrBusy, "transport already bound")
	}
	s.transport = t
	return nil
}
