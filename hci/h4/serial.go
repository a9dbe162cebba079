package h4

import (
	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// DefaultSerialOptions returns the UART settings used by most HCI
// controllers: 1 Mbaud, 8N1, hardware flow control.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:          1000000,
		DataBits:          8,
		StopBits:          1,
		ParityMode:        serial.PARITY_NONE,
		RTSCTSFlowControl: true,
	}
}

// NewSerial opens a UART.
func NewSerial(opts serial.OpenOptions) (*Transport, error) {
	// force these, the read loop relies on short blocking reads
	opts.MinimumReadSize = 0
	opts.InterCharacterTimeout = 100

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", opts.PortName)
	}

	t := New(opts.PortName, sp)
	t.eofIsTimeout = true
	return t, nil
}
