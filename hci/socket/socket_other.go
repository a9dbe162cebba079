// +build !linux

package socket

import (
	"io"

	"github.com/pkg/errors"
)

// Socket is not available on this platform.
type Socket struct {
	io.ReadWriteCloser
}

// NewSocket is a dummy function for non-Linux platform.
func NewSocket(id int) (*Socket, error) {
	return nil, errors.New("hci user channel is only available on linux")
}

// ID returns -1.
func (s *Socket) ID() int { return -1 }
