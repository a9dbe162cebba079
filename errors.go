package bthost

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// Error kinds reported by the stack. Use errors.Cause to classify a
// returned error.
var (
	ErrInvalid     = errors.New("invalid argument")
	ErrNotReady    = errors.New("not ready")
	ErrBusy        = errors.New("busy")
	ErrNoResource  = errors.New("no resource")
	ErrTransport   = errors.New("transport failure")
	ErrAlreadyDone = errors.New("already done")
)

// TransportError carries a downstream transport error. Its cause is
// ErrTransport.
type TransportError struct {
	Op  string
	Err error
}

// NewTransportError wraps err, nil stays nil.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrTransport, e.Op, e.Err)
}

// Cause lets errors.Cause classify the error as ErrTransport.
func (e *TransportError) Cause() error { return ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// Errno maps an error to a negative errno style return code, 0 for nil.
func Errno(err error) int {
	switch errors.Cause(err) {
	case nil:
		return 0
	case ErrInvalid:
		return -int(syscall.EINVAL)
	case ErrNotReady:
		return -int(syscall.ENODEV)
	case ErrBusy:
		return -int(syscall.EBUSY)
	case ErrNoResource:
		return -int(syscall.ENOBUFS)
	case ErrTransport:
		return -int(syscall.EIO)
	case ErrAlreadyDone:
		return -int(syscall.EALREADY)
	default:
		return -int(syscall.EIO)
	}
}
