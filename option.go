package bthost

import (
	"time"
)

// DeviceOption is an interface which the stack should implement to allow using configuration options
type DeviceOption interface {
	SetConfig(Config) error
	SetErrorHandler(handler func(error)) error
	SetRawMode(h4 bool) error

	SetTransportHCISocket(id int) error
	SetTransportH4Socket(addr string, timeout time.Duration) error
	SetTransportH4Uart(path string, baud uint) error
	SetTransport(t interface{}) error
}

// An Option is a configuration function, which configures the stack.
type Option func(DeviceOption) error

// OptConfig replaces the build configuration.
func OptConfig(cfg Config) Option {
	return func(opt DeviceOption) error {
		return opt.SetConfig(cfg)
	}
}

// OptErrorHandler sets error handler
func OptErrorHandler(handler func(error)) Option {
	return func(opt DeviceOption) error {
		return opt.SetErrorHandler(handler)
	}
}

// OptRawMode selects H4 framing inside raw channel buffers.
func OptRawMode(h4 bool) Option {
	return func(opt DeviceOption) error {
		return opt.SetRawMode(h4)
	}
}

// OptTransportHCISocket set hci socket transport
func OptTransportHCISocket(id int) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportHCISocket(id)
	}
}

// OptTransportH4Socket set h4 socket transport
func OptTransportH4Socket(addr string, timeout time.Duration) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Socket(addr, timeout)
	}
}

// OptTransportH4Uart set h4 uart transport
func OptTransportH4Uart(path string, baud uint) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Uart(path, baud)
	}
}

// OptTransport binds an already constructed hci.Transport.
func OptTransport(t interface{}) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransport(t)
	}
}
