package h4

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// NewSocket dials an H4 server over TCP, e.g. a controller exposed by an
// emulator or a serial to TCP bridge. timeout bounds the dial and each
// read and write.
func NewSocket(addr string, timeout time.Duration) (*Transport, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "can't dial %s", addr)
	}

	return New("h4 "+addr, &deadlineConn{Conn: c, timeout: timeout}), nil
}

// deadlineConn arms a deadline before every read and write. An expired
// read deadline reads as (n, nil), the idle read the read loop skips; an
// expired write deadline stays an error.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (d *deadlineConn) Read(b []byte) (int, error) {
	d.Conn.SetReadDeadline(time.Now().Add(d.timeout))
	n, err := d.Conn.Read(b)
	if isTimeout(err) {
		return n, nil
	}
	return n, err
}

func (d *deadlineConn) Write(b []byte) (int, error) {
	d.Conn.SetWriteDeadline(time.Now().Add(d.timeout))
	n, err := d.Conn.Write(b)
	return n, errors.Wrap(err, "h4 socket write")
}
