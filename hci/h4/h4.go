package h4

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
	"github.com/rigado/bthost/buf"
	"github.com/rigado/bthost/hci"
)

const rxBufTimeout = 100 * time.Millisecond

// Transport carries H4 framed packets over an io.ReadWriteCloser: a UART,
// a TCP connection or an HCI user channel socket.
type Transport struct {
	name string
	rwc  io.ReadWriteCloser
	log  bthost.Logger

	// a serial port reports a read timeout as io.EOF
	eofIsTimeout bool

	wmu sync.Mutex
	cmu sync.Mutex

	host         hci.Host
	done         chan struct{}
	exited       chan struct{}
	errorHandler func(error)
}

// New returns a transport reading and writing H4 frames on rwc.
func New(name string, rwc io.ReadWriteCloser) *Transport {
	return &Transport{
		name: name,
		rwc:  rwc,
		log:  bthost.GetLogger().ChildLogger(map[string]interface{}{"component": "h4", "transport": name}),
		done: make(chan struct{}),
	}
}

// SetErrorHandler sets the handler for asynchronous read errors.
func (t *Transport) SetErrorHandler(handler func(error)) {
	t.cmu.Lock()
	defer t.cmu.Unlock()
	t.errorHandler = handler
}

func (t *Transport) Name() string { return t.name }

// Open starts the read loop.
func (t *Transport) Open(h hci.Host) error {
	t.cmu.Lock()
	defer t.cmu.Unlock()

	switch {
	case h == nil:
		return errors.Wrap(bthost.ErrInvalid, "nil host")
	case !t.isOpen():
		return errors.Wrapf(bthost.ErrNotReady, "%s closed", t.name)
	case t.host != nil:
		return errors.Wrapf(bthost.ErrBusy, "%s already open", t.name)
	}

	t.host = h
	t.exited = make(chan struct{})
	go t.readLoop(h, t.exited)
	return nil
}

// Send writes the indicator and the payload of b in one write.
func (t *Transport) Send(b *buf.Buf) error {
	if !t.isOpen() {
		return io.ErrClosedPipe
	}
	if err := b.PushU8(byte(b.Type)); err != nil {
		return err
	}

	t.wmu.Lock()
	n, err := t.rwc.Write(b.Bytes())
	t.wmu.Unlock()

	switch {
	case err != nil:
		b.PullU8()
		return errors.Wrapf(err, "can't write %s", t.name)
	case n != b.Len():
		b.PullU8()
		return errors.Errorf("short write on %s: %d of %d", t.name, n, b.Len())
	}

	if bthost.LevelCheck(bthost.LevelDbg) {
		bthost.LogDbg(t.log, "tx [% x]", b.Bytes())
	}
	b.Unref()
	return nil
}

// Close stops the read loop and closes the underlying stream.
func (t *Transport) Close() error {
	t.cmu.Lock()
	select {
	case <-t.done:
		t.cmu.Unlock()
		return nil
	default:
	}
	close(t.done)
	exited := t.exited
	t.cmu.Unlock()

	err := t.rwc.Close()
	if exited != nil {
		<-exited
	}
	bthost.LogInf(t.log, "closed")
	return errors.Wrapf(err, "can't close %s", t.name)
}

func (t *Transport) isOpen() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Transport) readLoop(h hci.Host, exited chan struct{}) {
	defer close(exited)

	fr := newFrame(func(p []byte) { t.deliver(h, p) })
	b := make([]byte, 4096)

	for {
		n, err := t.rwc.Read(b)

		switch {
		case !t.isOpen():
			return

		case n == 0 && err == nil:
			// read timeout
			continue

		case err == io.EOF && t.eofIsTimeout:
			continue

		case isTimeout(err):
			continue

		case err != nil:
			t.dispatchError(errors.Wrapf(err, "%s read", t.name))
			return
		}

		fr.Assemble(b[:n])
	}
}

// deliver copies one frame into a stack RX buffer and hands it over. When
// the stack refuses it the buffer is released here.
func (t *Transport) deliver(h hci.Host, p []byte) {
	typ := buf.Type(p[0])

	rb, err := h.RxBuf(typ, rxBufTimeout)
	if err != nil {
		bthost.LogWrn(t.log, "no rx buffer for %v packet: %v", typ, err)
		return
	}
	if err := rb.AddMem(p[1:]); err != nil {
		bthost.LogWrn(t.log, "%v packet too large (%d bytes): %v", typ, len(p)-1, err)
		rb.Unref()
		return
	}
	if err := h.Recv(rb); err != nil {
		bthost.LogWrn(t.log, "%v packet dropped: %v", typ, err)
		rb.Unref()
	}
}

func (t *Transport) dispatchError(e error) {
	t.cmu.Lock()
	handler := t.errorHandler
	t.cmu.Unlock()

	if handler == nil {
		bthost.LogErr(t.log, "%v", e)
		return
	}
	handler(e)
}

func isTimeout(err error) bool {
	ne, ok := errors.Cause(err).(net.Error)
	return ok && ne.Timeout()
}
