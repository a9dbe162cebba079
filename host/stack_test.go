package host

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
	"github.com/rigado/bthost/buf"
	"github.com/rigado/bthost/hci"
	"github.com/rigado/bthost/work"
)

type fakeTransport struct {
	mu      sync.Mutex
	host    hci.Host
	sent    int
	openErr error
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Open(h hci.Host) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.host = h
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) Send(b *buf.Buf) error {
	f.mu.Lock()
	f.sent++
	f.mu.Unlock()
	b.Unref()
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func newTestStack(t *testing.T, ft *fakeTransport) *Stack {
	s, err := NewStack(bthost.OptTransport(ft))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEnableRawGatesSend(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestStack(t, ft)

	b, err := s.GetTx(buf.TypeCmd, 0, []byte{0x03, 0x0c, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Send(b); errors.Cause(err) != bthost.ErrNotReady {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	if err := s.EnableRaw(buf.NewFifo(4)); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(b); err != nil {
		t.Fatalf("send after enable: %v", err)
	}
	if ft.count() != 1 {
		t.Fatalf("expected 1 packet sent, got %d", ft.count())
	}
	if err := s.EnableRaw(buf.NewFifo(4)); errors.Cause(err) != bthost.ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSendBeforeInit(t *testing.T) {
	s := newTestStack(t, &fakeTransport{})
	b := buf.New(buf.TypeCmd, 4)
	if err := s.Send(b); errors.Cause(err) != bthost.ErrNotReady {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestEnableReadyOnce(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestStack(t, ft)

	var calls int32
	done := make(chan error, 2)
	err := s.Enable(func(err error) {
		atomic.AddInt32(&calls, 1)
		if err == nil {
			// sending from the long work queue is allowed
			b, gerr := s.GetTx(buf.TypeCmd, 0, []byte{0x03, 0x0c, 0x00})
			if gerr != nil {
				done <- gerr
				return
			}
			err = s.Send(b)
		}
		done <- err
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ready: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("ready not called")
	}

	// let anything spurious show up
	q, _ := s.LongWQ()
	q.Drain(false)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("ready called %d times", n)
	}
	if !s.Enabled() || ft.count() != 1 {
		t.Fatalf("enabled %v, sent %d", s.Enabled(), ft.count())
	}
	if err := s.Enable(nil); errors.Cause(err) != bthost.ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestEnableRxQueue(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestStack(t, ft)
	if err := s.Enable(nil); err != nil {
		t.Fatal(err)
	}

	b, err := ft.host.RxBuf(buf.TypeEvent, 0)
	if err != nil {
		t.Fatal(err)
	}
	b.AddMem([]byte{0x13, 0x00})
	if err := ft.host.Recv(b); err != nil {
		t.Fatal(err)
	}

	got, ok := s.RxQueue().TryGet()
	if !ok || got != b {
		t.Fatalf("packet not in the stack rx queue")
	}
	got.Unref()
}

func TestEnableFailureLeavesStackQuiescent(t *testing.T) {
	ft := &fakeTransport{openErr: fmt.Errorf("no controller")}
	s := newTestStack(t, ft)

	done := make(chan error, 1)
	if err := s.Enable(func(err error) { done <- err }); err != nil {
		t.Fatal(err)
	}
	err := <-done
	if errors.Cause(err) != bthost.ErrTransport {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	b, _ := s.GetTx(buf.TypeCmd, 0, nil)
	if err := s.Send(b); errors.Cause(err) != bthost.ErrNotReady {
		t.Fatalf("expected ErrNotReady after failed enable, got %v", err)
	}
	b.Unref()

	ft.openErr = nil
	if err := s.Enable(nil); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestEnableWithoutTransport(t *testing.T) {
	s, _ := NewStack()
	if err := s.Enable(nil); errors.Cause(err) != bthost.ErrNotReady {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestInitOrder(t *testing.T) {
	s := newTestStack(t, &fakeTransport{})

	var order []string
	record := func(name string, check func() bool) func() error {
		return func() error {
			if !check() {
				return fmt.Errorf("%s ran too early", name)
			}
			order = append(order, name)
			return nil
		}
	}
	s.RegisterInit("late", 95, record("late", func() bool { return s.Raw() != nil }))
	s.RegisterInit("early", 10, record("early", func() bool { return s.longWQ() == nil }))
	s.RegisterInit("middle", 60, record("middle", func() bool { return s.longWQ() != nil && s.Raw() == nil }))

	if err := s.StackInitOnce(); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(order) != "[early middle late]" {
		t.Fatalf("unexpected order %v", order)
	}

	if err := s.StackInitOnce(); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("init entries ran again")
	}
	if err := s.RegisterInit("too late", 0, func() error { return nil }); errors.Cause(err) != bthost.ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := s.SetConfig(bthost.DefaultConfig()); errors.Cause(err) != bthost.ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestInitFailure(t *testing.T) {
	s := newTestStack(t, &fakeTransport{})
	s.RegisterInit("broken", 1, func() error { return bthost.ErrNoResource })

	if err := s.StackInitOnce(); errors.Cause(err) != bthost.ErrNoResource {
		t.Fatalf("expected ErrNoResource, got %v", err)
	}

	done := make(chan error, 1)
	s.Enable(func(err error) { done <- err })
	if err := <-done; errors.Cause(err) != bthost.ErrNoResource {
		t.Fatalf("ready got %v", err)
	}
}

func TestStackLongWQ(t *testing.T) {
	s := newTestStack(t, &fakeTransport{})

	ran := make(chan time.Time, 1)
	d := work.NewDelayable(func(*work.Work) { ran <- time.Now() })

	start := time.Now()
	if st, err := s.LongWQSchedule(d, 100*time.Millisecond); err != nil || st != work.Queued {
		t.Fatalf("schedule: %v %v", st, err)
	}
	if _, err := s.LongWQReschedule(d, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	select {
	case at := <-ran:
		if at.Sub(start) >= 100*time.Millisecond {
			t.Fatalf("fired on the first deadline")
		}
	case <-time.After(time.Second):
		t.Fatalf("delayable never ran")
	}

	w := work.NewWork(func(*work.Work) { ran <- time.Now() })
	if _, err := s.LongWQSubmit(w); err != nil {
		t.Fatal(err)
	}
	<-ran
}

func TestOptions(t *testing.T) {
	if _, err := NewStack(bthost.OptTransport("not a transport")); errors.Cause(err) != bthost.ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	cfg := bthost.DefaultConfig()
	cfg.StackLogLevel = 7
	if _, err := NewStack(bthost.OptConfig(cfg)); errors.Cause(err) != bthost.ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	ft := &fakeTransport{}
	s, err := NewStack(bthost.OptTransport(ft), bthost.OptRawMode(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Enable(nil); err != nil {
		t.Fatal(err)
	}
	if s.Raw().Mode() != hci.ModeH4 {
		t.Fatalf("raw mode %v", s.Raw().Mode())
	}
	if err := s.SetTransport(&fakeTransport{}); errors.Cause(err) != bthost.ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}
