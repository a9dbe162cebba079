package host

import (
	"sync"
	"time"

	"github.com/rigado/bthost"
	"github.com/rigado/bthost/buf"
	"github.com/rigado/bthost/hci"
	"github.com/rigado/bthost/work"
)

var (
	defaultStack *Stack
	defaultOnce  sync.Once
)

// Default returns the process-wide stack. It is backed by hci.Dev and
// work.LongWQ.
func Default() *Stack {
	defaultOnce.Do(func() {
		defaultStack = newStack(sharedLWQ, sharedRaw)
	})
	return defaultStack
}

func sharedLWQ(cfg bthost.Config) (*work.Queue, error) {
	if err := work.InitLongWQ(cfg); err != nil {
		return nil, err
	}
	return work.LongWQ(), nil
}

func sharedRaw(cfg bthost.Config) (*hci.Raw, error) {
	if err := hci.InitDev(cfg); err != nil {
		return nil, err
	}
	return hci.Dev(), nil
}

// Option configures the default stack.
func Option(opts ...bthost.Option) error {
	return Default().Option(opts...)
}

// StackInitOnce initializes the default stack.
func StackInitOnce() error {
	return Default().StackInitOnce()
}

// Enable brings the default stack up, see Stack.Enable.
func Enable(ready func(error)) error {
	return Default().Enable(ready)
}

// EnableRaw binds rx to the default stack's raw channel.
func EnableRaw(rx *buf.Fifo) error {
	return Default().EnableRaw(rx)
}

// Send hands b to the default stack's transport.
func Send(b *buf.Buf) error {
	return Default().Send(b)
}

// GetTx allocates a TX buffer from the default stack.
func GetTx(t buf.Type, timeout time.Duration, data []byte) (*buf.Buf, error) {
	return Default().GetTx(t, timeout, data)
}

// RxQueue returns the default stack's RX queue.
func RxQueue() *buf.Fifo {
	return Default().RxQueue()
}

// LongWQSubmit submits w to the long work queue.
func LongWQSubmit(w *work.Work) (work.Status, error) {
	return Default().LongWQSubmit(w)
}

// LongWQSchedule schedules d on the long work queue.
func LongWQSchedule(d *work.Delayable, timeout time.Duration) (work.Status, error) {
	return Default().LongWQSchedule(d, timeout)
}

// LongWQReschedule reschedules d on the long work queue.
func LongWQReschedule(d *work.Delayable, timeout time.Duration) (work.Status, error) {
	return Default().LongWQReschedule(d, timeout)
}
