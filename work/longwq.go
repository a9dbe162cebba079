package work

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
)

// LongWQName is the name of the long work queue.
const LongWQName = "BT LW WQ"

var (
	longWQ     *Queue
	longWQErr  error
	longWQOnce sync.Once
)

func longWQConfig(cfg bthost.Config) QueueConfig {
	return QueueConfig{
		Name:      LongWQName,
		StackSize: cfg.LongWQStackSize,
		Priority:  cfg.LongWQPrio,
	}
}

// InitLongWQ creates and starts the long work queue from cfg. Only the
// first call has an effect; later calls return the first result, or
// ErrBusy when cfg asks for a different stack size or priority.
func InitLongWQ(cfg bthost.Config) error {
	if startLongWQ(cfg) || longWQErr != nil {
		return longWQErr
	}

	if want := longWQConfig(cfg); want != longWQ.Config() {
		have := longWQ.Config()
		bthost.LogWrn(longWQ.log, "already running with stack %d prio %d, ignoring stack %d prio %d",
			have.StackSize, have.Priority, want.StackSize, want.Priority)
		return errors.Wrapf(bthost.ErrBusy, "%s already initialized", LongWQName)
	}
	return nil
}

// startLongWQ reports whether this call created the queue.
func startLongWQ(cfg bthost.Config) bool {
	first := false
	longWQOnce.Do(func() {
		first = true
		longWQ = NewQueue(longWQConfig(cfg))
		longWQErr = longWQ.Start()
	})
	return first
}

// LongWQ returns the long work queue, starting it with the default
// configuration if InitLongWQ was never called. Handlers on it may block;
// they only delay other long work.
func LongWQ() *Queue {
	startLongWQ(bthost.DefaultConfig())
	return longWQ
}

// LongWQSubmit submits w to the long work queue.
func LongWQSubmit(w *Work) (Status, error) {
	return LongWQ().Submit(w)
}

// LongWQSchedule schedules d on the long work queue.
func LongWQSchedule(d *Delayable, timeout time.Duration) (Status, error) {
	return LongWQ().Schedule(d, timeout)
}

// LongWQReschedule reschedules d on the long work queue.
func LongWQReschedule(d *Delayable, timeout time.Duration) (Status, error) {
	return LongWQ().Reschedule(d, timeout)
}

// LongWQCancel cancels d on the long work queue.
func LongWQCancel(d *Delayable) CancelResult {
	return LongWQ().CancelDelayable(d)
}
