package work

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
)

func TestLongWQ(t *testing.T) {
	q := LongWQ()
	if q.Name() != LongWQName {
		t.Fatalf("unexpected name %q", q.Name())
	}
	if LongWQ() != q {
		t.Fatalf("LongWQ must be a singleton")
	}

	done := make(chan struct{})
	if _, err := LongWQSubmit(NewWork(func(*Work) { close(done) })); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("long work did not run")
	}

	fired := make(chan struct{})
	d := NewDelayable(func(*Work) { close(fired) })
	LongWQSchedule(d, time.Hour)
	if st, err := LongWQReschedule(d, time.Millisecond); err != nil || st != Queued {
		t.Fatalf("reschedule: %v %v", st, err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("rescheduled work did not fire")
	}
	q.Flush(&d.Work)
	if res := LongWQCancel(d); res != NotPending {
		t.Fatalf("expected not pending, got %v", res)
	}
}

func TestInitLongWQConflict(t *testing.T) {
	q := LongWQ()
	if err := InitLongWQ(bthost.DefaultConfig()); err != nil {
		t.Fatalf("same config: %v", err)
	}

	cfg := bthost.DefaultConfig()
	cfg.LongWQPrio++
	if err := InitLongWQ(cfg); errors.Cause(err) != bthost.ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if LongWQ() != q || q.Config().Priority != bthost.DefaultConfig().LongWQPrio {
		t.Fatalf("long work queue replaced: %+v", q.Config())
	}
}
