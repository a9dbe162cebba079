package work

import (
	"container/list"
	"fmt"
	"time"

	"github.com/rigado/bthost"
)

// Handler runs a work item on its queue's worker. It runs to completion
// before the next item on the same queue starts.
type Handler func(w *Work)

const (
	flagQueued  = 1 << iota // in the pending FIFO
	flagDelayed             // in the timer heap
	flagRunning             // handler executing
)

// Work is an immediate work item. The submitter owns it for its whole life;
// a queue only borrows it between submission and completion.
type Work struct {
	handler Handler

	// guarded by q.mu
	q     *Queue
	flags int
	elem  *list.Element

	dw *Delayable
}

// NewWork returns a work item running h.
func NewWork(h Handler) *Work {
	w := &Work{}
	w.Init(h)
	return w
}

// Init sets the handler of an embedded or zero value item. It must not be
// called while the item is pending.
func (w *Work) Init(h Handler) {
	w.handler = h
}

// Delayable returns the delayable wrapping w, or nil.
func (w *Work) Delayable() *Delayable { return w.dw }

// Delayable is a work item bound to a deadline.
type Delayable struct {
	Work

	deadline time.Time
	seq      uint64
	index    int
}

// NewDelayable returns a delayable item running h.
func NewDelayable(h Handler) *Delayable {
	d := &Delayable{}
	d.Init(h)
	return d
}

// Init sets the handler of an embedded or zero value item.
func (d *Delayable) Init(h Handler) {
	d.Work.Init(h)
	d.Work.dw = d
	d.index = -1
}

// Status is the outcome of a successful submission.
type Status int

const (
	// AlreadyQueued means the item was pending and nothing changed.
	AlreadyQueued Status = iota
	// Queued means the item was newly queued or scheduled.
	Queued
	// QueuedWhileRunning means the item was queued while its handler
	// is executing; it runs again afterwards.
	QueuedWhileRunning
)

func (s Status) String() string {
	switch s {
	case AlreadyQueued:
		return "already queued"
	case Queued:
		return "queued"
	case QueuedWhileRunning:
		return "queued while running"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// CancelResult is the outcome of a cancellation.
type CancelResult int

const (
	Cancelled CancelResult = iota
	TooLate
	NotPending
)

func (c CancelResult) String() string {
	switch c {
	case Cancelled:
		return "cancelled"
	case TooLate:
		return "too late"
	case NotPending:
		return "not pending"
	default:
		return fmt.Sprintf("cancel(%d)", int(c))
	}
}

// Err returns ErrAlreadyDone for TooLate and nil otherwise.
func (c CancelResult) Err() error {
	if c == TooLate {
		return bthost.ErrAlreadyDone
	}
	return nil
}
