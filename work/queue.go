package work

import (
	"container/heap"
	"container/list"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
)

// QueueConfig describes a work queue. StackSize and Priority are carried
// for the platform; the Go runtime schedules the worker goroutine itself.
type QueueConfig struct {
	Name      string
	StackSize int
	Priority  int
}

// Queue is a cooperative executor with a single worker. Items run one at a
// time, immediate items in submission order, delayed items once their
// deadline has passed.
type Queue struct {
	cfg QueueConfig
	log bthost.Logger
	now func() time.Time

	mu      sync.Mutex
	cond    *sync.Cond
	pending *list.List
	timers  timerHeap
	seq     uint64
	running *Work

	started  bool
	stopped  bool
	draining bool
	plugged  bool

	wake   chan struct{}
	quit   chan struct{}
	exited chan struct{}
}

// NewQueue returns a queue that accepts work once started.
func NewQueue(cfg QueueConfig) *Queue {
	q := &Queue{
		cfg:     cfg,
		now:     time.Now,
		pending: list.New(),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	q.log = bthost.GetLogger().ChildLogger(map[string]interface{}{
		"component": "work",
		"queue":     cfg.Name,
	})
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.cfg.Name }

// Config returns the queue configuration.
func (q *Queue) Config() QueueConfig { return q.cfg }

// Start launches the worker.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case q.stopped:
		return errors.Wrapf(bthost.ErrNotReady, "queue %s stopped", q.cfg.Name)
	case q.started:
		return errors.Wrapf(bthost.ErrBusy, "queue %s already started", q.cfg.Name)
	}
	q.started = true
	go q.loop()

	bthost.LogInf(q.log, "started (stack %d, prio %d)", q.cfg.StackSize, q.cfg.Priority)
	return nil
}

// Stop tears the queue down. Pending items are dropped and later
// submissions fail with ErrNotReady. A running handler is allowed to
// finish. Stop must not be called from a handler of q.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	started := q.started

	for e := q.pending.Front(); e != nil; e = e.Next() {
		w := e.Value.(*Work)
		w.flags &^= flagQueued
		w.elem = nil
		q.release(w)
	}
	q.pending.Init()
	for _, d := range q.timers {
		d.flags &^= flagDelayed
		d.index = -1
		q.release(&d.Work)
	}
	q.timers = nil
	close(q.quit)
	q.cond.Broadcast()
	q.mu.Unlock()

	if started {
		<-q.exited
	}
	bthost.LogInf(q.log, "stopped")
}

// Submit queues w for immediate execution.
func (q *Queue) Submit(w *Work) (Status, error) {
	if w == nil || w.handler == nil {
		return 0, errors.Wrap(bthost.ErrInvalid, "nil work or handler")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.acceptLocked(w); err != nil {
		return 0, err
	}
	if w.flags&(flagQueued|flagDelayed) != 0 {
		return AlreadyQueued, nil
	}
	if err := q.openLocked(); err != nil {
		return 0, err
	}
	return q.enqueueLocked(w), nil
}

// Schedule queues d to run after timeout. If d is already pending nothing
// changes and AlreadyQueued is returned. A zero timeout behaves as Submit.
func (q *Queue) Schedule(d *Delayable, timeout time.Duration) (Status, error) {
	if d == nil || d.handler == nil || d.dw != d {
		return 0, errors.Wrap(bthost.ErrInvalid, "nil or uninitialized delayable")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.acceptLocked(&d.Work); err != nil {
		return 0, err
	}
	if d.flags&(flagQueued|flagDelayed) != 0 {
		return AlreadyQueued, nil
	}
	if err := q.openLocked(); err != nil {
		return 0, err
	}
	return q.scheduleLocked(d, timeout), nil
}

// Reschedule replaces any existing deadline of d with now+timeout. An item
// that was never scheduled is simply scheduled.
func (q *Queue) Reschedule(d *Delayable, timeout time.Duration) (Status, error) {
	if d == nil || d.handler == nil || d.dw != d {
		return 0, errors.Wrap(bthost.ErrInvalid, "nil or uninitialized delayable")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.acceptLocked(&d.Work); err != nil {
		return 0, err
	}
	if err := q.openLocked(); err != nil {
		return 0, err
	}
	q.unlinkLocked(&d.Work)
	return q.scheduleLocked(d, timeout), nil
}

// Cancel removes w if it has not started. A running handler cannot be
// stopped: TooLate is returned and the handler completes.
func (q *Queue) Cancel(w *Work) CancelResult {
	if w == nil {
		return NotPending
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if w.q != q {
		return NotPending
	}
	if q.unlinkLocked(w) {
		return Cancelled
	}
	if w.flags&flagRunning != 0 {
		return TooLate
	}
	return NotPending
}

// CancelDelayable is Cancel for delayable items.
func (q *Queue) CancelDelayable(d *Delayable) CancelResult {
	if d == nil {
		return NotPending
	}
	return q.Cancel(&d.Work)
}

// Flush waits until w is neither pending nor running on q. A delayed item
// is made due immediately. It returns false if there was nothing to wait
// for. Flush must not be called from a handler of q.
func (q *Queue) Flush(w *Work) bool {
	if w == nil {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if w.q != q {
		return false
	}
	if w.flags&flagDelayed != 0 {
		heap.Remove(&q.timers, w.dw.index)
		w.flags &^= flagDelayed
		q.enqueueLocked(w)
	}
	for w.q == q && w.flags&(flagQueued|flagRunning) != 0 && !q.stopped {
		q.cond.Wait()
	}
	return true
}

// Drain waits until the FIFO is empty and no handler runs. Submissions are
// rejected with ErrBusy while draining; with plug they stay rejected until
// Unplug. Drain must not be called from a handler of q.
func (q *Queue) Drain(plug bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.draining = true
	if plug {
		q.plugged = true
	}
	q.kick()
	for (q.pending.Len() > 0 || q.running != nil) && !q.stopped {
		q.cond.Wait()
	}
	q.draining = false
}

// Unplug accepts submissions again after Drain(true).
func (q *Queue) Unplug() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.plugged = false
}

// Pending reports whether w is queued or scheduled on q.
func (q *Queue) Pending(w *Work) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return w.q == q && w.flags&(flagQueued|flagDelayed) != 0
}

// Remaining returns the time left until d is due, 0 if it is not scheduled.
func (q *Queue) Remaining(d *Delayable) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	if d.q != q || d.flags&flagDelayed == 0 {
		return 0
	}
	if r := d.deadline.Sub(q.now()); r > 0 {
		return r
	}
	return 0
}

func (q *Queue) acceptLocked(w *Work) error {
	switch {
	case !q.started || q.stopped:
		return errors.Wrapf(bthost.ErrNotReady, "queue %s not running", q.cfg.Name)
	case w.q != nil && w.q != q:
		return errors.Wrapf(bthost.ErrBusy, "work owned by queue %s", w.q.cfg.Name)
	}
	return nil
}

func (q *Queue) openLocked() error {
	if q.draining || q.plugged {
		return errors.Wrapf(bthost.ErrBusy, "queue %s draining", q.cfg.Name)
	}
	return nil
}

func (q *Queue) enqueueLocked(w *Work) Status {
	w.q = q
	w.flags |= flagQueued
	w.elem = q.pending.PushBack(w)
	q.kick()

	if w.flags&flagRunning != 0 {
		return QueuedWhileRunning
	}
	return Queued
}

func (q *Queue) scheduleLocked(d *Delayable, timeout time.Duration) Status {
	if timeout <= 0 {
		return q.enqueueLocked(&d.Work)
	}

	d.q = q
	d.flags |= flagDelayed
	d.deadline = q.now().Add(timeout)
	d.seq = q.seq
	q.seq++
	heap.Push(&q.timers, d)
	q.kick()

	if d.flags&flagRunning != 0 {
		return QueuedWhileRunning
	}
	return Queued
}

// unlinkLocked removes w from the FIFO or the timer heap. It returns false
// if w was in neither.
func (q *Queue) unlinkLocked(w *Work) bool {
	switch {
	case w.flags&flagQueued != 0:
		q.pending.Remove(w.elem)
		w.elem = nil
		w.flags &^= flagQueued
	case w.flags&flagDelayed != 0:
		heap.Remove(&q.timers, w.dw.index)
		w.flags &^= flagDelayed
	default:
		return false
	}
	q.release(w)
	q.cond.Broadcast()
	return true
}

// release drops the queue binding once w is idle.
func (q *Queue) release(w *Work) {
	if w.flags == 0 {
		w.q = nil
	}
}

func (q *Queue) kick() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// promoteLocked moves due delayables into the FIFO in deadline order.
func (q *Queue) promoteLocked(now time.Time) {
	for len(q.timers) > 0 && !q.timers[0].deadline.After(now) {
		d := heap.Pop(&q.timers).(*Delayable)
		d.flags &^= flagDelayed
		d.flags |= flagQueued
		d.elem = q.pending.PushBack(&d.Work)
	}
}

func (q *Queue) loop() {
	defer close(q.exited)

	for {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return
		}

		q.promoteLocked(q.now())

		if e := q.pending.Front(); e != nil {
			w := q.pending.Remove(e).(*Work)
			w.elem = nil
			w.flags &^= flagQueued
			w.flags |= flagRunning
			q.running = w
			q.mu.Unlock()

			w.handler(w)

			q.mu.Lock()
			w.flags &^= flagRunning
			q.running = nil
			q.release(w)
			q.cond.Broadcast()
			q.mu.Unlock()
			continue
		}

		var timeout <-chan time.Time
		var t *time.Timer
		if len(q.timers) > 0 {
			t = time.NewTimer(q.timers[0].deadline.Sub(q.now()))
			timeout = t.C
		}
		q.cond.Broadcast()
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-timeout:
		case <-q.quit:
		}
		if t != nil {
			t.Stop()
		}
	}
}
