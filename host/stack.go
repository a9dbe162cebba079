package host

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/bthost"
	"github.com/rigado/bthost/buf"
	"github.com/rigado/bthost/hci"
	"github.com/rigado/bthost/work"
)

const (
	stateIdle int32 = iota
	stateEnabling
	stateEnabled
)

// Init ranks of the built-in init entries. Lower ranks run first. The
// long work queue runs at Config.LongWQInitPrio.
const (
	RankDiag = 0
	RankHCI  = 90
)

type initEntry struct {
	name string
	rank int
	fn   func() error
}

// Stack ties the diagnostic surface, the long work queue and the raw HCI
// channel together and brings them up in order.
type Stack struct {
	log bthost.Logger

	mu           sync.Mutex
	cfg          bthost.Config
	transport    transport
	rawH4        bool
	errorHandler func(error)
	inits        []initEntry
	initDone     bool
	lwq          *work.Queue
	raw          *hci.Raw
	rx           *buf.Fifo

	initOnce sync.Once
	initErr  error

	// emu serializes Enable and EnableRaw
	emu   sync.Mutex
	state int32

	newLWQ func(bthost.Config) (*work.Queue, error)
	newRaw func(bthost.Config) (*hci.Raw, error)
}

// NewStack returns a stack with its own long work queue and raw channel.
// Nothing is started before StackInitOnce, Enable or EnableRaw.
func NewStack(opts ...bthost.Option) (*Stack, error) {
	s := newStack(ownLWQ, ownRaw)
	if err := s.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}
	return s, nil
}

func newStack(newLWQ func(bthost.Config) (*work.Queue, error), newRaw func(bthost.Config) (*hci.Raw, error)) *Stack {
	return &Stack{
		log:    bthost.GetLogger().ChildLogger(map[string]interface{}{"component": "host"}),
		cfg:    bthost.DefaultConfig(),
		newLWQ: newLWQ,
		newRaw: newRaw,
	}
}

func ownLWQ(cfg bthost.Config) (*work.Queue, error) {
	q := work.NewQueue(work.QueueConfig{
		Name:      work.LongWQName,
		StackSize: cfg.LongWQStackSize,
		Priority:  cfg.LongWQPrio,
	})
	return q, q.Start()
}

func ownRaw(cfg bthost.Config) (*hci.Raw, error) {
	return hci.NewRaw(cfg), nil
}

// RegisterInit adds fn to the entries StackInitOnce runs, ordered by rank.
// Entries of equal rank run in registration order, after the built-in
// ones.
func (s *Stack) RegisterInit(name string, rank int, fn func() error) error {
	if fn == nil {
		return errors.Wrap(bthost.ErrInvalid, "nil init function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initDone {
		return errors.Wrapf(bthost.ErrBusy, "can't register %s, stack already initialized", name)
	}
	s.inits = append(s.inits, initEntry{name, rank, fn})
	return nil
}

// StackInitOnce applies the diagnostic configuration and creates the long
// work queue and the raw channel. It runs once; later calls return the
// first result.
func (s *Stack) StackInitOnce() error {
	s.initOnce.Do(func() {
		s.mu.Lock()
		cfg := s.cfg
		entries := append([]initEntry{
			{"diag", RankDiag, func() error { cfg.Apply(); return nil }},
			{"long wq", cfg.LongWQInitPrio, func() error { return s.initLWQ(cfg) }},
			{"hci", RankHCI, func() error { return s.initHCI(cfg) }},
		}, s.inits...)
		s.initDone = true
		s.mu.Unlock()

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].rank < entries[j].rank
		})

		for _, e := range entries {
			bthost.LogDbg(s.log, "init %s (rank %d)", e.name, e.rank)
			if err := e.fn(); err != nil {
				s.initErr = errors.Wrapf(err, "init %s", e.name)
				bthost.LogErr(s.log, "%v", s.initErr)
				return
			}
		}
	})
	return s.initErr
}

func (s *Stack) initLWQ(cfg bthost.Config) error {
	q, err := s.newLWQ(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lwq = q
	s.mu.Unlock()
	return nil
}

func (s *Stack) initHCI(cfg bthost.Config) error {
	raw, err := s.newRaw(cfg)
	if err != nil {
		return err
	}
	rx := buf.NewFifo(cfg.RxQueueSize)
	s.mu.Lock()
	s.raw = raw
	s.rx = rx
	s.mu.Unlock()
	return nil
}

// Enable brings the stack up: init, long work queue, transport, raw
// channel bound to the stack RX queue. ready is then run on the long work
// queue with the result, exactly once. With a nil ready Enable is
// synchronous and returns the result instead.
//
// A failed enable leaves Send returning ErrNotReady; Enable may be called
// again.
func (s *Stack) Enable(ready func(error)) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateIdle, stateEnabling) {
		return errors.Wrap(bthost.ErrBusy, "stack enabling or enabled")
	}

	if ready == nil {
		return s.finish(s.enable())
	}

	go func() {
		err := s.finish(s.enable())
		s.notify(ready, err)
	}()
	return nil
}

// Enabled reports whether Enable completed successfully.
func (s *Stack) Enabled() bool {
	return atomic.LoadInt32(&s.state) == stateEnabled
}

func (s *Stack) enable() error {
	if err := s.StackInitOnce(); err != nil {
		return err
	}

	s.emu.Lock()
	defer s.emu.Unlock()

	raw, rx := s.device()
	if raw.State() == hci.StateActive {
		// an earlier EnableRaw already bound the channel
		return nil
	}
	if err := s.bindTransport(raw); err != nil {
		return err
	}
	return raw.EnableRaw(rx)
}

func (s *Stack) finish(err error) error {
	if err != nil {
		atomic.StoreInt32(&s.state, stateIdle)
		bthost.LogErr(s.log, "enable failed: %v", err)
		return err
	}
	atomic.StoreInt32(&s.state, stateEnabled)
	bthost.LogInf(s.log, "stack enabled")
	return nil
}

func (s *Stack) notify(ready func(error), err error) {
	w := work.NewWork(func(*work.Work) { ready(err) })

	if q := s.longWQ(); q != nil {
		_, serr := q.Submit(w)
		if serr == nil {
			return
		}
		bthost.LogWrn(s.log, "can't submit ready callback: %v", serr)
	}
	// no long work queue to run it on
	ready(err)
}

func (s *Stack) bindTransport(raw *hci.Raw) error {
	s.mu.Lock()
	t := s.transport
	rawH4 := s.rawH4
	handler := s.errorHandler
	s.mu.Unlock()

	mode := hci.ModePassthrough
	if rawH4 {
		mode = hci.ModeH4
	}
	if err := raw.SetMode(mode); err != nil {
		return err
	}

	if raw.Transport() != nil {
		return nil
	}
	if !t.configured() {
		return errors.Wrap(bthost.ErrNotReady, "no transport configured")
	}

	ht, err := getTransport(t)
	if err != nil {
		return bthost.NewTransportError("create transport", err)
	}
	if eh, ok := ht.(interface{ SetErrorHandler(func(error)) }); ok && handler != nil {
		eh.SetErrorHandler(handler)
	}
	return raw.SetTransport(ht)
}

// EnableRaw binds rx as the sink for every controller packet and opens
// the transport. It may succeed once.
func (s *Stack) EnableRaw(rx *buf.Fifo) error {
	if rx == nil {
		return errors.Wrap(bthost.ErrInvalid, "nil rx queue")
	}
	if err := s.StackInitOnce(); err != nil {
		return err
	}

	s.emu.Lock()
	defer s.emu.Unlock()

	raw, _ := s.device()
	if raw.State() != hci.StateUnbound {
		return errors.Wrapf(bthost.ErrBusy, "raw channel %v", raw.State())
	}
	if err := s.bindTransport(raw); err != nil {
		return err
	}
	if err := raw.EnableRaw(rx); err != nil {
		return err
	}

	s.mu.Lock()
	s.rx = rx
	s.mu.Unlock()
	return nil
}

// Send hands b to the transport. Before the raw channel is enabled it
// fails with ErrNotReady and b stays with the caller.
func (s *Stack) Send(b *buf.Buf) error {
	raw, _ := s.device()
	if raw == nil {
		return errors.Wrap(bthost.ErrNotReady, "stack not initialized")
	}
	return raw.Send(b)
}

// GetTx allocates a TX buffer, see hci.Raw.GetTx.
func (s *Stack) GetTx(t buf.Type, timeout time.Duration, data []byte) (*buf.Buf, error) {
	if err := s.StackInitOnce(); err != nil {
		return nil, err
	}
	raw, _ := s.device()
	return raw.GetTx(t, timeout, data)
}

// RxQueue returns the queue controller packets are delivered to, nil
// before StackInitOnce.
func (s *Stack) RxQueue() *buf.Fifo {
	_, rx := s.device()
	return rx
}

// Raw returns the raw channel, nil before StackInitOnce.
func (s *Stack) Raw() *hci.Raw {
	raw, _ := s.device()
	return raw
}

// Stats returns the raw channel counters.
func (s *Stack) Stats() hci.Stats {
	raw, _ := s.device()
	if raw == nil {
		return hci.Stats{State: hci.StateUnbound.String()}
	}
	return raw.Stats()
}

// SetACLDestroyHook observes ACL buffers returned to the stack pools.
func (s *Stack) SetACLDestroyHook(fn func(*buf.Buf)) error {
	if err := s.StackInitOnce(); err != nil {
		return err
	}
	raw, _ := s.device()
	raw.SetACLDestroyHook(fn)
	return nil
}

// LongWQ returns the stack's long work queue.
func (s *Stack) LongWQ() (*work.Queue, error) {
	if err := s.StackInitOnce(); err != nil {
		return nil, err
	}
	return s.longWQ(), nil
}

// LongWQSubmit submits w to the long work queue.
func (s *Stack) LongWQSubmit(w *work.Work) (work.Status, error) {
	q, err := s.LongWQ()
	if err != nil {
		return 0, err
	}
	return q.Submit(w)
}

// LongWQSchedule schedules d on the long work queue.
func (s *Stack) LongWQSchedule(d *work.Delayable, timeout time.Duration) (work.Status, error) {
	q, err := s.LongWQ()
	if err != nil {
		return 0, err
	}
	return q.Schedule(d, timeout)
}

// LongWQReschedule reschedules d on the long work queue.
func (s *Stack) LongWQReschedule(d *work.Delayable, timeout time.Duration) (work.Status, error) {
	q, err := s.LongWQ()
	if err != nil {
		return 0, err
	}
	return q.Reschedule(d, timeout)
}

func (s *Stack) device() (*hci.Raw, *buf.Fifo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, s.rx
}

func (s *Stack) longWQ() *work.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lwq
}
