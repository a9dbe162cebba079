package hci

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rigado/bthost"
	"github.com/rigado/bthost/buf"
)

// Raw is the HCI raw channel: a conduit between one bound transport and an
// application supplied RX queue. It does not parse payloads.
type Raw struct {
	// first for 64-bit atomic alignment on 32-bit platforms
	stats counters

	log bthost.Logger
	// session logger, published together with StateActive
	slog bthost.Logger

	// mu serializes SetTransport and EnableRaw. Send and the receive
	// upcall only read transport and rx after loading state.
	mu        sync.Mutex
	state     int32
	mode      int32
	transport Transport
	rx        *buf.Fifo
	session   string

	cmdTx *buf.Pool
	aclTx *buf.Pool
	isoTx *buf.Pool
	rxBuf *buf.Pool
}

// NewRaw returns an unbound raw channel with pools sized from cfg.
func NewRaw(cfg bthost.Config) *Raw {
	r := &Raw{
		log:   bthost.GetLogger().ChildLogger(map[string]interface{}{"component": "hci"}),
		cmdTx: buf.NewPool("cmd tx", cfg.CmdTxCount, cfg.CmdTxSize),
		aclTx: buf.NewPool("acl tx", cfg.ACLTxCount, cfg.ACLTxSize),
		rxBuf: buf.NewPool("rx", cfg.RxCount, cfg.RxSize),
	}
	if cfg.ISOTxCount > 0 {
		r.isoTx = buf.NewPool("iso tx", cfg.ISOTxCount, cfg.ISOTxSize)
	}
	return r
}

var (
	dev     *Raw
	devCfg  poolConfig
	devOnce sync.Once
)

type poolConfig struct {
	cmdCount, cmdSize int
	aclCount, aclSize int
	isoCount, isoSize int
	rxCount, rxSize   int
}

func poolsOf(cfg bthost.Config) poolConfig {
	return poolConfig{
		cfg.CmdTxCount, cfg.CmdTxSize,
		cfg.ACLTxCount, cfg.ACLTxSize,
		cfg.ISOTxCount, cfg.ISOTxSize,
		cfg.RxCount, cfg.RxSize,
	}
}

// InitDev creates the process-wide raw channel from cfg. Only the first
// call has an effect; a later call whose pool sizes differ fails with
// ErrBusy.
func InitDev(cfg bthost.Config) error {
	if createDev(cfg) || poolsOf(cfg) == devCfg {
		return nil
	}
	bthost.LogWrn(dev.log, "raw channel already created, ignoring new pool sizes %+v", poolsOf(cfg))
	return errors.Wrap(bthost.ErrBusy, "raw channel already created")
}

func createDev(cfg bthost.Config) bool {
	first := false
	devOnce.Do(func() {
		first = true
		dev = NewRaw(cfg)
		devCfg = poolsOf(cfg)
	})
	return first
}

// Dev returns the process-wide raw channel, created with the default
// configuration if InitDev was never called.
func Dev() *Raw {
	createDev(bthost.DefaultConfig())
	return dev
}

// State returns the current channel state.
func (r *Raw) State() State {
	return State(atomic.LoadInt32(&r.state))
}

// Mode returns the buffer framing mode.
func (r *Raw) Mode() Mode {
	return Mode(atomic.LoadInt32(&r.mode))
}

// SetMode selects the buffer framing mode.
func (r *Raw) SetMode(m Mode) error {
	if m != ModePassthrough && m != ModeH4 {
		return errors.Wrapf(bthost.ErrInvalid, "mode %v", m)
	}
	atomic.StoreInt32(&r.mode, int32(m))
	return nil
}

// SetTransport binds t. A transport is bound once and never replaced.
func (r *Raw) SetTransport(t Transport) error {
	if t == nil {
		return errors.Wrap(bthost.ErrInvalid, "nil transport")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.transport != nil {
		return errors.Wrapf(bthost.ErrBusy, "transport %s already bound", r.transport.Name())
	}
	r.transport = t
	bthost.LogDbg(r.log, "transport %s bound", t.Name())
	return nil
}

// Transport returns the bound transport, nil if none.
func (r *Raw) Transport() Transport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transport
}

// EnableRaw binds rx as the sink for all controller packets and opens the
// transport. If opening fails the channel stays unbound and EnableRaw may
// be retried.
func (r *Raw) EnableRaw(rx *buf.Fifo) error {
	if rx == nil {
		return errors.Wrap(bthost.ErrInvalid, "nil rx queue")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.State(); s != StateUnbound {
		return errors.Wrapf(bthost.ErrBusy, "raw channel %v", s)
	}
	if r.transport == nil {
		return errors.Wrap(bthost.ErrNotReady, "no transport bound")
	}

	r.rx = rx
	r.session = uuid.New().String()
	log := r.log.ChildLogger(map[string]interface{}{"session": r.session})
	atomic.StoreInt32(&r.state, int32(StateBound))

	if err := r.transport.Open(rawHost{r}); err != nil {
		atomic.StoreInt32(&r.state, int32(StateUnbound))
		r.rx = nil
		r.session = ""
		bthost.LogErr(log, "open %s: %v", r.transport.Name(), err)
		return bthost.NewTransportError("open "+r.transport.Name(), err)
	}

	r.slog = log
	atomic.StoreInt32(&r.state, int32(StateActive))
	bthost.LogInf(log, "raw channel active on %s (%v mode)", r.transport.Name(), r.Mode())
	return nil
}

// Send hands b to the transport synchronously. b must come from GetTx. On
// success the transport owns b; on failure the caller keeps it and must
// release it.
func (r *Raw) Send(b *buf.Buf) error {
	if b == nil {
		return errors.Wrap(bthost.ErrInvalid, "nil buf")
	}
	if r.State() != StateActive {
		return errors.Wrap(bthost.ErrNotReady, "raw channel not enabled")
	}
	if !r.ownsTx(b.Pool()) {
		return errors.Wrap(bthost.ErrInvalid, "buf not from a tx pool")
	}

	h4 := r.Mode() == ModeH4
	if h4 {
		t, err := b.PullU8()
		if err != nil {
			return errors.Wrap(bthost.ErrInvalid, "missing h4 indicator")
		}
		b.Type = buf.Type(t)
	}

	if r.txPool(b.Type) == nil {
		if h4 {
			b.PushU8(byte(b.Type))
		}
		return errors.Wrapf(bthost.ErrInvalid, "can't send %v packets", b.Type)
	}

	t := b.Type
	if err := r.transport.Send(b); err != nil {
		atomic.AddUint64(&r.stats.txErrors, 1)
		if h4 {
			b.PushU8(byte(t))
		}
		bthost.LogDbg(r.slog, "send %v: %v", t, err)
		return bthost.NewTransportError("send "+r.transport.Name(), err)
	}
	r.stats.countTx(t)
	return nil
}

// GetTx allocates a TX buffer of type t holding data. With t == H4 the type
// is taken from data[0]. In ModeH4 the returned buffer starts with the
// indicator, ready for Send.
func (r *Raw) GetTx(t buf.Type, timeout time.Duration, data []byte) (*buf.Buf, error) {
	if t == H4 {
		if len(data) == 0 {
			return nil, errors.Wrap(bthost.ErrInvalid, "empty h4 packet")
		}
		t, data = buf.Type(data[0]), data[1:]
	}

	p := r.txPool(t)
	if p == nil {
		return nil, errors.Wrapf(bthost.ErrInvalid, "no tx pool for %v", t)
	}

	b, err := p.Alloc(t, timeout)
	if err != nil {
		return nil, err
	}
	if err := b.AddMem(data); err != nil {
		b.Unref()
		return nil, err
	}
	if r.Mode() == ModeH4 {
		b.PushU8(byte(t))
	}
	return b, nil
}

// SetACLDestroyHook registers fn to observe every ACL buffer released back
// to the stack pools. nil removes it.
func (r *Raw) SetACLDestroyHook(fn func(*buf.Buf)) {
	r.aclTx.SetDestroyHook(fn)
	if fn == nil {
		r.rxBuf.SetDestroyHook(nil)
		return
	}
	r.rxBuf.SetDestroyHook(func(b *buf.Buf) {
		if b.Type == buf.TypeACL {
			fn(b)
		}
	})
}

// Stats returns a snapshot of the channel counters.
func (r *Raw) Stats() Stats {
	s := Stats{
		State: r.State().String(),
		Mode:  r.Mode().String(),
	}
	r.stats.fill(&s)

	r.mu.Lock()
	if r.transport != nil {
		s.Transport = r.transport.Name()
	}
	s.Session = r.session
	if r.rx != nil {
		s.RxQueued = r.rx.Len()
	}
	r.mu.Unlock()
	return s
}

func (r *Raw) txPool(t buf.Type) *buf.Pool {
	switch t {
	case buf.TypeCmd:
		return r.cmdTx
	case buf.TypeACL, buf.TypeSCO:
		return r.aclTx
	case buf.TypeISO:
		return r.isoTx
	default:
		return nil
	}
}

func (r *Raw) ownsTx(p *buf.Pool) bool {
	return p != nil && (p == r.cmdTx || p == r.aclTx || p == r.isoTx)
}

func (r *Raw) recv(b *buf.Buf) error {
	if b == nil {
		return errors.Wrap(bthost.ErrInvalid, "nil buf")
	}
	if r.State() != StateActive {
		bthost.LogWrn(r.log, "%v packet while raw channel not active", b.Type)
		return errors.Wrap(bthost.ErrNotReady, "raw channel not active")
	}

	t := b.Type
	h4 := r.Mode() == ModeH4
	if h4 {
		if err := b.PushU8(byte(t)); err != nil {
			return err
		}
	}

	if err := r.rx.Put(b); err != nil {
		if h4 {
			b.PullU8()
		}
		atomic.AddUint64(&r.stats.rxDropped, 1)
		bthost.LogWrn(r.slog, "rx queue full, %v packet (%d bytes) not queued", t, b.Len())
		if bthost.LevelCheck(bthost.LevelDbg) {
			var d bytes.Buffer
			bthost.FHexdump(&d, "dropped", b.Bytes())
			r.slog.Debug(d.String())
		}
		return err
	}
	r.stats.countRx(t)
	return nil
}

// rawHost is the upcall surface handed to the transport on open.
type rawHost struct {
	r *Raw
}

func (h rawHost) Recv(b *buf.Buf) error {
	return h.r.recv(b)
}

func (h rawHost) RxBuf(t buf.Type, timeout time.Duration) (*buf.Buf, error) {
	return h.r.rxBuf.Alloc(t, timeout)
}
