package hci

import (
	"sync/atomic"

	"github.com/rigado/bthost/buf"
)

// Stats is a snapshot of the raw channel counters.
type Stats struct {
	State     string `json:"state"`
	Mode      string `json:"mode"`
	Transport string `json:"transport,omitempty"`
	Session   string `json:"session,omitempty"`

	TxCmd uint64 `json:"tx_cmd"`
	TxACL uint64 `json:"tx_acl"`
	TxSCO uint64 `json:"tx_sco"`
	TxISO uint64 `json:"tx_iso"`

	RxEvt uint64 `json:"rx_evt"`
	RxACL uint64 `json:"rx_acl"`
	RxSCO uint64 `json:"rx_sco"`
	RxISO uint64 `json:"rx_iso"`

	TxErrors  uint64 `json:"tx_errors"`
	RxDropped uint64 `json:"rx_dropped"`
	RxQueued  int    `json:"rx_queued"`
}

type counters struct {
	tx        [typeSlots]uint64
	rx        [typeSlots]uint64
	txErrors  uint64
	rxDropped uint64
}

func (c *counters) countTx(t buf.Type) {
	if int(t) < typeSlots {
		atomic.AddUint64(&c.tx[t], 1)
	}
}

func (c *counters) countRx(t buf.Type) {
	if int(t) < typeSlots {
		atomic.AddUint64(&c.rx[t], 1)
	}
}

func (c *counters) fill(s *Stats) {
	s.TxCmd = atomic.LoadUint64(&c.tx[buf.TypeCmd])
	s.TxACL = atomic.LoadUint64(&c.tx[buf.TypeACL])
	s.TxSCO = atomic.LoadUint64(&c.tx[buf.TypeSCO])
	s.TxISO = atomic.LoadUint64(&c.tx[buf.TypeISO])
	s.RxEvt = atomic.LoadUint64(&c.rx[buf.TypeEvent])
	s.RxACL = atomic.LoadUint64(&c.rx[buf.TypeACL])
	s.RxSCO = atomic.LoadUint64(&c.rx[buf.TypeSCO])
	s.RxISO = atomic.LoadUint64(&c.rx[buf.TypeISO])
	s.TxErrors = atomic.LoadUint64(&c.txErrors)
	s.RxDropped = atomic.LoadUint64(&c.rxDropped)
}
