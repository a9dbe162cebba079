package bthost

import (
	"io/ioutil"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Config holds the stack build configuration.
type Config struct {
	LongWQStackSize int  `json:"long_wq_stack_size"`
	LongWQPrio      int  `json:"long_wq_prio"`
	LongWQInitPrio  int  `json:"long_wq_init_prio"`
	Assert          bool `json:"assert"`
	AssertVerbose   bool `json:"assert_verbose"`
	AssertPanic     bool `json:"assert_panic"`
	StackLogLevel   int  `json:"stack_log_level"`

	// RX queue depth of the stack owned RX FIFO.
	RxQueueSize int `json:"rx_queue_size"`

	// Buffer pools. Sizes are payload bytes, the H4 indicator headroom is
	// added by the pool.
	CmdTxCount int `json:"cmd_tx_count"`
	CmdTxSize  int `json:"cmd_tx_size"`
	ACLTxCount int `json:"acl_tx_count"`
	ACLTxSize  int `json:"acl_tx_size"`
	ISOTxCount int `json:"iso_tx_count"`
	ISOTxSize  int `json:"iso_tx_size"`
	RxCount    int `json:"rx_count"`
	RxSize     int `json:"rx_size"`
}

// DefaultConfig returns the defaults used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		LongWQStackSize: 1300,
		LongWQPrio:      10,
		LongWQInitPrio:  50,
		Assert:          true,
		AssertVerbose:   true,
		AssertPanic:     true,
		StackLogLevel:   int(DefaultLevel),

		RxQueueSize: 16,

		CmdTxCount: 2,
		CmdTxSize:  255 + 3,
		ACLTxCount: 4,
		ACLTxSize:  251 + 4,
		ISOTxCount: 2,
		ISOTxSize:  251 + 4,
		RxCount:    10,
		RxSize:     255 + 4,
	}
}

// LoadConfig reads a JSON configuration file. Fields missing from the file
// keep their default value.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()

	in, err := ioutil.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrap(err, "can't read config")
	}

	if err := jsoniter.Unmarshal(in, &cfg); err != nil {
		return cfg, errors.Wrap(err, "can't parse config")
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.StackLogLevel < int(LevelNone) || c.StackLogLevel > int(LevelDbg):
		return errors.Wrapf(ErrInvalid, "stack_log_level %d out of range 0..4", c.StackLogLevel)
	case c.LongWQStackSize <= 0:
		return errors.Wrapf(ErrInvalid, "long_wq_stack_size %d", c.LongWQStackSize)
	case c.RxQueueSize <= 0:
		return errors.Wrapf(ErrInvalid, "rx_queue_size %d", c.RxQueueSize)
	case c.CmdTxCount <= 0 || c.CmdTxSize <= 0:
		return errors.Wrap(ErrInvalid, "cmd tx pool")
	case c.ACLTxCount <= 0 || c.ACLTxSize <= 0:
		return errors.Wrap(ErrInvalid, "acl tx pool")
	case c.ISOTxCount < 0 || c.ISOTxSize < 0:
		return errors.Wrap(ErrInvalid, "iso tx pool")
	case c.RxCount <= 0 || c.RxSize <= 0:
		return errors.Wrap(ErrInvalid, "rx pool")
	}
	return nil
}

// Apply configures the diagnostic surface from c.
func (c Config) Apply() {
	SetLogLevel(Level(c.StackLogLevel))
	SetAssertFlags(c.Assert, c.AssertVerbose, c.AssertPanic)
}
