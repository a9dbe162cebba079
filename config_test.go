package bthost

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	dir, err := ioutil.TempDir("", "bthost")
	if err != nil {
		t.Fatal(err)
	}
	fn := filepath.Join(dir, "config.json")
	if err := ioutil.WriteFile(fn, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestLoadConfig(t *testing.T) {
	fn := writeConfig(t, `{"long_wq_prio": 7, "stack_log_level": 4, "assert_panic": false, "rx_queue_size": 2}`)
	defer os.RemoveAll(filepath.Dir(fn))

	cfg, err := LoadConfig(fn)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LongWQPrio != 7 || cfg.StackLogLevel != 4 || cfg.AssertPanic || cfg.RxQueueSize != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	// untouched keys keep defaults
	if cfg.LongWQStackSize != DefaultConfig().LongWQStackSize || !cfg.Assert {
		t.Fatalf("defaults lost %+v", cfg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	fn := writeConfig(t, `{"stack_log_level": 5}`)
	defer os.RemoveAll(filepath.Dir(fn))

	if _, err := LoadConfig(fn); errors.Cause(err) != ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	if _, err := LoadConfig(filepath.Join(filepath.Dir(fn), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfigApply(t *testing.T) {
	defer SetLogLevel(LogLevel())

	cfg := DefaultConfig()
	cfg.StackLogLevel = int(LevelErr)
	cfg.Apply()
	if LogLevel() != LevelErr {
		t.Fatalf("level %v", LogLevel())
	}
}
