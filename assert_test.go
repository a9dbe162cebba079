// +build !bt_noassert

package bthost

import (
	"strings"
	"testing"
)

func TestAssertPanics(t *testing.T) {
	SetAssertFlags(true, false, true)
	defer SetAssertFlags(true, true, true)

	defer func() {
		e, ok := recover().(*AssertionError)
		if !ok {
			t.Fatalf("expected *AssertionError panic")
		}
		if !strings.HasSuffix(e.File, "assert_test.go") || e.Msg != "len 3" {
			t.Fatalf("unexpected assertion %+v", e)
		}
	}()
	Assert(false, "len %d", 3)
	t.Fatalf("assert did not fail")
}

func TestAssertPostAction(t *testing.T) {
	SetAssertFlags(true, false, false)
	defer SetAssertFlags(true, true, true)

	var got *AssertionError
	old := SetAssertPostAction(func(e *AssertionError) { got = e })
	defer SetAssertPostAction(old)

	Assert(true, "never")
	if got != nil {
		t.Fatalf("passing assertion failed")
	}
	AssertFn(func() bool { return false }, "")
	if got == nil || got.Msg != "" {
		t.Fatalf("post action not run: %+v", got)
	}
}

func TestAssertOff(t *testing.T) {
	SetAssertFlags(false, true, true)
	defer SetAssertFlags(true, true, true)

	// runtime off still evaluates, but never fails
	called := false
	AssertFn(func() bool { called = true; return false }, "off")
	if !called {
		t.Fatalf("predicate not evaluated")
	}
}
