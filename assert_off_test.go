// +build bt_noassert

package bthost

import "testing"

func TestAssertCompiledOut(t *testing.T) {
	if AssertEnabled {
		t.Fatalf("assertions enabled")
	}

	called := false
	AssertFn(func() bool { called = true; return false }, "never")
	Assert(false, "never")
	if called {
		t.Fatalf("predicate evaluated with assertions compiled out")
	}
}
