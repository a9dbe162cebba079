package bthost

import (
	"fmt"
	"os"
	"runtime"
	"sync"
)

// AssertionError is the panic value of a failed assertion.
type AssertionError struct {
	File string
	Line int
	Msg  string
}

func (e *AssertionError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("assertion failed at %s:%d", e.File, e.Line)
	}
	return fmt.Sprintf("assertion failed at %s:%d: %s", e.File, e.Line, e.Msg)
}

var assertMu sync.RWMutex
var assertOn = true
var assertVerbose = true
var assertPanic = true
var assertPostAction = func(*AssertionError) { os.Exit(134) }

// SetAssertFlags configures assertion handling at runtime. on can only turn
// assertions off; a bt_noassert build never checks them.
func SetAssertFlags(on, verbose, panicking bool) {
	assertMu.Lock()
	defer assertMu.Unlock()
	assertOn = on
	assertVerbose = verbose
	assertPanic = panicking
}

// SetAssertPostAction replaces what happens after a failed assertion when
// panicking is off. It returns the previous action.
func SetAssertPostAction(fn func(*AssertionError)) func(*AssertionError) {
	assertMu.Lock()
	defer assertMu.Unlock()
	old := assertPostAction
	assertPostAction = fn
	return old
}

func assertFailed(format string, args []interface{}) {
	assertMu.RLock()
	on, verbose, panicking, post := assertOn, assertVerbose, assertPanic, assertPostAction
	assertMu.RUnlock()

	if !on {
		return
	}

	// skip assertFailed and the Assert* wrapper
	_, file, line, _ := runtime.Caller(2)
	e := &AssertionError{File: file, Line: line}
	if format != "" {
		e.Msg = fmt.Sprintf(format, args...)
	}

	if verbose {
		LogErr(GetLogger(), "%v", e)
	}

	if panicking {
		panic(e)
	}
	post(e)
}
