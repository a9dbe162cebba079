// +build bt_noassert

package bthost

// AssertEnabled is false in builds tagged bt_noassert.
const AssertEnabled = false

// Assert does nothing in this build.
func Assert(cond bool, format string, args ...interface{}) {}

// AssertFn does nothing in this build; pred is never called.
func AssertFn(pred func() bool, format string, args ...interface{}) {}
