// +build !bt_noassert

package bthost

// AssertEnabled is false in builds tagged bt_noassert.
const AssertEnabled = true

// Assert fails when cond is false. cond is evaluated by the caller in every
// build; wrap expensive checks in AssertFn or guard with AssertEnabled.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		assertFailed(format, args)
	}
}

// AssertFn fails when pred returns false. pred is not called in builds
// tagged bt_noassert.
func AssertFn(pred func() bool, format string, args ...interface{}) {
	if !pred() {
		assertFailed(format, args)
	}
}
