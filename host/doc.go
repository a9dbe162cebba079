// Package host is the entry point of the stack. It initializes the
// diagnostic surface, starts the long work queue, binds the transport to
// the HCI raw channel and reports readiness on the long work queue.
//
// The package level functions operate on Default, the process-wide stack.
// NewStack returns an independent stack, mostly useful in tests.
package host
