// Package recovery provides panic recovery wrappers for the result and
// reaper paths. The session arena panics when a lease cannot be satisfied
// (the arrow allocator contract); these wrappers convert such panics into
// ordinary errors at the call edge instead of tearing down the process.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ToError wraps a function call with panic recovery.
// If the function panics, the panic is logged with its stack and converted
// to an error. A panic value that is itself an error is wrapped, so callers
// can match sentinel errors with errors.Is.
//
// Example:
//
//	err := recovery.ToError(logger, "advance", func() error {
//	    ok = reader.Next()
//	    return reader.Err()
//	})
func ToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// Capture stack trace
			stack := debug.Stack()

			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(stack),
			)

			if perr, ok := r.(error); ok {
				err = fmt.Errorf("%s: %w", operation, perr)
				return
			}
			err = fmt.Errorf("%s panicked: %v", operation, r)
		}
	}()

	return fn()
}

// Protect wraps a void function with panic recovery.
// Logs the panic but doesn't return an error.
// Used by the reaper so one failing release cannot abort a reaping pass.
func Protect(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()

			logger.Error("Panic recovered in cleanup",
				"operation", operation,
				"panic", r,
				"stack", string(stack),
			)
		}
	}()

	fn()
}
