package object

import (
	"fmt"
	"runtime"
)

// currentStack captures the calling goroutine's stack as an Array of
// String Values, each formatted "function file:line". This is the Go
// analogue of the backtrace rpc_error_create attaches to every error it
// constructs (src/rpc_object.c uses libunwind; here runtime.Callers does
// the equivalent job without cgo).
func currentStack() *Value {
	pcs := make([]uintptr, 32)
	// Skip runtime.Callers, currentStack and NewError, so the first frame
	// recorded is NewError's caller.
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return NewArrayFrom(nil)
	}
	frames := runtime.CallersFrames(pcs[:n])
	var entries []*Value
	for {
		frame, more := frames.Next()
		entries = append(entries, NewString(fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line)))
		if !more {
			break
		}
	}
	return NewArrayFrom(entries)
}
