// Package rpcerr defines the error kinds carried across the RPC boundary
// and the stack-capturing helpers used throughout the module.
package rpcerr

import (
	"bytes"
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// Kind classifies an error the way §7 of the design groups failures.
type Kind int

const (
	KindInvalid Kind = iota
	KindNotFound
	KindProtocol
	KindTransport
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is the error type surfaced by object/typing/service operations.
// Code mirrors the POSIX errno values the source used (EINVAL, ENOENT, ...)
// so callers familiar with librpc's conventions can check for them.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: errno %d", e.Kind, e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is the syscall.Errno equal to e.Code, so that
// errors.Is(err, syscall.ENOENT) holds for an error built by NotFound.
func (e *Error) Is(target error) bool {
	errno, ok := target.(syscall.Errno)
	return ok && int(errno) == e.Code
}

func New(kind Kind, code int, format string, args ...any) error {
	e := &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
	for _, a := range args {
		if cause, ok := a.(error); ok {
			e.cause = cause
			break
		}
	}
	return WithStack(e)
}

func Invalid(format string, args ...any) error {
	return New(KindInvalid, int(syscall.EINVAL), format, args...)
}

func NotFound(format string, args ...any) error {
	return New(KindNotFound, int(syscall.ENOENT), format, args...)
}

func Protocol(format string, args ...any) error {
	return New(KindProtocol, int(syscall.EPROTO), format, args...)
}

func Transport(format string, args ...any) error {
	return New(KindTransport, int(syscall.EIO), format, args...)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithStack attaches a stack trace to err unless it already carries one.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); ok {
		return err
	}
	return errors.WithStack(err)
}

// StackTrace renders the captured stack trace of err, or "" if it has none.
func StackTrace(err error) string {
	buf := &bytes.Buffer{}
	if st, ok := err.(stackTracer); ok {
		for _, f := range st.StackTrace() {
			fmt.Fprintf(buf, "%+v\n", f)
		}
	}
	return buf.String()
}
