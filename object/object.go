// Package object implements the tagged, reference-counted, polymorphic
// value graph exchanged between RPC endpoints: null, bool, integers,
// double, date, string, binary blob, file descriptor, shared-memory
// handle, error, ordered array and keyed dictionary.
//
// Ported from the rpc_object_t model of cheewill/librpc (src/rpc_object.c),
// with Go's garbage collector taking over plain memory management while
// the explicit refcounting discipline is kept for the resources that need
// it: file descriptors and shared-memory segments are not owned by the Go
// runtime and must be retained/released exactly like the C original.
package object

import (
	"sync/atomic"
	"time"
)

// Tag identifies the concrete payload carried by a Value. It is the Go
// analogue of rpc_type_t in include/rpc/object.h.
type Tag int

const (
	Null Tag = iota
	Bool
	Int64
	Uint64
	Double
	Date
	String
	Binary
	FD
	Shmem
	Error
	Array
	Dict
)

func (t Tag) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Double:
		return "double"
	case Date:
		return "date"
	case String:
		return "string"
	case Binary:
		return "binary"
	case FD:
		return "fd"
	case Shmem:
		return "shmem"
	case Error:
		return "error"
	case Array:
		return "array"
	case Dict:
		return "dictionary"
	default:
		return "unknown"
	}
}

// TypeBinder is the back-pointer a Value optionally carries to a type
// instance from the typing registry. It is defined here, not in package
// typing, to avoid an import cycle: typing depends on object, so object
// cannot depend back on typing. typing.Instance implements this interface.
type TypeBinder interface {
	CanonicalForm() string
}

type binaryPayload struct {
	data []byte
	copy bool
}

type shmemPayload struct {
	fd     int
	offset int64
	size   int64
	closed atomic.Bool
}

type errorPayload struct {
	code    int
	message string
	extra   *Value
	stack   *Value
}

// Value is a refcounted, tagged object. The zero Value is not valid; use
// one of the New* constructors. Values are not safe for concurrent
// mutation (§5 of the design: containers are not internally synchronised),
// but Retain/Release are atomic and may be called from any goroutine.
type Value struct {
	tag      Tag
	refcount atomic.Int32

	line, column int
	typeInstance TypeBinder

	b     bool
	i     int64
	u     uint64
	d     float64
	date  time.Time
	str   string
	bin   binaryPayload
	fd    int
	shmem shmemPayload
	err   errorPayload
	arr   []*Value
	dict  map[string]*Value
}

func newValue(tag Tag) *Value {
	v := &Value{tag: tag}
	v.refcount.Store(1)
	return v
}

// Tag returns the discriminator of v. A nil Value is treated as Null, the
// same convention rpc_get_type uses for a NULL rpc_object_t.
func (v *Value) Tag() Tag {
	if v == nil {
		return Null
	}
	return v.tag
}

// Retain increments the reference count and returns v for chaining.
func (v *Value) Retain() *Value {
	if v == nil {
		return nil
	}
	v.refcount.Add(1)
	return v
}

// Release decrements the reference count, tearing the Value down (and
// cascading into contained Values) when it reaches zero. Releasing past
// zero is a programming error, mirroring the source's assert(refcnt > 0).
func (v *Value) Release() {
	if v == nil {
		return
	}
	if v.refcount.Add(-1) != 0 {
		return
	}
	switch v.tag {
	case Array:
		for _, e := range v.arr {
			e.Release()
		}
	case Dict:
		for _, e := range v.dict {
			e.Release()
		}
	case Error:
		v.err.extra.Release()
		v.err.stack.Release()
	case Shmem:
		closeShmem(&v.shmem)
	}
}

// Line and Column return the optional source-location metadata attached
// to a Value parsed from a textual representation (0 if unset).
func (v *Value) Line() int   { return v.line }
func (v *Value) Column() int { return v.column }

// SetPosition attaches source-location metadata, returning v for chaining.
func (v *Value) SetPosition(line, column int) *Value {
	v.line, v.column = line, column
	return v
}

// TypeInstance returns the type-registry back-pointer attached to v, if any.
func (v *Value) TypeInstance() TypeBinder { return v.typeInstance }

// SetTypeInstance attaches a type-registry back-pointer, returning v.
func (v *Value) SetTypeInstance(t TypeBinder) *Value {
	v.typeInstance = t
	return v
}

// NewNull creates a Value of tag Null.
func NewNull() *Value { return newValue(Null) }

// NewBool creates a Value of tag Bool.
func NewBool(b bool) *Value {
	v := newValue(Bool)
	v.b = b
	return v
}

// Bool returns the bool payload, or false if v is not a Bool.
func (v *Value) Bool() bool {
	if v == nil || v.tag != Bool {
		return false
	}
	return v.b
}

// NewInt64 creates a Value of tag Int64.
func NewInt64(i int64) *Value {
	v := newValue(Int64)
	v.i = i
	return v
}

// Int64 returns the int64 payload, or -1 if v is not an Int64 (matching
// rpc_int64_get_value's sentinel return).
func (v *Value) Int64() int64 {
	if v == nil || v.tag != Int64 {
		return -1
	}
	return v.i
}

// NewUint64 creates a Value of tag Uint64.
func NewUint64(u uint64) *Value {
	v := newValue(Uint64)
	v.u = u
	return v
}

// Uint64 returns the uint64 payload, or 0 if v is not a Uint64.
func (v *Value) Uint64() uint64 {
	if v == nil || v.tag != Uint64 {
		return 0
	}
	return v.u
}

// NewDouble creates a Value of tag Double.
func NewDouble(d float64) *Value {
	v := newValue(Double)
	v.d = d
	return v
}

// Double returns the float64 payload, or 0 if v is not a Double.
func (v *Value) Double() float64 {
	if v == nil || v.tag != Double {
		return 0
	}
	return v.d
}

// NewDate creates a Value of tag Date at second resolution, matching the
// UTC-instant semantics of rpc_date_create.
func NewDate(t time.Time) *Value {
	v := newValue(Date)
	v.date = t.UTC().Truncate(time.Second)
	return v
}

// NewDateFromUnix creates a Date Value from a Unix timestamp in seconds.
func NewDateFromUnix(seconds int64) *Value {
	return NewDate(time.Unix(seconds, 0))
}

// NewDateNow creates a Date Value for the current instant.
func NewDateNow() *Value { return NewDate(time.Now()) }

// Date returns the time.Time payload, or the zero time if v is not a Date.
func (v *Value) Date() time.Time {
	if v == nil || v.tag != Date {
		return time.Time{}
	}
	return v.date
}

// NewString creates a Value of tag String. Go strings may already contain
// arbitrary bytes including NUL, satisfying the length-counted-not-NUL-
// terminated requirement of §3.1 without extra work.
func NewString(s string) *Value {
	v := newValue(String)
	v.str = s
	return v
}

// String returns the string payload, or "" if v is not a String.
func (v *Value) String() string {
	if v == nil || v.tag != String {
		return ""
	}
	return v.str
}

// NewData creates a Value of tag Binary. When copy is true the byte slice
// is duplicated on construction (Go still owns the memory either way;
// the flag is kept to preserve the owner/borrower distinction of §3.1 and
// is reported by DataOwned; Release does not consult it, and Copy always
// duplicates the bytes whatever the flag).
func NewData(b []byte, copy bool) *Value {
	v := newValue(Binary)
	if copy {
		cp := make([]byte, len(b))
		builtinCopy(cp, b)
		v.bin = binaryPayload{data: cp, copy: true}
	} else {
		v.bin = binaryPayload{data: b, copy: false}
	}
	return v
}

func builtinCopy(dst, src []byte) { copy(dst, src) }

// Data returns the byte payload, or nil if v is not Binary.
func (v *Value) Data() []byte {
	if v == nil || v.tag != Binary {
		return nil
	}
	return v.bin.data
}

// DataOwned reports whether the Binary payload was duplicated on
// construction (the rbv_copy flag in the source).
func (v *Value) DataOwned() bool {
	if v == nil || v.tag != Binary {
		return false
	}
	return v.bin.copy
}

// NewFD creates a Value of tag FD. The descriptor is never closed by
// Release; only Dup()/explicit close manage its lifetime (§3.1).
func NewFD(fd int) *Value {
	v := newValue(FD)
	v.fd = fd
	return v
}

// FD returns the descriptor number, or -1 if v is not an FD.
func (v *Value) FD() int {
	if v == nil || v.tag != FD {
		return -1
	}
	return v.fd
}

// NewError creates a Value of tag Error, capturing the current stack trace
// the way rpc_error_create does via its internal backtrace helper.
func NewError(code int, message string, extra *Value) *Value {
	return newError(code, message, extra, currentStack())
}

// NewErrorWithStack creates an Error Value with an explicit stack Value,
// matching rpc_error_create_with_stack.
func NewErrorWithStack(code int, message string, extra, stack *Value) *Value {
	if stack == nil {
		stack = NewNull()
	}
	return newError(code, message, extra, stack.Retain())
}

func newError(code int, message string, extra, stack *Value) *Value {
	v := newValue(Error)
	if extra == nil {
		extra = NewNull()
	} else {
		extra = extra.Retain()
	}
	v.err = errorPayload{code: code, message: message, extra: extra, stack: stack}
	return v
}

// ErrorCode returns the numeric error code, or -1 if v is not an Error.
func (v *Value) ErrorCode() int {
	if v == nil || v.tag != Error {
		return -1
	}
	return v.err.code
}

// ErrorMessage returns the error message, or "" if v is not an Error.
func (v *Value) ErrorMessage() string {
	if v == nil || v.tag != Error {
		return ""
	}
	return v.err.message
}

// ErrorExtra returns the extra payload attached to an Error Value.
func (v *Value) ErrorExtra() *Value {
	if v == nil || v.tag != Error {
		return nil
	}
	return v.err.extra
}

// ErrorStack returns the captured stack Value of an Error Value.
func (v *Value) ErrorStack() *Value {
	if v == nil || v.tag != Error {
		return nil
	}
	return v.err.stack
}

// SetErrorExtra replaces the extra payload of an Error Value, retaining
// the new one and releasing the old, matching rpc_error_set_extra.
func (v *Value) SetErrorExtra(extra *Value) {
	if v == nil || v.tag != Error {
		return
	}
	if v.err.extra != nil {
		v.err.extra.Release()
	}
	v.err.extra = extra.Retain()
}
