// Package codec implements the wire encoding of an object.Value graph to
// and from bytes, the Go counterpart of librpc's JSON serializer
// (rpc_json_serialize/rpc_json_deserialize, referenced from
// rpc_object.c's "#include <serializer/json.h>").
//
// A kernel file descriptor or shared-memory segment has no portable
// textual form, so Encode/Decode reject a Value tree containing an FD or
// Shmem tag. EncodeFrame/DecodeFrame handle that case: every FD/Shmem
// Value is replaced in the JSON payload by a placeholder index into a
// side-channel []int of raw descriptors, which a transport sends/receives
// as ancillary data alongside the frame (SCM_RIGHTS on a unix socket) and
// passes back in here to reattach.
package codec

import (
	"fmt"
	"time"

	goccy "github.com/goccy/go-json"

	"github.com/cheewill/go-librpc/object"
)

// wireValue is the JSON projection of an object.Value. Only the field
// matching Tag is populated; the rest are omitted.
type wireValue struct {
	Tag    string                `json:"tag"`
	Bool   *bool                 `json:"bool,omitempty"`
	Int64  *int64                `json:"int64,omitempty"`
	Uint64 *uint64               `json:"uint64,omitempty"`
	Double *float64              `json:"double,omitempty"`
	Date   *string               `json:"date,omitempty"`
	String *string               `json:"string,omitempty"`
	Binary []byte                `json:"binary,omitempty"`
	FD     *int                  `json:"fd,omitempty"`
	Shmem  *wireShmem            `json:"shmem,omitempty"`
	Error  *wireError            `json:"error,omitempty"`
	Array  []*wireValue          `json:"array,omitempty"`
	Dict   map[string]*wireValue `json:"dict,omitempty"`
	Type   string                `json:"type,omitempty"`
}

type wireShmem struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	Size   int64 `json:"size"`
}

type wireError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Extra   *wireValue `json:"extra,omitempty"`
	Stack   *wireValue `json:"stack,omitempty"`
}

// Encode renders v as JSON bytes. It fails if v (or any Value nested
// inside it) carries tag FD or Shmem; use EncodeFrame for those.
func Encode(v *object.Value) ([]byte, error) {
	bytes, fds, err := EncodeFrame(v)
	if err != nil {
		return nil, err
	}
	if len(fds) > 0 {
		return nil, fmt.Errorf("codec: value carries %d file descriptor(s); use EncodeFrame", len(fds))
	}
	return bytes, nil
}

// Decode parses JSON bytes produced by Encode back into an object.Value.
// It fails if the payload contains an fd/shmem placeholder, since Decode
// has no side-channel descriptor array to resolve it against.
func Decode(payload []byte) (*object.Value, error) {
	return DecodeFrame(payload, nil)
}

// EncodeFrame renders v as JSON bytes, pulling every FD/Shmem Value's raw
// descriptor out into the returned []int and leaving a placeholder index
// in its place in the JSON. The caller (a transport) is expected to send
// that []int as ancillary data alongside the returned payload.
func EncodeFrame(v *object.Value) ([]byte, []int, error) {
	var fds []int
	wv, err := toWire(v, &fds)
	if err != nil {
		return nil, nil, err
	}
	bytes, err := goccy.Marshal(wv)
	if err != nil {
		return nil, nil, fmt.Errorf("codec: marshaling: %w", err)
	}
	return bytes, fds, nil
}

// DecodeFrame parses JSON bytes produced by EncodeFrame, reattaching each
// fd/shmem placeholder to the corresponding descriptor in fds.
func DecodeFrame(payload []byte, fds []int) (*object.Value, error) {
	var wv wireValue
	if err := goccy.Unmarshal(payload, &wv); err != nil {
		return nil, fmt.Errorf("codec: unmarshaling: %w", err)
	}
	return fromWire(&wv, fds)
}

func toWire(v *object.Value, fds *[]int) (*wireValue, error) {
	if v == nil {
		return &wireValue{Tag: object.Null.String()}, nil
	}
	wv := &wireValue{Tag: v.Tag().String()}
	if tb := v.TypeInstance(); tb != nil {
		wv.Type = tb.CanonicalForm()
	}
	switch v.Tag() {
	case object.Null:
	case object.Bool:
		b := v.Bool()
		wv.Bool = &b
	case object.Int64:
		i := v.Int64()
		wv.Int64 = &i
	case object.Uint64:
		u := v.Uint64()
		wv.Uint64 = &u
	case object.Double:
		d := v.Double()
		wv.Double = &d
	case object.Date:
		s := v.Date().Format(time.RFC3339Nano)
		wv.Date = &s
	case object.String:
		s := v.String()
		wv.String = &s
	case object.Binary:
		wv.Binary = v.Data()
	case object.FD:
		// Copy dups the descriptor so ownership of the raw fd can pass to
		// the caller's []int independently of v's own lifetime; the dup
		// wrapper is deliberately never Released (that would be a no-op
		// for FD anyway, which never auto-closes).
		dup, err := v.Copy()
		if err != nil {
			return nil, fmt.Errorf("codec: duplicating fd: %w", err)
		}
		idx := len(*fds)
		*fds = append(*fds, dup.FD())
		wv.FD = &idx
	case object.Shmem:
		// Same as FD, but the dup wrapper must not be Released: doing so
		// would close the very descriptor being handed off to the caller.
		dup, err := v.Copy()
		if err != nil {
			return nil, fmt.Errorf("codec: duplicating shmem fd: %w", err)
		}
		idx := len(*fds)
		*fds = append(*fds, dup.ShmemFD())
		wv.Shmem = &wireShmem{Index: idx, Offset: v.ShmemOffset(), Size: v.ShmemSize()}
	case object.Error:
		we := &wireError{Code: v.ErrorCode(), Message: v.ErrorMessage()}
		if extra := v.ErrorExtra(); extra != nil {
			w, err := toWire(extra, fds)
			if err != nil {
				return nil, err
			}
			we.Extra = w
		}
		if stack := v.ErrorStack(); stack != nil {
			w, err := toWire(stack, fds)
			if err != nil {
				return nil, err
			}
			we.Stack = w
		}
		wv.Error = we
	case object.Array:
		arr := make([]*wireValue, 0, v.Count())
		var err error
		v.Apply(func(_ int, e *object.Value) bool {
			var w *wireValue
			if w, err = toWire(e, fds); err != nil {
				return false
			}
			arr = append(arr, w)
			return true
		})
		if err != nil {
			return nil, err
		}
		wv.Array = arr
	case object.Dict:
		dict := make(map[string]*wireValue, v.Count())
		var err error
		v.DictApply(func(k string, e *object.Value) bool {
			var w *wireValue
			if w, err = toWire(e, fds); err != nil {
				return false
			}
			dict[k] = w
			return true
		})
		if err != nil {
			return nil, err
		}
		wv.Dict = dict
	default:
		return nil, fmt.Errorf("codec: unknown tag %v", v.Tag())
	}
	return wv, nil
}

func fromWire(wv *wireValue, fds []int) (*object.Value, error) {
	switch wv.Tag {
	case "null", "":
		return object.NewNull(), nil
	case "bool":
		return object.NewBool(derefBool(wv.Bool)), nil
	case "int64":
		return object.NewInt64(derefInt64(wv.Int64)), nil
	case "uint64":
		return object.NewUint64(derefUint64(wv.Uint64)), nil
	case "double":
		return object.NewDouble(derefFloat64(wv.Double)), nil
	case "date":
		t, err := parseDate(derefString(wv.Date))
		if err != nil {
			return nil, err
		}
		return object.NewDate(t), nil
	case "string":
		return object.NewString(derefString(wv.String)), nil
	case "binary":
		return object.NewData(wv.Binary, true), nil
	case "fd":
		idx := derefInt(wv.FD)
		if idx < 0 || idx >= len(fds) {
			return nil, fmt.Errorf("codec: fd placeholder %d out of range (have %d descriptors)", idx, len(fds))
		}
		return object.NewFD(fds[idx]), nil
	case "shmem":
		if wv.Shmem == nil || wv.Shmem.Index < 0 || wv.Shmem.Index >= len(fds) {
			return nil, fmt.Errorf("codec: shmem placeholder out of range")
		}
		return object.NewShmemFromFD(fds[wv.Shmem.Index], wv.Shmem.Offset, wv.Shmem.Size), nil
	case "error":
		if wv.Error == nil {
			return nil, fmt.Errorf("codec: error tag missing error payload")
		}
		var extra, stack *object.Value
		var err error
		if wv.Error.Extra != nil {
			if extra, err = fromWire(wv.Error.Extra, fds); err != nil {
				return nil, err
			}
		}
		if wv.Error.Stack != nil {
			if stack, err = fromWire(wv.Error.Stack, fds); err != nil {
				return nil, err
			}
		}
		if stack != nil {
			return object.NewErrorWithStack(wv.Error.Code, wv.Error.Message, extra, stack), nil
		}
		return object.NewError(wv.Error.Code, wv.Error.Message, extra), nil
	case "array":
		values := make([]*object.Value, 0, len(wv.Array))
		for _, w := range wv.Array {
			v, err := fromWire(w, fds)
			if err != nil {
				for _, done := range values {
					done.Release()
				}
				return nil, err
			}
			values = append(values, v)
		}
		return object.NewArrayFrom(values), nil
	case "dictionary":
		values := make(map[string]*object.Value, len(wv.Dict))
		for k, w := range wv.Dict {
			v, err := fromWire(w, fds)
			if err != nil {
				for _, done := range values {
					done.Release()
				}
				return nil, err
			}
			values[k] = v
		}
		return object.NewDictFrom(values), nil
	default:
		return nil, fmt.Errorf("codec: unknown wire tag %q", wv.Tag)
	}
}
