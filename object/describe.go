package object

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Describe renders a human-readable, indented tree of v, the Go analogue
// of rpc_create_description. It is meant for logging and debugging, not
// as a wire format; use package codec for that.
func (v *Value) Describe() string {
	var b strings.Builder
	describe(&b, v, 0)
	return b.String()
}

func describe(b *strings.Builder, v *Value, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v.Tag() {
	case Null:
		fmt.Fprintf(b, "%snull\n", indent)
	case Bool:
		fmt.Fprintf(b, "%sbool: %v\n", indent, v.Bool())
	case Int64:
		fmt.Fprintf(b, "%sint64: %d\n", indent, v.Int64())
	case Uint64:
		fmt.Fprintf(b, "%suint64: %d\n", indent, v.Uint64())
	case Double:
		fmt.Fprintf(b, "%sdouble: %s\n", indent, strconv.FormatFloat(v.Double(), 'g', -1, 64))
	case Date:
		fmt.Fprintf(b, "%sdate: %s\n", indent, v.Date().Format("2006-01-02T15:04:05Z"))
	case String:
		fmt.Fprintf(b, "%sstring: %q\n", indent, v.String())
	case Binary:
		fmt.Fprintf(b, "%sbinary: %d bytes\n", indent, len(v.Data()))
	case FD:
		fmt.Fprintf(b, "%sfd: %d\n", indent, v.FD())
	case Shmem:
		fmt.Fprintf(b, "%sshmem: fd=%d offset=%d size=%d\n", indent, v.shmem.fd, v.shmem.offset, v.shmem.size)
	case Error:
		fmt.Fprintf(b, "%serror: code=%d message=%q\n", indent, v.ErrorCode(), v.ErrorMessage())
		if v.ErrorExtra().Tag() != Null {
			fmt.Fprintf(b, "%s  extra:\n", indent)
			describe(b, v.ErrorExtra(), depth+2)
		}
	case Array:
		fmt.Fprintf(b, "%sarray[%d]:\n", indent, v.Count())
		v.Apply(func(_ int, e *Value) bool {
			describe(b, e, depth+1)
			return true
		})
	case Dict:
		fmt.Fprintf(b, "%sdict[%d]:\n", indent, v.Count())
		keys := v.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "%s  %s:\n", indent, k)
			describe(b, v.DictGet(k), depth+2)
		}
	}
}
