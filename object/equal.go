package object

import "bytes"

// Equal reports whether a and b are structurally identical. rpc_equal in
// the source is defined purely as rpc_hash(a) == rpc_hash(b), which is
// sound but not complete: two different Values can collide on a 64-bit
// hash. This implementation keeps the hash comparison as the fast path
// but additionally verifies structural equality when the hashes agree,
// closing the collision gap the source's own documentation flags as a
// known limitation. Array and dictionary comparison stays order-
// independent, consistent with the hash itself folding elements with XOR.
func Equal(a, b *Value) bool {
	if a == b {
		return true
	}
	if a.Tag() != b.Tag() {
		return false
	}
	if a.Hash() != b.Hash() {
		return false
	}
	return same(a, b)
}

// Cmp provides the three-way comparison rpc_cmp exposes: unequal Values
// are ordered by Hash, which is enough to support e.g. Array.Sort without
// claiming any semantic ordering. Two unequal Values whose hashes collide
// compare as 0.
func Cmp(a, b *Value) int {
	if Equal(a, b) {
		return 0
	}
	ha, hb := a.Hash(), b.Hash()
	switch {
	case ha < hb:
		return -1
	case ha > hb:
		return 1
	default:
		return 0
	}
}

func same(a, b *Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Int64:
		return a.i == b.i
	case Uint64:
		return a.u == b.u
	case Double:
		return a.d == b.d
	case Date:
		return a.date.Equal(b.date)
	case String:
		return a.str == b.str
	case Binary:
		return bytes.Equal(a.bin.data, b.bin.data)
	case FD:
		da, ia, erra := fdIdentity(a.fd)
		db, ib, errb := fdIdentity(b.fd)
		if erra != nil || errb != nil {
			return a.fd == b.fd
		}
		return da == db && ia == ib
	case Shmem:
		da, ia, erra := fdIdentity(a.shmem.fd)
		db, ib, errb := fdIdentity(b.shmem.fd)
		if erra != nil || errb != nil {
			return a.shmem.fd == b.shmem.fd
		}
		return da == db && ia == ib && a.shmem.offset == b.shmem.offset
	case Error:
		return a.err.code == b.err.code && a.err.message == b.err.message && same(a.err.extra, b.err.extra)
	case Array:
		return sameArray(a.arr, b.arr)
	case Dict:
		return sameDict(a.dict, b.dict)
	default:
		return false
	}
}

func sameArray(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		matched := false
		for j, bv := range b {
			if used[j] {
				continue
			}
			if same(av, bv) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func sameDict(a, b map[string]*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !same(av, bv) {
			return false
		}
	}
	return true
}
