package object

import "math"

// Hash computes a structural digest of v, mirroring rpc_hash's per-tag
// dispatch in src/rpc_object.c: scalars hash their bit pattern, strings
// and binary blobs use the djb2 algorithm, descriptors and shared-memory
// segments hash the (dev, ino) pair of the file they back (so that two
// descriptors pointing at the same file compare equal), and containers
// fold their elements' hashes with XOR so that Hash (and therefore Equal)
// is order-independent for arrays and dictionaries alike.
func (v *Value) Hash() uint64 {
	if v == nil {
		return hashTag(Null)
	}
	switch v.tag {
	case Null:
		return hashTag(Null)
	case Bool:
		if v.b {
			return hashTag(Bool) ^ 1
		}
		return hashTag(Bool)
	case Int64:
		return hashTag(Int64) ^ uint64(v.i)
	case Uint64:
		return hashTag(Uint64) ^ v.u
	case Double:
		return hashTag(Double) ^ math.Float64bits(v.d)
	case Date:
		return hashTag(Date) ^ uint64(v.date.Unix())
	case String:
		return hashTag(String) ^ djb2([]byte(v.str))
	case Binary:
		return hashTag(Binary) ^ djb2(v.bin.data)
	case FD:
		return hashTag(FD) ^ hashFileIdentity(v.fd)
	case Shmem:
		return hashTag(Shmem) ^ hashFileIdentity(v.shmem.fd)
	case Error:
		h := hashTag(Error) ^ uint64(v.err.code) ^ djb2([]byte(v.err.message))
		return h ^ v.err.extra.Hash()
	case Array:
		h := hashTag(Array)
		for _, e := range v.arr {
			h ^= e.Hash()
		}
		return h
	case Dict:
		h := hashTag(Dict)
		for k, e := range v.dict {
			h ^= djb2([]byte(k)) ^ e.Hash()
		}
		return h
	default:
		return 0
	}
}

func hashTag(t Tag) uint64 {
	// Large odd multiplier so distinct tags with zero-valued payloads
	// (e.g. Int64(0) vs Uint64(0)) still land on different hashes.
	return uint64(t+1) * 0x9E3779B97F4A7C15
}

// djb2 is Dan Bernstein's string hash, used verbatim by rpc_data_hash.
func djb2(data []byte) uint64 {
	var hash uint64 = 5381
	for _, b := range data {
		hash = ((hash << 5) + hash) + uint64(b)
	}
	return hash
}

func hashFileIdentity(fd int) uint64 {
	dev, ino, err := fdIdentity(fd)
	if err != nil {
		// fstat can fail for a descriptor closed out from under us; fall
		// back to the raw fd number rather than propagating an error
		// from a Hash method that has no error return, matching
		// rpc_hash's own silent fallback on a failed fstat.
		return uint64(fd)
	}
	return dev ^ (ino * 0x100000001B3)
}
