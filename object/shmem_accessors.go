package object

// ShmemFD returns the raw descriptor backing a Shmem Value, matching
// rpc_shmem_get_fd. The descriptor is still owned by v; callers that need
// an independent one should go through Copy, not hold onto this value
// past v's lifetime.
func (v *Value) ShmemFD() int {
	if v == nil || v.tag != Shmem {
		return -1
	}
	return v.shmem.fd
}

// ShmemOffset matches rpc_shmem_get_offset.
func (v *Value) ShmemOffset() int64 {
	if v == nil || v.tag != Shmem {
		return 0
	}
	return v.shmem.offset
}

// ShmemSize matches rpc_shmem_get_size.
func (v *Value) ShmemSize() int64 {
	if v == nil || v.tag != Shmem {
		return 0
	}
	return v.shmem.size
}
