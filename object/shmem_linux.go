//go:build linux

package object

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NewShmem creates an anonymous, sealable shared-memory segment of size
// bytes, backed by a Linux memfd (memfd_create), and returns it wrapped in
// a Value of tag Shmem. This mirrors rpc_shmem_create, which used
// shm_open/ftruncate on the same descriptor-is-the-handle model.
func NewShmem(size int64) (*Value, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmem: size must be positive, got %d", size)
	}
	fd, err := unix.MemfdCreate("go-librpc-shmem", 0)
	if err != nil {
		return nil, fmt.Errorf("shmem: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmem: ftruncate: %w", err)
	}
	return newShmemValue(fd, 0, size), nil
}

// NewShmemFromFD wraps an already-open, already-sized shared-memory
// descriptor (e.g. one received over a transport connection's ancillary
// data) as a Value of tag Shmem, matching rpc_shmem_recreate.
func NewShmemFromFD(fd int, offset, size int64) *Value {
	return newShmemValue(fd, offset, size)
}

func newShmemValue(fd int, offset, size int64) *Value {
	v := newValue(Shmem)
	v.shmem = shmemPayload{fd: fd, offset: offset, size: size}
	return v
}

// Map maps the segment into the calling process's address space.
func (v *Value) Map() ([]byte, error) {
	if v == nil || v.tag != Shmem {
		return nil, fmt.Errorf("shmem: Map called on a %s Value", v.Tag())
	}
	return unix.Mmap(v.shmem.fd, v.shmem.offset, int(v.shmem.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// Unmap releases a mapping previously returned by Map.
func (v *Value) Unmap(b []byte) error {
	return unix.Munmap(b)
}

func closeShmem(p *shmemPayload) {
	if p.closed.CompareAndSwap(false, true) {
		unix.Close(p.fd)
	}
}

func dupShmemFD(fd int) (int, error) {
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("shmem: dup: %w", err)
	}
	return int(nfd), nil
}
