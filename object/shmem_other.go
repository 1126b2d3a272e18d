//go:build !linux

package object

import "fmt"

// NewShmem is unsupported on this platform: shared-memory segments in
// cheewill/librpc are created via Linux-only memfd_create, which has no
// portable equivalent across the other targets this module builds for.
func NewShmem(size int64) (*Value, error) {
	return nil, fmt.Errorf("shmem: not supported on this platform")
}

// NewShmemFromFD wraps an already-open shared-memory descriptor as
// received from a peer; mapping it still requires a platform-specific
// Map implementation, which this build lacks.
func NewShmemFromFD(fd int, offset, size int64) *Value {
	v := newValue(Shmem)
	v.shmem = shmemPayload{fd: fd, offset: offset, size: size}
	return v
}

func (v *Value) Map() ([]byte, error) {
	return nil, fmt.Errorf("shmem: Map not supported on this platform")
}

func (v *Value) Unmap(b []byte) error {
	return fmt.Errorf("shmem: Unmap not supported on this platform")
}

func closeShmem(p *shmemPayload) {
	p.closed.CompareAndSwap(false, true)
}

func dupShmemFD(fd int) (int, error) {
	return -1, fmt.Errorf("shmem: dup not supported on this platform")
}
