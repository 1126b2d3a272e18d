package object

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Dup returns a Value wrapping a newly duplicated descriptor pointing at
// the same underlying file, matching rpc_fd_dup. The caller owns the
// returned descriptor independently of v's.
func (v *Value) Dup() (*Value, error) {
	if v == nil || v.tag != FD {
		return nil, fmt.Errorf("fd: Dup called on a %s Value", v.Tag())
	}
	nfd, err := unix.FcntlInt(uintptr(v.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fd: dup: %w", err)
	}
	return NewFD(int(nfd)), nil
}

// fdIdentity returns the (dev, ino) pair backing fd, used by Hash/Equal to
// treat two descriptors pointing at the same file as identical even when
// their numeric values differ, matching rpc_hash's use of fstat on
// RPC_TYPE_FD/RPC_TYPE_SHMEM.
func fdIdentity(fd int) (dev, ino uint64, err error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, 0, fmt.Errorf("fd: fstat: %w", err)
	}
	return uint64(st.Dev), uint64(st.Ino), nil
}
