//go:build linux

package optee

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}
