//go:build !linux

package optee

import (
	"unsafe"

	"github.com/danmuck/stmmctl/internal/tee"
)

func ioctl(uintptr, uintptr, unsafe.Pointer) (int, error) {
	return -1, tee.ErrUnsupported
}
