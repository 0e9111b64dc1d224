package optee

import "unsafe"

// Linux TEE subsystem ABI, include/uapi/linux/tee.h.

const (
	iocMagic = 0xa4

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	implIDOPTEE = 1
	genCapGP    = 1 << 0

	loginPublic = 0

	attrTypeNone        = 0
	attrTypeValueOutput = 2
	attrTypeMemrefInout = 7

	numParams = 4
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | iocMagic<<8 | nr
}

type versionData struct {
	ImplID   uint32
	ImplCaps uint32
	GenCaps  uint32
}

type shmAllocData struct {
	Size  uint64
	Flags uint32
	ID    int32
}

type bufData struct {
	BufPtr uint64
	BufLen uint64
}

type param struct {
	Attr uint64
	A    uint64
	B    uint64
	C    uint64
}

type openSessionArg struct {
	UUID      [16]byte
	ClntUUID  [16]byte
	ClntLogin uint32
	CancelID  uint32
	Session   uint32
	Ret       uint32
	RetOrigin uint32
	NumParams uint32
	Params    [numParams]param
}

type invokeArg struct {
	Func      uint32
	Session   uint32
	CancelID  uint32
	Ret       uint32
	RetOrigin uint32
	NumParams uint32
	Params    [numParams]param
}

type closeSessionArg struct {
	Session uint32
}

var (
	iocVersion      = ioc(iocRead, 0, unsafe.Sizeof(versionData{}))
	iocShmAlloc     = ioc(iocRead|iocWrite, 1, unsafe.Sizeof(shmAllocData{}))
	iocOpenSession  = ioc(iocRead, 2, unsafe.Sizeof(bufData{}))
	iocInvoke       = ioc(iocRead, 3, unsafe.Sizeof(bufData{}))
	iocCloseSession = ioc(iocRead, 5, unsafe.Sizeof(closeSessionArg{}))
)

func bufOf[T any](arg *T) *bufData {
	return &bufData{
		BufPtr: uint64(uintptr(unsafe.Pointer(arg))),
		BufLen: uint64(unsafe.Sizeof(*arg)),
	}
}
