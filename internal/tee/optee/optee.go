// Package optee talks to a trusted application through the Linux TEE
// subsystem (/dev/tee*) with the OP-TEE driver behind it.
package optee

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/tee"
	mmap "github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultDevice = "/dev/tee0"

var (
	ErrNotOPTEE         = errors.New("optee: device is not an OP-TEE implementation")
	ErrNoGlobalPlatform = errors.New("optee: driver lacks GlobalPlatform client support")
)

// Dialer opens sessions to the trusted application identified by UUID.
type Dialer struct {
	Device string
	UUID   uuid.UUID
}

// NewDialer targets the StandaloneMM variable service on device.
func NewDialer(device string) *Dialer {
	if device == "" {
		device = DefaultDevice
	}
	return &Dialer{Device: device, UUID: protocol.VariableServiceGUID}
}

func (d *Dialer) Connect(ctx context.Context) (tee.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(d.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("optee: open %s: %w", d.Device, err)
	}

	if err := checkVersion(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	arg := new(openSessionArg)
	// GlobalPlatform TEEC_UUID octets are the RFC 4122 byte order.
	arg.UUID = [16]byte(d.UUID)
	arg.ClntLogin = loginPublic
	arg.NumParams = numParams
	if _, err := ioctl(f.Fd(), iocOpenSession, unsafe.Pointer(bufOf(arg))); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("optee: open session ioctl: %w", err)
	}
	runtime.KeepAlive(arg)
	if err := tee.ResultError("open_session", arg.Ret, arg.RetOrigin); err != nil {
		_ = f.Close()
		return nil, err
	}

	log.Debug().
		Str("component", "optee").
		Str("device", d.Device).
		Stringer("ta", d.UUID).
		Uint32("session", arg.Session).
		Msg("session opened")
	return &conn{file: f, session: arg.Session, regions: make(map[int32]region)}, nil
}

func checkVersion(f *os.File) error {
	var v versionData
	if _, err := ioctl(f.Fd(), iocVersion, unsafe.Pointer(&v)); err != nil {
		return fmt.Errorf("optee: version ioctl: %w", err)
	}
	if v.ImplID != implIDOPTEE {
		return fmt.Errorf("%w: impl_id=%d", ErrNotOPTEE, v.ImplID)
	}
	if v.GenCaps&genCapGP == 0 {
		return ErrNoGlobalPlatform
	}
	return nil
}

type region struct {
	file *os.File
	mem  mmap.MMap
}

type conn struct {
	file    *os.File
	session uint32
	regions map[int32]region
	closed  bool
}

func (c *conn) AllocateShared(size int) (*tee.SharedMemory, error) {
	if c.closed {
		return nil, tee.ErrClosed
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", tee.ErrInvalidSize, size)
	}
	data := shmAllocData{Size: uint64(size)}
	fd, err := ioctl(c.file.Fd(), iocShmAlloc, unsafe.Pointer(&data))
	if err != nil {
		return nil, fmt.Errorf("optee: shm alloc ioctl: %w", err)
	}
	f := os.NewFile(uintptr(fd), fmt.Sprintf("tee-shm-%d", data.ID))
	mem, err := mmap.MapRegion(f, size, mmap.RDWR, 0, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("optee: map shm %d: %w", data.ID, err)
	}
	c.regions[data.ID] = region{file: f, mem: mem}
	return &tee.SharedMemory{ID: data.ID, Buf: mem}, nil
}

func (c *conn) ReleaseShared(shm *tee.SharedMemory) error {
	if shm == nil {
		return tee.ErrUnknownShm
	}
	r, ok := c.regions[shm.ID]
	if !ok {
		return tee.ErrUnknownShm
	}
	delete(c.regions, shm.ID)
	return errors.Join(r.mem.Unmap(), r.file.Close())
}

func (c *conn) Invoke(ctx context.Context, cmd uint32, shm *tee.SharedMemory) (tee.Result, error) {
	if c.closed {
		return tee.Result{}, tee.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return tee.Result{}, err
	}
	if shm == nil {
		return tee.Result{}, tee.ErrUnknownShm
	}
	if _, ok := c.regions[shm.ID]; !ok {
		return tee.Result{}, tee.ErrUnknownShm
	}

	arg := new(invokeArg)
	arg.Func = cmd
	arg.Session = c.session
	arg.NumParams = numParams
	arg.Params[0] = param{Attr: attrTypeMemrefInout, A: 0, B: uint64(len(shm.Buf)), C: uint64(uint32(shm.ID))}
	arg.Params[1] = param{Attr: attrTypeValueOutput}
	if _, err := ioctl(c.file.Fd(), iocInvoke, unsafe.Pointer(bufOf(arg))); err != nil {
		return tee.Result{}, fmt.Errorf("optee: invoke ioctl: %w", err)
	}
	runtime.KeepAlive(arg)
	if err := tee.ResultError("invoke", arg.Ret, arg.RetOrigin); err != nil {
		return tee.Result{}, err
	}
	return tee.Result{Value: arg.Params[1].A}, nil
}

func (c *conn) Close() error {
	if c.closed {
		return tee.ErrClosed
	}
	c.closed = true

	var errs []error
	for id, r := range c.regions {
		errs = append(errs, r.mem.Unmap(), r.file.Close())
		delete(c.regions, id)
	}
	arg := closeSessionArg{Session: c.session}
	if _, err := ioctl(c.file.Fd(), iocCloseSession, unsafe.Pointer(&arg)); err != nil {
		errs = append(errs, fmt.Errorf("optee: close session ioctl: %w", err))
	}
	errs = append(errs, c.file.Close())
	return errors.Join(errs...)
}
