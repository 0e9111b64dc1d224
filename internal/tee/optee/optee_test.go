package optee

import (
	"context"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/tee"
	"github.com/danmuck/stmmctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestABIStructSizes(t *testing.T) {
	require.EqualValues(t, 12, unsafe.Sizeof(versionData{}))
	require.EqualValues(t, 16, unsafe.Sizeof(shmAllocData{}))
	require.EqualValues(t, 16, unsafe.Sizeof(bufData{}))
	require.EqualValues(t, 32, unsafe.Sizeof(param{}))
	require.EqualValues(t, 56+numParams*32, unsafe.Sizeof(openSessionArg{}))
	require.EqualValues(t, 24+numParams*32, unsafe.Sizeof(invokeArg{}))
	require.EqualValues(t, 56, unsafe.Offsetof(openSessionArg{}.Params))
	require.EqualValues(t, 24, unsafe.Offsetof(invokeArg{}.Params))
}

func TestIoctlNumbers(t *testing.T) {
	require.EqualValues(t, 0x800ca400, iocVersion)
	require.EqualValues(t, 0xc010a401, iocShmAlloc)
	require.EqualValues(t, 0x8010a402, iocOpenSession)
	require.EqualValues(t, 0x8010a403, iocInvoke)
	require.EqualValues(t, 0x8004a405, iocCloseSession)
}

func TestBufOfPointsAtArgument(t *testing.T) {
	arg := new(invokeArg)
	buf := bufOf(arg)
	require.Equal(t, uint64(uintptr(unsafe.Pointer(arg))), buf.BufPtr)
	require.EqualValues(t, unsafe.Sizeof(*arg), buf.BufLen)
}

func TestNewDialerDefaults(t *testing.T) {
	d := NewDialer("")
	require.Equal(t, DefaultDevice, d.Device)
	require.Equal(t, protocol.VariableServiceGUID, d.UUID)
	octets := [16]byte(d.UUID)
	require.Equal(t, byte(0xed), octets[0])
	require.Equal(t, byte(0xa7), octets[15])
}

func TestConnectMissingDevice(t *testing.T) {
	testlog.Start(t)
	d := NewDialer(filepath.Join(t.TempDir(), "tee9"))
	_, err := d.Connect(context.Background())
	require.Error(t, err)
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDialer("").Connect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClosedConnRejectsCalls(t *testing.T) {
	c := &conn{closed: true, regions: map[int32]region{}}
	_, err := c.AllocateShared(48)
	require.ErrorIs(t, err, tee.ErrClosed)
	_, err = c.Invoke(context.Background(), tee.CommandCommunicate, &tee.SharedMemory{})
	require.ErrorIs(t, err, tee.ErrClosed)
	require.ErrorIs(t, c.Close(), tee.ErrClosed)
	require.ErrorIs(t, c.ReleaseShared(&tee.SharedMemory{ID: 1}), tee.ErrUnknownShm)
}
