package session

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/tee"
	"github.com/danmuck/stmmctl/internal/tee/mocktee"
	"github.com/danmuck/stmmctl/internal/testutil/testlog"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestInvokeFailureReleasesBeforeClose(t *testing.T) {
	testlog.Start(t)
	ctrl := gomock.NewController(t)
	dialer := mocktee.NewMockDialer(ctrl)
	conn := mocktee.NewMockConn(ctrl)

	size := layout64.RequiredBufferSize(protocol.FunctionGetPayloadSize)
	shm := &tee.SharedMemory{ID: 3, Buf: make([]byte, size)}
	invokeErr := &tee.Error{Op: "invoke", Code: tee.CodeCommunication, Origin: tee.OriginComms}

	gomock.InOrder(
		dialer.EXPECT().Connect(gomock.Any()).Return(conn, nil),
		conn.EXPECT().AllocateShared(size).Return(shm, nil),
		conn.EXPECT().Invoke(gomock.Any(), tee.CommandCommunicate, shm).Return(tee.Result{}, invokeErr),
		conn.EXPECT().ReleaseShared(shm).Return(nil),
		conn.EXPECT().Close().Return(nil),
	)

	s := New(dialer, Config{Layout: layout64})
	err := s.Open(context.Background())
	require.ErrorIs(t, err, ErrTransportInvoke)
	var teeErr *tee.Error
	require.ErrorAs(t, err, &teeErr)
	require.Equal(t, tee.CodeCommunication, teeErr.Code)
	require.Equal(t, StateUninitialized, s.State())
}

func TestNegotiationFrameOnTheWire(t *testing.T) {
	testlog.Start(t)
	ctrl := gomock.NewController(t)
	dialer := mocktee.NewMockDialer(ctrl)
	conn := mocktee.NewMockConn(ctrl)

	size := layout64.RequiredBufferSize(protocol.FunctionGetPayloadSize)
	shm := &tee.SharedMemory{ID: 1, Buf: make([]byte, size)}

	dialer.EXPECT().Connect(gomock.Any()).Return(conn, nil)
	conn.EXPECT().AllocateShared(size).Return(shm, nil)
	conn.EXPECT().Invoke(gomock.Any(), tee.CommandCommunicate, shm).DoAndReturn(
		func(_ context.Context, _ uint32, m *tee.SharedMemory) (tee.Result, error) {
			req, err := layout64.Parse(m.Buf)
			require.NoError(t, err)
			require.NoError(t, req.ValidateRequest())
			require.Equal(t, protocol.FunctionGetPayloadSize, req.Function())
			require.Equal(t, protocol.StatusSuccess, req.Status())
			require.NoError(t, req.SetPayloadSize(130))
			return tee.Result{Value: 0x42}, nil
		})
	conn.EXPECT().ReleaseShared(shm).Return(nil)

	s := New(dialer, Config{Layout: layout64})
	require.NoError(t, s.Open(context.Background()))
	require.Equal(t, Limits{MaxPayloadSize: 128, MaxBufferSize: 168}, s.Limits())
	require.Equal(t, uint64(0x42), s.Negotiation().Value)

	conn.EXPECT().Close().Return(errors.New("already gone"))
	require.NoError(t, s.Close())
	require.Equal(t, StateClosed, s.State())
}

func TestShortSharedMemoryIsNegotiationError(t *testing.T) {
	testlog.Start(t)
	ctrl := gomock.NewController(t)
	dialer := mocktee.NewMockDialer(ctrl)
	conn := mocktee.NewMockConn(ctrl)

	shm := &tee.SharedMemory{ID: 1, Buf: make([]byte, 8)}
	gomock.InOrder(
		dialer.EXPECT().Connect(gomock.Any()).Return(conn, nil),
		conn.EXPECT().AllocateShared(gomock.Any()).Return(shm, nil),
		conn.EXPECT().ReleaseShared(shm).Return(errors.New("double free")),
		conn.EXPECT().Close().Return(nil),
	)

	s := New(dialer, Config{Layout: layout64})
	err := s.Open(context.Background())
	require.ErrorIs(t, err, ErrPayloadNegotiation)
	require.False(t, s.Ready())
}
