package session

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/protocol/frame"
	"github.com/danmuck/stmmctl/internal/tee/loopback"
	"github.com/danmuck/stmmctl/internal/testutil/testlog"
)

var layout64 = frame.Layout{WordSize: 8}

func newPeer(payloadSize uint64) *loopback.Peer {
	cfg := loopback.DefaultConfig()
	cfg.Layout = layout64
	cfg.PayloadSize = payloadSize
	return loopback.New(cfg)
}

func newSession(peer *loopback.Peer) *Session {
	cfg := DefaultConfig()
	cfg.Layout = layout64
	return New(peer, cfg)
}

func TestOpenNegotiatesPayloadSize(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	s := newSession(peer)

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !s.Ready() || s.State() != StateReady {
		t.Fatalf("unexpected state=%s", s.State())
	}
	if s.MaxPayloadSize() != 128 {
		t.Fatalf("max payload size=%d", s.MaxPayloadSize())
	}
	if want := layout64.OuterHeaderSize() + layout64.InnerHeaderSize() + 128; s.MaxBufferSize() != want {
		t.Fatalf("max buffer size=%d want=%d", s.MaxBufferSize(), want)
	}
	if s.Negotiation().PayloadSize != 130 || s.Negotiation().Status != protocol.StatusSuccess {
		t.Fatalf("unexpected negotiation record: %+v", s.Negotiation())
	}

	st := peer.Stats()
	if st.Invokes != 1 || st.LiveShared() != 0 || st.OpenConns() != 1 {
		t.Fatalf("unexpected peer stats: %+v", st)
	}
	if len(st.Functions) != 1 || st.Functions[0] != protocol.FunctionGetPayloadSize {
		t.Fatalf("unexpected functions: %v", st.Functions)
	}
}

func TestOpenTwiceIsNoop(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	s := newSession(peer)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("second open: %v", err)
	}
	st := peer.Stats()
	if st.Connects != 1 || st.Invokes != 1 {
		t.Fatalf("second open touched transport: %+v", st)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	s := newSession(peer)
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("close on unopened session: %v", err)
		}
	}
	if s.State() != StateUninitialized || peer.Stats().Closes != 0 {
		t.Fatalf("close on unopened session changed state=%s stats=%+v", s.State(), peer.Stats())
	}

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}
	if s.State() != StateClosed || s.Ready() {
		t.Fatalf("unexpected state after close=%s", s.State())
	}
	if s.MaxPayloadSize() != 0 {
		t.Fatalf("limits kept after close")
	}
	if st := peer.Stats(); st.Closes != 1 || st.OpenConns() != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestOpenConnectFailure(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	cfg := peer.Config()
	cfg.ConnectErr = errors.New("no tee device")
	peer.Configure(cfg)
	s := newSession(peer)

	err := s.Open(context.Background())
	if !errors.Is(err, ErrTransportInit) || !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("expected transport init error, got %v", err)
	}
	if !errors.Is(err, cfg.ConnectErr) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if s.State() != StateUninitialized {
		t.Fatalf("unexpected state=%s", s.State())
	}
	if st := peer.Stats(); st.Allocations != 0 || st.Invokes != 0 {
		t.Fatalf("resources touched after connect failure: %+v", st)
	}
}

func TestOpenInvokeFailureReleasesAndAllowsRetry(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	cfg := peer.Config()
	cfg.InvokeErr = errors.New("rpc lost")
	peer.Configure(cfg)
	s := newSession(peer)

	err := s.Open(context.Background())
	if !errors.Is(err, ErrTransportInvoke) || !errors.Is(err, protocol.ErrTransport) {
		t.Fatalf("expected transport invoke error, got %v", err)
	}
	st := peer.Stats()
	if st.OpenConns() != 0 || st.LiveShared() != 0 {
		t.Fatalf("leaked resources: %+v", st)
	}
	if s.State() != StateUninitialized {
		t.Fatalf("unexpected state=%s", s.State())
	}

	cfg.InvokeErr = nil
	peer.Configure(cfg)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("retry open: %v", err)
	}
	if st := peer.Stats(); st.Connects != 2 || st.OpenConns() != 1 {
		t.Fatalf("retry did not reconnect cleanly: %+v", st)
	}
}

func TestOpenAllocationFailure(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	cfg := peer.Config()
	cfg.AllocErr = errors.New("out of shm")
	peer.Configure(cfg)
	s := newSession(peer)

	err := s.Open(context.Background())
	if !errors.Is(err, ErrPayloadNegotiation) || !errors.Is(err, ErrSharedMemory) {
		t.Fatalf("expected negotiation/shared memory error, got %v", err)
	}
	if st := peer.Stats(); st.OpenConns() != 0 || st.Invokes != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestOpenStrictStatusFails(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	cfg := peer.Config()
	cfg.Status = protocol.StatusAccessDenied
	peer.Configure(cfg)
	s := newSession(peer)

	err := s.Open(context.Background())
	if !errors.Is(err, ErrPayloadNegotiation) || !errors.Is(err, protocol.ErrNegotiation) {
		t.Fatalf("expected negotiation error, got %v", err)
	}
	var statusErr *protocol.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != protocol.StatusAccessDenied {
		t.Fatalf("status not surfaced: %v", err)
	}
	if st := peer.Stats(); st.OpenConns() != 0 || st.LiveShared() != 0 {
		t.Fatalf("leaked resources: %+v", st)
	}
}

func TestOpenLenientStatusUsesSize(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	pcfg := peer.Config()
	pcfg.Status = protocol.StatusAccessDenied
	peer.Configure(pcfg)

	cfg := DefaultConfig()
	cfg.Layout = layout64
	cfg.StatusPolicy = StatusLenient
	s := New(peer, cfg)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("lenient open: %v", err)
	}
	if s.MaxPayloadSize() != 128 {
		t.Fatalf("max payload size=%d", s.MaxPayloadSize())
	}
	if s.Negotiation().Status != protocol.StatusAccessDenied {
		t.Fatalf("status not recorded: %v", s.Negotiation().Status)
	}
}

func TestOpenRejectsUnusableSizes(t *testing.T) {
	testlog.Start(t)
	for _, size := range []uint64{0, 1, PayloadSizeHeadroom, 1 << 40} {
		peer := newPeer(size)
		s := newSession(peer)
		err := s.Open(context.Background())
		if !errors.Is(err, ErrPayloadNegotiation) {
			t.Fatalf("size=%d expected negotiation error, got %v", size, err)
		}
		if s.State() != StateUninitialized || peer.Stats().OpenConns() != 0 {
			t.Fatalf("size=%d left state=%s stats=%+v", size, s.State(), peer.Stats())
		}
	}
}

func TestOpenRespectsConfiguredLimit(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(4098)
	cfg := DefaultConfig()
	cfg.Layout = layout64
	cfg.MaxPayloadSize = 1024
	s := New(peer, cfg)
	if err := s.Open(context.Background()); !errors.Is(err, ErrPayloadNegotiation) {
		t.Fatalf("expected negotiation error, got %v", err)
	}
	cfg.MaxPayloadSize = 4096
	s = New(peer, cfg)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open at limit: %v", err)
	}
}

func TestOpenInvalidConfigSkipsTransport(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	s := New(peer, Config{Layout: layout64, StatusPolicy: "bogus"})
	if err := s.Open(context.Background()); !errors.Is(err, protocol.ErrParam) {
		t.Fatalf("expected param error, got %v", err)
	}
	if peer.Stats().Connects != 0 {
		t.Fatalf("connect attempted with invalid config")
	}
}

func TestReopenAfterClose(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(130)
	s := newSession(peer)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.Close()
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if st := peer.Stats(); st.Connects != 2 || st.Invokes != 2 || st.OpenConns() != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestCommunicate(t *testing.T) {
	testlog.Start(t)
	peer := newPeer(34)
	pcfg := peer.Config()
	pcfg.Handler = func(req frame.Frame) protocol.Status {
		body := req.Body()
		for i := range body {
			body[i] = ^body[i]
		}
		return protocol.StatusNotFound
	}
	pcfg.Value = 7
	peer.Configure(pcfg)
	s := newSession(peer)

	if _, err := s.Communicate(context.Background(), protocol.FunctionGetVariable, []byte{1}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Communicate(context.Background(), protocol.FunctionGetVariable, nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	if _, err := s.Communicate(context.Background(), protocol.FunctionGetVariable, make([]byte, 33)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}

	payload := bytes.Repeat([]byte{0x0f}, 32)
	resp, err := s.Communicate(context.Background(), protocol.FunctionGetVariable, payload)
	if err != nil {
		t.Fatalf("communicate: %v", err)
	}
	if resp.Status != protocol.StatusNotFound || resp.Value != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !bytes.Equal(resp.Body, bytes.Repeat([]byte{0xf0}, 32)) {
		t.Fatalf("unexpected body: % x", resp.Body)
	}
	var statusErr *protocol.StatusError
	if !errors.As(resp.Err(), &statusErr) || statusErr.Function != protocol.FunctionGetVariable {
		t.Fatalf("unexpected response error: %v", resp.Err())
	}
	if peer.Stats().LiveShared() != 0 {
		t.Fatalf("communicate leaked shared memory")
	}
}

func TestStateString(t *testing.T) {
	if StateNegotiating.String() != "negotiating" || State(42).String() != "state(42)" {
		t.Fatalf("unexpected state names")
	}
}
