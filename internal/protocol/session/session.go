package session

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/protocol/frame"
	"github.com/danmuck/stmmctl/internal/tee"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateNegotiating
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Limits are the negotiated frame caps.
type Limits struct {
	// MaxPayloadSize is the largest function body the peer accepts.
	MaxPayloadSize int
	// MaxBufferSize is MaxPayloadSize plus both headers.
	MaxBufferSize int
}

// Negotiation records the raw GET_PAYLOAD_SIZE exchange.
type Negotiation struct {
	Status      protocol.Status
	Value       uint64
	PayloadSize uint64
}

// Session owns one connection to the variable service.
type Session struct {
	cfg         Config
	dialer      tee.Dialer
	conn        tee.Conn
	state       State
	limits      Limits
	negotiation Negotiation
}

func New(dialer tee.Dialer, cfg Config) *Session {
	return &Session{
		cfg:    cfg.WithDefaults(),
		dialer: dialer,
	}
}

func (s *Session) State() State             { return s.state }
func (s *Session) Ready() bool              { return s.state == StateReady }
func (s *Session) Limits() Limits           { return s.limits }
func (s *Session) MaxPayloadSize() int      { return s.limits.MaxPayloadSize }
func (s *Session) MaxBufferSize() int       { return s.limits.MaxBufferSize }
func (s *Session) Layout() frame.Layout     { return s.cfg.Layout }
func (s *Session) Negotiation() Negotiation { return s.negotiation }

// Open connects and negotiates the payload size. It is a no-op on a ready
// session. On failure every acquired resource is released and the session is
// left uninitialized, so Open may be called again.
func (s *Session) Open(ctx context.Context) error {
	if s.state == StateReady {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.state = StateConnecting
	conn, err := s.dialer.Connect(ctx)
	if err != nil {
		s.state = StateUninitialized
		log.Warn().Str("component", "session").Err(err).Msg("connect failed")
		return fmt.Errorf("%w: %w", ErrTransportInit, err)
	}

	s.state = StateNegotiating
	limits, neg, err := s.negotiate(ctx, conn)
	if err != nil {
		s.closeConn(conn)
		s.state = StateUninitialized
		log.Warn().Str("component", "session").Err(err).Msg("payload size negotiation failed")
		return err
	}

	s.conn = conn
	s.limits = limits
	s.negotiation = neg
	s.state = StateReady
	log.Info().
		Str("component", "session").
		Int("max_payload_size", limits.MaxPayloadSize).
		Int("max_buffer_size", limits.MaxBufferSize).
		Msg("session ready")
	return nil
}

func (s *Session) negotiate(ctx context.Context, conn tee.Conn) (Limits, Negotiation, error) {
	layout := s.cfg.Layout
	size := layout.RequiredBufferSize(protocol.FunctionGetPayloadSize)

	shm, err := conn.AllocateShared(size)
	if err != nil {
		return Limits{}, Negotiation{}, fmt.Errorf("%w: %w: %w", ErrPayloadNegotiation, ErrSharedMemory, err)
	}
	defer s.release(conn, shm)
	if shm.Size() < size {
		return Limits{}, Negotiation{}, fmt.Errorf("%w: shared memory %d bytes, need %d", ErrPayloadNegotiation, shm.Size(), size)
	}

	req, err := layout.WriteRequestHeader(shm.Buf, protocol.FunctionGetPayloadSize)
	if err != nil {
		return Limits{}, Negotiation{}, fmt.Errorf("%w: %w", ErrPayloadNegotiation, err)
	}

	log.Debug().Str("component", "session").Int("buffer_size", size).Msg("invoking GET_PAYLOAD_SIZE")
	res, err := conn.Invoke(ctx, tee.CommandCommunicate, shm)
	if err != nil {
		return Limits{}, Negotiation{}, fmt.Errorf("%w: %w", ErrTransportInvoke, err)
	}

	peerSize, err := req.PayloadSize()
	if err != nil {
		return Limits{}, Negotiation{}, fmt.Errorf("%w: %w", ErrPayloadNegotiation, err)
	}
	neg := Negotiation{Status: req.Status(), Value: res.Value, PayloadSize: peerSize}
	log.Debug().
		Str("component", "session").
		Stringer("status", neg.Status).
		Uint64("value", neg.Value).
		Uint64("payload_size", neg.PayloadSize).
		Msg("GET_PAYLOAD_SIZE returned")

	if neg.Status != protocol.StatusSuccess {
		statusErr := &protocol.StatusError{Function: protocol.FunctionGetPayloadSize, Status: neg.Status}
		if s.cfg.StatusPolicy == StatusStrict {
			return Limits{}, neg, fmt.Errorf("%w: %w", ErrPayloadNegotiation, statusErr)
		}
		log.Warn().Str("component", "session").Err(statusErr).Msg("ignoring peer status")
	}

	limits, err := s.limitsFor(peerSize)
	if err != nil {
		return Limits{}, neg, err
	}
	return limits, neg, nil
}

func (s *Session) limitsFor(peerSize uint64) (Limits, error) {
	if peerSize <= PayloadSizeHeadroom {
		return Limits{}, fmt.Errorf("%w: peer reported unusable size %d", ErrPayloadNegotiation, peerSize)
	}
	payload := peerSize - PayloadSizeHeadroom
	headers := s.cfg.Layout.HeadersSize()
	if payload > uint64(math.MaxInt32-headers) {
		return Limits{}, fmt.Errorf("%w: peer reported implausible size %d", ErrPayloadNegotiation, peerSize)
	}
	if s.cfg.MaxPayloadSize > 0 && payload > uint64(s.cfg.MaxPayloadSize) {
		return Limits{}, fmt.Errorf("%w: peer size %d above limit %d", ErrPayloadNegotiation, payload, s.cfg.MaxPayloadSize)
	}
	return Limits{
		MaxPayloadSize: int(payload),
		MaxBufferSize:  headers + int(payload),
	}, nil
}

// Close tears the connection down. It never fails: teardown errors are
// logged. Closing a session that is not ready does nothing.
func (s *Session) Close() error {
	if s.state != StateReady {
		return nil
	}
	s.closeConn(s.conn)
	s.conn = nil
	s.limits = Limits{}
	s.state = StateClosed
	log.Debug().Str("component", "session").Msg("session closed")
	return nil
}

// Response is one decoded reply frame.
type Response struct {
	Function protocol.Function
	Status   protocol.Status
	Value    uint64
	Body     []byte
}

// Err returns a *protocol.StatusError for a non-success reply.
func (r Response) Err() error {
	if r.Status == protocol.StatusSuccess {
		return nil
	}
	return &protocol.StatusError{Function: r.Function, Status: r.Status}
}

// Communicate sends one frame carrying payload as the body of fn and returns
// the peer's reply. The body must fit within the negotiated payload size.
func (s *Session) Communicate(ctx context.Context, fn protocol.Function, payload []byte) (Response, error) {
	if s.state != StateReady {
		return Response{}, ErrNotReady
	}
	if len(payload) == 0 {
		return Response{}, ErrEmptyPayload
	}
	if len(payload) > s.limits.MaxPayloadSize {
		return Response{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), s.limits.MaxPayloadSize)
	}

	layout := s.cfg.Layout
	size := layout.BufferSize(len(payload))
	shm, err := s.conn.AllocateShared(size)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrSharedMemory, err)
	}
	defer s.release(s.conn, shm)
	if shm.Size() < size {
		return Response{}, fmt.Errorf("%w: %d bytes, need %d", ErrSharedMemory, shm.Size(), size)
	}

	req, err := layout.WriteRequestHeader(shm.Buf[:size], fn)
	if err != nil {
		return Response{}, err
	}
	copy(req.Body(), payload)

	res, err := s.conn.Invoke(ctx, tee.CommandCommunicate, shm)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrTransportInvoke, err)
	}
	return Response{
		Function: fn,
		Status:   req.Status(),
		Value:    res.Value,
		Body:     bytes.Clone(req.Body()),
	}, nil
}

func (s *Session) release(conn tee.Conn, shm *tee.SharedMemory) {
	if err := conn.ReleaseShared(shm); err != nil {
		log.Warn().Str("component", "session").Err(err).Msg("release shared memory failed")
	}
}

func (s *Session) closeConn(conn tee.Conn) {
	if err := conn.Close(); err != nil {
		log.Warn().Str("component", "session").Err(err).Msg("close connection failed")
	}
}
