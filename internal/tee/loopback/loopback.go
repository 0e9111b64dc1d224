// Package loopback is an in-process stand-in for the StandaloneMM trusted
// application. It answers GET_PAYLOAD_SIZE from a configured value, routes
// other functions to an optional handler and can inject transport faults.
package loopback

import (
	"context"
	"fmt"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/protocol/frame"
	"github.com/danmuck/stmmctl/internal/tee"
	"github.com/rs/zerolog/log"
)

// DefaultPayloadSize mirrors the StandaloneMM default of one page plus the
// headroom the peer keeps for itself.
const DefaultPayloadSize = 4096 + 2

// Handler serves functions other than GET_PAYLOAD_SIZE.
type Handler func(req frame.Frame) protocol.Status

type Config struct {
	Layout      frame.Layout
	PayloadSize uint64
	Status      protocol.Status
	Value       uint64
	Handler     Handler

	ConnectErr error
	AllocErr   error
	InvokeErr  error
}

func DefaultConfig() Config {
	return Config{
		Layout:      frame.NativeLayout(),
		PayloadSize: DefaultPayloadSize,
	}
}

// Stats counts calls made against the peer.
type Stats struct {
	Connects    int
	Closes      int
	Allocations int
	Releases    int
	Invokes     int
	Functions   []protocol.Function
}

// OpenConns is the number of connections not yet closed.
func (s Stats) OpenConns() int { return s.Connects - s.Closes }

// LiveShared is the number of shared regions not yet released.
func (s Stats) LiveShared() int { return s.Allocations - s.Releases }

// Peer implements tee.Dialer.
type Peer struct {
	cfg    Config
	stats  Stats
	nextID int32
}

func New(cfg Config) *Peer {
	return &Peer{cfg: cfg}
}

// Configure replaces the peer configuration. Counters are kept.
func (p *Peer) Configure(cfg Config) { p.cfg = cfg }

func (p *Peer) Config() Config { return p.cfg }

func (p *Peer) Stats() Stats {
	out := p.stats
	out.Functions = append([]protocol.Function(nil), p.stats.Functions...)
	return out
}

func (p *Peer) Connect(ctx context.Context) (tee.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.cfg.ConnectErr != nil {
		return nil, p.cfg.ConnectErr
	}
	p.stats.Connects++
	log.Debug().Str("component", "loopback").Int("connects", p.stats.Connects).Msg("session opened")
	return &conn{peer: p, shm: make(map[int32]*tee.SharedMemory)}, nil
}

type conn struct {
	peer   *Peer
	shm    map[int32]*tee.SharedMemory
	closed bool
}

func (c *conn) AllocateShared(size int) (*tee.SharedMemory, error) {
	if c.closed {
		return nil, tee.ErrClosed
	}
	if c.peer.cfg.AllocErr != nil {
		return nil, c.peer.cfg.AllocErr
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", tee.ErrInvalidSize, size)
	}
	c.peer.nextID++
	m := &tee.SharedMemory{ID: c.peer.nextID, Buf: make([]byte, size)}
	c.shm[m.ID] = m
	c.peer.stats.Allocations++
	return m, nil
}

func (c *conn) ReleaseShared(shm *tee.SharedMemory) error {
	if shm == nil || c.shm[shm.ID] != shm {
		return tee.ErrUnknownShm
	}
	delete(c.shm, shm.ID)
	c.peer.stats.Releases++
	return nil
}

func (c *conn) Invoke(ctx context.Context, cmd uint32, shm *tee.SharedMemory) (tee.Result, error) {
	if c.closed {
		return tee.Result{}, tee.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return tee.Result{}, err
	}
	if shm == nil || c.shm[shm.ID] != shm {
		return tee.Result{}, tee.ErrUnknownShm
	}
	c.peer.stats.Invokes++
	if c.peer.cfg.InvokeErr != nil {
		return tee.Result{}, c.peer.cfg.InvokeErr
	}
	if cmd != tee.CommandCommunicate {
		return tee.Result{}, &tee.Error{Op: "invoke", Code: tee.CodeBadParameters, Origin: tee.OriginTrustedApp}
	}

	req, err := c.peer.cfg.Layout.Parse(shm.Buf)
	if err != nil {
		return tee.Result{}, &tee.Error{Op: "invoke", Code: tee.CodeBadParameters, Origin: tee.OriginTrustedApp}
	}
	c.peer.stats.Functions = append(c.peer.stats.Functions, req.Function())
	req.SetStatus(c.serve(req))
	return tee.Result{Value: c.peer.cfg.Value}, nil
}

func (c *conn) serve(req frame.Frame) protocol.Status {
	if err := req.ValidateRequest(); err != nil {
		log.Debug().Str("component", "loopback").Err(err).Msg("rejecting malformed frame")
		return protocol.StatusInvalidParameter
	}
	switch fn := req.Function(); fn {
	case protocol.FunctionGetPayloadSize:
		if err := req.SetPayloadSize(c.peer.cfg.PayloadSize); err != nil {
			return protocol.StatusBufferTooSmall
		}
		return c.peer.cfg.Status
	default:
		if c.peer.cfg.Handler != nil {
			return c.peer.cfg.Handler(req)
		}
		return protocol.StatusUnsupported
	}
}

func (c *conn) Close() error {
	if c.closed {
		return tee.ErrClosed
	}
	c.closed = true
	c.peer.stats.Closes++
	return nil
}
