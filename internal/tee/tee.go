package tee

import "context"

// CommandCommunicate is the single command id understood by the StandaloneMM
// trusted application. The frame in shared memory selects the function.
const CommandCommunicate uint32 = 0

// SharedMemory is a region registered with the TEE so that both the client
// and the trusted application read and write the same bytes.
type SharedMemory struct {
	ID  int32
	Buf []byte
}

// Size is the registered length of the region.
func (m *SharedMemory) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Buf)
}

// Result carries the out-of-band outputs of one invocation.
type Result struct {
	// Value is the first value-output parameter.
	Value uint64
}

//go:generate mockgen -destination=mocktee/mock_tee.go -package=mocktee github.com/danmuck/stmmctl/internal/tee Dialer,Conn

// Dialer opens connections to one trusted application.
type Dialer interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is an open trusted-application session. Invocations are blocking
// round trips; a Conn is not safe for concurrent use.
type Conn interface {
	AllocateShared(size int) (*SharedMemory, error)
	ReleaseShared(shm *SharedMemory) error
	Invoke(ctx context.Context, cmd uint32, shm *SharedMemory) (Result, error)
	Close() error
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Connect(ctx context.Context) (Conn, error) { return f(ctx) }
