package observability

import (
	"context"
	"time"

	"github.com/danmuck/stmmctl/internal/tee"
)

// InstrumentDialer records every connect, shared-memory and invoke call made
// through d and the connections it returns.
func InstrumentDialer(transport string, d tee.Dialer) tee.Dialer {
	return &dialer{transport: transport, next: d}
}

type dialer struct {
	transport string
	next      tee.Dialer
}

func (d *dialer) Connect(ctx context.Context) (tee.Conn, error) {
	start := time.Now()
	c, err := d.next.Connect(ctx)
	RecordTEECall(d.transport, "connect", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &conn{transport: d.transport, next: c}, nil
}

type conn struct {
	transport string
	next      tee.Conn
}

func (c *conn) AllocateShared(size int) (*tee.SharedMemory, error) {
	start := time.Now()
	shm, err := c.next.AllocateShared(size)
	RecordTEECall(c.transport, "allocate_shared", time.Since(start), err)
	return shm, err
}

func (c *conn) ReleaseShared(shm *tee.SharedMemory) error {
	start := time.Now()
	err := c.next.ReleaseShared(shm)
	RecordTEECall(c.transport, "release_shared", time.Since(start), err)
	return err
}

func (c *conn) Invoke(ctx context.Context, cmd uint32, shm *tee.SharedMemory) (tee.Result, error) {
	start := time.Now()
	res, err := c.next.Invoke(ctx, cmd, shm)
	RecordTEECall(c.transport, "invoke", time.Since(start), err)
	return res, err
}

func (c *conn) Close() error {
	start := time.Now()
	err := c.next.Close()
	RecordTEECall(c.transport, "close", time.Since(start), err)
	return err
}
