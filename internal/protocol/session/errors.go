package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/stmmctl/internal/protocol"
)

var (
	ErrTransportInit      = fmt.Errorf("%w: connect", protocol.ErrTransport)
	ErrTransportInvoke    = fmt.Errorf("%w: invoke", protocol.ErrTransport)
	ErrSharedMemory       = fmt.Errorf("%w: shared memory", protocol.ErrTransport)
	ErrPayloadNegotiation = fmt.Errorf("%w: payload size", protocol.ErrNegotiation)
	ErrPayloadTooLarge    = fmt.Errorf("%w: payload exceeds negotiated size", protocol.ErrParam)
	ErrEmptyPayload       = fmt.Errorf("%w: empty payload", protocol.ErrParam)
	ErrNotReady           = errors.New("session: not ready")
)
