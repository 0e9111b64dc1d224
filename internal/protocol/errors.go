package protocol

import "errors"

// Error kinds. Concrete errors wrap one of these and are matched with errors.Is.
var (
	// ErrParam marks a caller bug such as an undersized buffer. Never retried.
	ErrParam = errors.New("protocol: invalid parameter")
	// ErrTransport marks a connect, invoke or shared-memory failure at the
	// transport boundary. May be transient; retry is the caller's decision.
	ErrTransport = errors.New("protocol: transport failure")
	// ErrNegotiation marks a negotiation that completed on the transport but
	// produced data the session cannot use.
	ErrNegotiation = errors.New("protocol: negotiation failure")
)
