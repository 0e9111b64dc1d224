// Package session owns the one secure-channel connection to the StandaloneMM
// variable service.
//
// Ownership boundary:
// - connect / negotiate / close lifecycle
// - payload-size negotiation and cached limits
// - single-frame request helper built on the negotiated limits
// - caller-side retry primitives (the session itself never retries)
//
// A Session performs no internal locking. Callers sharing one across
// goroutines must serialize Open, Close and Communicate themselves.
package session
