// Package tee defines the transport contract to a trusted application.
//
// Ownership boundary:
// - connect / invoke / close against one trusted application session
// - registration of shared memory visible to both sides
// - TEE client result codes and origins
//
// Implementations:
// - optee: Linux OP-TEE driver (/dev/tee*)
// - loopback: in-process peer for tests and dry runs
package tee
