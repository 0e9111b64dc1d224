// Package protocol owns the StandaloneMM variable-service wire vocabulary.
//
// Ownership boundary:
// - error kinds shared by codec and session layers
// - function catalog
// - EFI status and GUID encodings
//
// Subpackages:
// - frame: communication buffer sizing, header layout, status/payload decode
// - session: secure-channel lifecycle and payload-size negotiation
package protocol
