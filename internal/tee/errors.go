package tee

import (
	"errors"
	"fmt"
)

var (
	ErrClosed      = errors.New("tee: connection closed")
	ErrUnsupported = errors.New("tee: transport not supported on this platform")
	ErrInvalidSize = errors.New("tee: invalid shared memory size")
	ErrUnknownShm  = errors.New("tee: shared memory not owned by this connection")
)

// Code is a TEE client API result code (TEEC_Result).
type Code uint32

const (
	CodeSuccess        Code = 0x00000000
	CodeGeneric        Code = 0xFFFF0000
	CodeAccessDenied   Code = 0xFFFF0001
	CodeCancel         Code = 0xFFFF0002
	CodeAccessConflict Code = 0xFFFF0003
	CodeExcessData     Code = 0xFFFF0004
	CodeBadFormat      Code = 0xFFFF0005
	CodeBadParameters  Code = 0xFFFF0006
	CodeBadState       Code = 0xFFFF0007
	CodeItemNotFound   Code = 0xFFFF0008
	CodeNotImplemented Code = 0xFFFF0009
	CodeNotSupported   Code = 0xFFFF000A
	CodeNoData         Code = 0xFFFF000B
	CodeOutOfMemory    Code = 0xFFFF000C
	CodeBusy           Code = 0xFFFF000D
	CodeCommunication  Code = 0xFFFF000E
	CodeSecurity       Code = 0xFFFF000F
	CodeShortBuffer    Code = 0xFFFF0010
	CodeTargetDead     Code = 0xFFFF3024
)

var codeNames = map[Code]string{
	CodeSuccess:        "TEEC_SUCCESS",
	CodeGeneric:        "TEEC_ERROR_GENERIC",
	CodeAccessDenied:   "TEEC_ERROR_ACCESS_DENIED",
	CodeCancel:         "TEEC_ERROR_CANCEL",
	CodeAccessConflict: "TEEC_ERROR_ACCESS_CONFLICT",
	CodeExcessData:     "TEEC_ERROR_EXCESS_DATA",
	CodeBadFormat:      "TEEC_ERROR_BAD_FORMAT",
	CodeBadParameters:  "TEEC_ERROR_BAD_PARAMETERS",
	CodeBadState:       "TEEC_ERROR_BAD_STATE",
	CodeItemNotFound:   "TEEC_ERROR_ITEM_NOT_FOUND",
	CodeNotImplemented: "TEEC_ERROR_NOT_IMPLEMENTED",
	CodeNotSupported:   "TEEC_ERROR_NOT_SUPPORTED",
	CodeNoData:         "TEEC_ERROR_NO_DATA",
	CodeOutOfMemory:    "TEEC_ERROR_OUT_OF_MEMORY",
	CodeBusy:           "TEEC_ERROR_BUSY",
	CodeCommunication:  "TEEC_ERROR_COMMUNICATION",
	CodeSecurity:       "TEEC_ERROR_SECURITY",
	CodeShortBuffer:    "TEEC_ERROR_SHORT_BUFFER",
	CodeTargetDead:     "TEE_ERROR_TARGET_DEAD",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TEEC_RESULT(0x%08x)", uint32(c))
}

// Origin reports which layer produced a result code.
type Origin uint32

const (
	OriginAPI        Origin = 1
	OriginComms      Origin = 2
	OriginTEE        Origin = 3
	OriginTrustedApp Origin = 4
)

func (o Origin) String() string {
	switch o {
	case OriginAPI:
		return "api"
	case OriginComms:
		return "comms"
	case OriginTEE:
		return "tee"
	case OriginTrustedApp:
		return "trusted_app"
	default:
		return fmt.Sprintf("origin(%d)", uint32(o))
	}
}

// Error is a failed TEE client operation.
type Error struct {
	Op     string
	Code   Code
	Origin Origin
}

func (e *Error) Error() string {
	return fmt.Sprintf("tee: %s failed: %s origin=%s", e.Op, e.Code, e.Origin)
}

// ResultError returns nil for CodeSuccess and an *Error otherwise.
func ResultError(op string, code uint32, origin uint32) error {
	if Code(code) == CodeSuccess {
		return nil
	}
	return &Error{Op: op, Code: Code(code), Origin: Origin(origin)}
}
