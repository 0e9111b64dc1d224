package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is an EFI_STATUS normalized to 64 bits: the error bit is always bit
// 63 regardless of the peer's native word size.
type Status uint64

const statusErrorBit Status = 1 << 63

const (
	StatusSuccess           Status = 0
	StatusLoadError         Status = statusErrorBit | 1
	StatusInvalidParameter  Status = statusErrorBit | 2
	StatusUnsupported       Status = statusErrorBit | 3
	StatusBadBufferSize     Status = statusErrorBit | 4
	StatusBufferTooSmall    Status = statusErrorBit | 5
	StatusNotReady          Status = statusErrorBit | 6
	StatusDeviceError       Status = statusErrorBit | 7
	StatusWriteProtected    Status = statusErrorBit | 8
	StatusOutOfResources    Status = statusErrorBit | 9
	StatusNotFound          Status = statusErrorBit | 14
	StatusAccessDenied      Status = statusErrorBit | 15
	StatusSecurityViolation Status = statusErrorBit | 26
)

var statusNames = map[Status]string{
	StatusSuccess:           "EFI_SUCCESS",
	StatusLoadError:         "EFI_LOAD_ERROR",
	StatusInvalidParameter:  "EFI_INVALID_PARAMETER",
	StatusUnsupported:       "EFI_UNSUPPORTED",
	StatusBadBufferSize:     "EFI_BAD_BUFFER_SIZE",
	StatusBufferTooSmall:    "EFI_BUFFER_TOO_SMALL",
	StatusNotReady:          "EFI_NOT_READY",
	StatusDeviceError:       "EFI_DEVICE_ERROR",
	StatusWriteProtected:    "EFI_WRITE_PROTECTED",
	StatusOutOfResources:    "EFI_OUT_OF_RESOURCES",
	StatusNotFound:          "EFI_NOT_FOUND",
	StatusAccessDenied:      "EFI_ACCESS_DENIED",
	StatusSecurityViolation: "EFI_SECURITY_VIOLATION",
}

// StatusFromWord widens a raw status word of wordSize bytes.
func StatusFromWord(raw uint64, wordSize int) Status {
	if wordSize >= 8 {
		return Status(raw)
	}
	bits := uint(wordSize * 8)
	high := uint64(1) << (bits - 1)
	if raw&high == 0 {
		return Status(raw)
	}
	return statusErrorBit | Status(raw&^high)
}

// Word narrows s back to a raw status word of wordSize bytes.
func (s Status) Word(wordSize int) uint64 {
	if wordSize >= 8 || s&statusErrorBit == 0 {
		return uint64(s)
	}
	bits := uint(wordSize * 8)
	return uint64(s&^statusErrorBit) | uint64(1)<<(bits-1)
}

// IsError reports whether the peer flagged a failure.
func (s Status) IsError() bool { return s&statusErrorBit != 0 }

// Code is the status value without the error bit.
func (s Status) Code() uint64 { return uint64(s &^ statusErrorBit) }

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	if s.IsError() {
		return fmt.Sprintf("EFI_ERROR(%d)", s.Code())
	}
	return fmt.Sprintf("EFI_WARN(%d)", s.Code())
}

// ParseStatus accepts the spellings produced by String (EFI_ACCESS_DENIED,
// EFI_ERROR(15), EFI_WARN(4)) or a raw 64-bit value in decimal or 0x hex.
func ParseStatus(raw string) (Status, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	for prefix, bit := range map[string]Status{"EFI_ERROR(": statusErrorBit, "EFI_WARN(": 0} {
		if inner, ok := strings.CutPrefix(name, prefix); ok {
			code, err := strconv.ParseUint(strings.TrimSuffix(inner, ")"), 10, 63)
			if err != nil || !strings.HasSuffix(inner, ")") {
				return 0, fmt.Errorf("%w: invalid status %q", ErrParam, raw)
			}
			return bit | Status(code), nil
		}
	}
	v, err := strconv.ParseUint(strings.ToLower(name), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid status %q", ErrParam, raw)
	}
	return Status(v), nil
}

// StatusError reports a non-success status returned in-band by the peer.
type StatusError struct {
	Function Function
	Status   Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("protocol: %s returned %s (0x%x)", e.Function, e.Status, uint64(e.Status))
}
