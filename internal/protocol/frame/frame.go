package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/google/uuid"
)

const (
	outerMessageLenOffset = protocol.GUIDSize
)

var (
	ErrBufferTooSmall  = fmt.Errorf("%w: frame: buffer has no room for a body", protocol.ErrParam)
	ErrShortFrame      = fmt.Errorf("%w: frame: buffer shorter than headers", protocol.ErrParam)
	ErrShortBody       = fmt.Errorf("%w: frame: body shorter than expected", protocol.ErrParam)
	ErrWordSize        = fmt.Errorf("%w: frame: word size must be 4 or 8", protocol.ErrParam)
	ErrHeaderGUID      = errors.New("frame: unexpected header guid")
	ErrMessageLen      = errors.New("frame: message_len does not match buffer")
	ErrValueOutOfRange = fmt.Errorf("%w: frame: value does not fit in a word", protocol.ErrParam)
)

var byteOrder = binary.LittleEndian

// Layout fixes the width of UINTN fields. Every other offset derives from it.
//
//	0                16            16+W       16+2W        16+3W
//	┌────────────────┬─────────────┬──────────┬────────────┬──────────┐
//	│  header_guid   │ message_len │ function │ ret_status │ body ... │
//	└────────────────┴─────────────┴──────────┴────────────┴──────────┘
//	 outer header                   inner header
type Layout struct {
	WordSize int
}

// NativeLayout matches the pointer width of the running process.
func NativeLayout() Layout {
	return Layout{WordSize: bits.UintSize / 8}
}

func (l Layout) Validate() error {
	if l.WordSize != 4 && l.WordSize != 8 {
		return fmt.Errorf("%w: got %d", ErrWordSize, l.WordSize)
	}
	return nil
}

// OuterHeaderSize is the packed EFI_MM_COMMUNICATE_HEADER size.
func (l Layout) OuterHeaderSize() int { return protocol.GUIDSize + l.WordSize }

// InnerHeaderSize is the SMM_VARIABLE_COMMUNICATE_HEADER size.
func (l Layout) InnerHeaderSize() int { return 2 * l.WordSize }

// HeadersSize is the offset of the function body.
func (l Layout) HeadersSize() int { return l.OuterHeaderSize() + l.InnerHeaderSize() }

// RequiredBufferSize returns the exact buffer length for functions with a
// statically known body, or 0 for anything else.
func (l Layout) RequiredBufferSize(fn protocol.Function) int {
	switch fn {
	case protocol.FunctionGetPayloadSize:
		return l.HeadersSize() + l.WordSize
	default:
		return 0
	}
}

// BufferSize returns the frame length carrying a body of bodyLen bytes.
func (l Layout) BufferSize(bodyLen int) int { return l.HeadersSize() + bodyLen }

// WriteRequestHeader lays out a request for fn over buf and returns a view of
// it. buf is left untouched when it has no room for a body.
func (l Layout) WriteRequestHeader(buf []byte, fn protocol.Function) (Frame, error) {
	if err := l.Validate(); err != nil {
		return Frame{}, err
	}
	if len(buf) <= l.HeadersSize() {
		return Frame{}, fmt.Errorf("%w: len=%d headers=%d", ErrBufferTooSmall, len(buf), l.HeadersSize())
	}
	if !l.fitsWord(uint64(fn)) {
		return Frame{}, fmt.Errorf("%w: function %d", ErrValueOutOfRange, uint64(fn))
	}

	clear(buf)
	f := Frame{buf: buf, layout: l}
	protocol.EncodeEFIGUID(buf[0:protocol.GUIDSize], protocol.VariableServiceGUID)
	f.putWord(outerMessageLenOffset, uint64(len(buf)-l.OuterHeaderSize()))
	f.putWord(l.functionOffset(), uint64(fn))
	return f, nil
}

// Parse wraps an already populated buffer. The length is checked once here so
// that header accessors on the view never run past buf.
func (l Layout) Parse(buf []byte) (Frame, error) {
	if err := l.Validate(); err != nil {
		return Frame{}, err
	}
	if len(buf) < l.HeadersSize() {
		return Frame{}, fmt.Errorf("%w: len=%d headers=%d", ErrShortFrame, len(buf), l.HeadersSize())
	}
	return Frame{buf: buf, layout: l}, nil
}

// ReadStatus returns the peer-written ret_status of buf.
func (l Layout) ReadStatus(buf []byte) (protocol.Status, error) {
	f, err := l.Parse(buf)
	if err != nil {
		return 0, err
	}
	return f.Status(), nil
}

func (l Layout) fitsWord(v uint64) bool {
	return l.WordSize == 8 || v <= uint64(^uint32(0))
}

func (l Layout) functionOffset() int  { return l.OuterHeaderSize() }
func (l Layout) retStatusOffset() int { return l.OuterHeaderSize() + l.WordSize }

// Frame is a view over one communication buffer. The buffer is the arena; the
// headers and body are fixed index ranges into it.
type Frame struct {
	buf    []byte
	layout Layout
}

func (f Frame) Bytes() []byte   { return f.buf }
func (f Frame) Layout() Layout  { return f.layout }
func (f Frame) Len() int        { return len(f.buf) }
func (f Frame) BodyOffset() int { return f.layout.HeadersSize() }

// Body is the function-specific region following the inner header.
func (f Frame) Body() []byte { return f.buf[f.BodyOffset():] }

func (f Frame) HeaderGUID() uuid.UUID {
	// Parse and WriteRequestHeader guarantee GUIDSize bytes, so decoding cannot fail.
	id, _ := protocol.DecodeEFIGUID(f.buf[0:protocol.GUIDSize])
	return id
}

func (f Frame) MessageLen() uint64 { return f.word(outerMessageLenOffset) }

func (f Frame) Function() protocol.Function {
	return protocol.Function(f.word(f.layout.functionOffset()))
}

func (f Frame) Status() protocol.Status {
	return protocol.StatusFromWord(f.word(f.layout.retStatusOffset()), f.layout.WordSize)
}

// SetStatus writes ret_status. Only the peer side does this.
func (f Frame) SetStatus(s protocol.Status) {
	f.putWord(f.layout.retStatusOffset(), s.Word(f.layout.WordSize))
}

// ValidateRequest checks the outer header of a received request.
func (f Frame) ValidateRequest() error {
	if f.HeaderGUID() != protocol.VariableServiceGUID {
		return fmt.Errorf("%w: %s", ErrHeaderGUID, f.HeaderGUID())
	}
	if want := uint64(len(f.buf) - f.layout.OuterHeaderSize()); f.MessageLen() != want {
		return fmt.Errorf("%w: message_len=%d want=%d", ErrMessageLen, f.MessageLen(), want)
	}
	return nil
}

// PayloadSize decodes the GET_PAYLOAD_SIZE reply body.
func (f Frame) PayloadSize() (uint64, error) {
	body := f.Body()
	if len(body) < f.layout.WordSize {
		return 0, fmt.Errorf("%w: len=%d want=%d", ErrShortBody, len(body), f.layout.WordSize)
	}
	return f.word(f.BodyOffset()), nil
}

// SetPayloadSize encodes the GET_PAYLOAD_SIZE reply body.
func (f Frame) SetPayloadSize(size uint64) error {
	body := f.Body()
	if len(body) < f.layout.WordSize {
		return fmt.Errorf("%w: len=%d want=%d", ErrShortBody, len(body), f.layout.WordSize)
	}
	if !f.layout.fitsWord(size) {
		return fmt.Errorf("%w: %d", ErrValueOutOfRange, size)
	}
	f.putWord(f.BodyOffset(), size)
	return nil
}

func (f Frame) word(off int) uint64 {
	if f.layout.WordSize == 4 {
		return uint64(byteOrder.Uint32(f.buf[off : off+4]))
	}
	return byteOrder.Uint64(f.buf[off : off+8])
}

func (f Frame) putWord(off int, v uint64) {
	if f.layout.WordSize == 4 {
		byteOrder.PutUint32(f.buf[off:off+4], uint32(v))
		return
	}
	byteOrder.PutUint64(f.buf[off:off+8], v)
}
