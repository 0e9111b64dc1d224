package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// GUIDSize is the encoded length of an EFI_GUID.
const GUIDSize = 16

// VariableServiceGUID identifies the StandaloneMM variable service. The same
// value is the OP-TEE UUID of the trusted application hosting it.
var VariableServiceGUID = uuid.MustParse("ed32d533-99e6-4209-9cc0-2d72cdd998a7")

// EncodeEFIGUID writes id in EFI_GUID layout: the first three groups
// little-endian, the trailing eight bytes as-is.
func EncodeEFIGUID(dst []byte, id uuid.UUID) {
	_ = dst[GUIDSize-1]
	binary.LittleEndian.PutUint32(dst[0:4], binary.BigEndian.Uint32(id[0:4]))
	binary.LittleEndian.PutUint16(dst[4:6], binary.BigEndian.Uint16(id[4:6]))
	binary.LittleEndian.PutUint16(dst[6:8], binary.BigEndian.Uint16(id[6:8]))
	copy(dst[8:16], id[8:16])
}

// DecodeEFIGUID is the inverse of EncodeEFIGUID.
func DecodeEFIGUID(src []byte) (uuid.UUID, error) {
	var id uuid.UUID
	if len(src) < GUIDSize {
		return id, fmt.Errorf("%w: guid needs %d bytes, have %d", ErrParam, GUIDSize, len(src))
	}
	binary.BigEndian.PutUint32(id[0:4], binary.LittleEndian.Uint32(src[0:4]))
	binary.BigEndian.PutUint16(id[4:6], binary.LittleEndian.Uint16(src[4:6]))
	binary.BigEndian.PutUint16(id[6:8], binary.LittleEndian.Uint16(src[6:8]))
	copy(id[8:16], src[8:16])
	return id, nil
}
