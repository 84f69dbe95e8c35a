package jet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedMemoType is returned by decodeMemo when a memo's
// header carries neither the inline nor the LVAL-type-1 flag. With
// WithStrictMemo in effect the record decoder skips the row on it;
// otherwise it falls back to treating the raw bytes as text.
var ErrUnsupportedMemoType = errors.New("jet: unsupported memo storage type (LVAL type 2)")

// decodeMemo implements §4.8: a memo (LVAL) field is a 12-byte header
// followed either by inline text or by a pointer to an overflow page.
//
// Header layout (little-endian):
//
//	[0:4]  lengthWord uint32 — top two bits are the storage-type flags
//	       (memoFlagInline / memoFlagLVAL1), the low 30 bits
//	       (memoLengthMask) are the payload length in bytes.
//	[4:8]  pointer uint32 — present only for LVAL type 1: a packed
//	       page/slot pointer in the same pageNum<<8|slot encoding used
//	       by the record offset table's overflow flag (§4.6).
//	[8:12] reserved
func decodeMemo(data []byte, version Version, allPages map[int]page, pageSize int) (string, error) {
	if len(data) < memoHeaderLength {
		return "", fmt.Errorf("memo header truncated (%d bytes)", len(data))
	}

	lengthWord := binary.LittleEndian.Uint32(data[0:4])
	length := int(lengthWord & memoLengthMask)

	switch {
	case lengthWord&memoFlagInline != 0:
		payload := data[memoHeaderLength:]
		if length > len(payload) {
			return "", fmt.Errorf("inline memo length %d exceeds available %d bytes", length, len(payload))
		}
		return decodeText(payload[:length], version)

	case lengthWord&memoFlagLVAL1 != 0:
		payload, ok := resolveOverflow(data, 4, allPages, pageSize)
		if !ok {
			return "", fmt.Errorf("memo overflow pointer at data[4:8] could not be resolved")
		}
		if length > len(payload) {
			length = len(payload)
		}
		return decodeText(payload[:length], version)

	default:
		return "", ErrUnsupportedMemoType
	}
}
