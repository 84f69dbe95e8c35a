package jet

import (
	"errors"
	"testing"
)

func buildMemoHeader(flag uint32, length int, pointer uint32) []byte {
	hdr := make([]byte, memoHeaderLength)
	word := flag | (uint32(length) & memoLengthMask)
	hdr[0], hdr[1], hdr[2], hdr[3] = byte(word), byte(word>>8), byte(word>>16), byte(word>>24)
	hdr[4], hdr[5], hdr[6], hdr[7] = byte(pointer), byte(pointer>>8), byte(pointer>>16), byte(pointer>>24)
	return hdr
}

func TestDecodeMemoInline(t *testing.T) {
	payload := []byte("inline memo text")
	data := append(buildMemoHeader(memoFlagInline, len(payload), 0), payload...)

	got, err := decodeMemo(data, Version3, nil, pageSizeJet3)
	if err != nil {
		t.Fatalf("decodeMemo: %v", err)
	}
	if got != string(payload) {
		t.Fatalf("decodeMemo = %q, want %q", got, string(payload))
	}
}

func TestDecodeMemoUnsupportedType(t *testing.T) {
	data := buildMemoHeader(0, 0, 0) // neither inline nor LVAL1 flag set
	_, err := decodeMemo(data, Version3, nil, pageSizeJet3)
	if !errors.Is(err, ErrUnsupportedMemoType) {
		t.Fatalf("decodeMemo error = %v, want ErrUnsupportedMemoType", err)
	}
}

func TestDecodeMemoLVAL1Overflow(t *testing.T) {
	pageSize := pageSizeJet4
	overflowPage := make([]byte, pageSize)
	overflowPage[0], overflowPage[1] = pageMagicData[0], pageMagicData[1]

	payload := []byte("overflow memo body")
	off := pageSize - len(payload)
	copy(overflowPage[off:], payload)

	overflowPage[8], overflowPage[9] = 1, 0 // one slot
	overflowPage[10] = byte(off)
	overflowPage[11] = byte(off >> 8)

	allPages := map[int]page{
		7 * pageSize: {offset: 7 * pageSize, data: overflowPage, kind: PageKindData},
	}

	ptr := uint32(7)<<8 | 0 // page 7, slot 0
	data := buildMemoHeader(memoFlagLVAL1, len(payload), ptr)

	got, err := decodeMemo(data, Version3, allPages, pageSize)
	if err != nil {
		t.Fatalf("decodeMemo: %v", err)
	}
	if got != string(payload) {
		t.Fatalf("decodeMemo = %q, want %q", got, string(payload))
	}
}
