package jet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Velocidex/ordereddict"
	"go.uber.org/zap"
)

// dataPageHeaderSize is the size, in bytes, of a data page's header:
// magic(2) + reserved(2) + pageOwner(4) + slotCount(2) (§4.5).
const dataPageHeaderSize = 10

// errSkipRow is an internal sentinel: it signals that the current
// record could not be decoded but the table scan should continue.
// decodeRecord logs the reason and returns it; its caller then skips
// the row instead of aborting the scan.
var errSkipRow = errors.New("jet: row skipped")

// dataPageHeader is a data page's record-offset slot table (§4.5).
type dataPageHeader struct {
	pageOwner int
	offsets   []uint16
}

func parseDataPageHeader(data []byte) (dataPageHeader, error) {
	if len(data) < dataPageHeaderSize {
		return dataPageHeader{}, fmt.Errorf("data page header truncated")
	}
	pageOwner := int(binary.LittleEndian.Uint32(data[4:8]))
	slotCount := int(binary.LittleEndian.Uint16(data[8:10]))

	need := dataPageHeaderSize + slotCount*2
	if len(data) < need {
		return dataPageHeader{}, fmt.Errorf("data page slot table truncated")
	}

	offsets := make([]uint16, slotCount)
	for i := 0; i < slotCount; i++ {
		offsets[i] = binary.LittleEndian.Uint16(data[dataPageHeaderSize+i*2:])
	}
	return dataPageHeader{pageOwner: pageOwner, offsets: offsets}, nil
}

// recordSlotKind classifies one entry of a data page's offset table.
type recordSlotKind int

const (
	slotLive recordSlotKind = iota
	slotDeleted
	slotOverflow
)

// recordSlot is one carved entry from a data page (§4.5).
type recordSlot struct {
	kind recordSlotKind
	// data holds the carved record bytes for slotLive, or the 4-byte
	// pointer location's containing page data for slotOverflow (ptrPos
	// indexes into it).
	data   []byte
	ptrPos int
}

// carveRecordSlots walks a data page's offset table applying the
// descending-boundary rule of §4.5: each live record spans
// [recOffset, lastOffset), where lastOffset starts at the page length
// and is updated to the current slot's masked offset after every
// slot, deleted or not, so that boundaries stay contiguous.
func carveRecordSlots(hdr dataPageHeader, pageData []byte) []recordSlot {
	slots := make([]recordSlot, 0, len(hdr.offsets))
	lastOffset := len(pageData)

	for _, raw := range hdr.offsets {
		recOffset := int(raw & recordOffsetMask)

		switch {
		case raw&recordOffsetDeletedFlag != 0:
			slots = append(slots, recordSlot{kind: slotDeleted})
		case raw&recordOffsetOverflowFlag != 0:
			slots = append(slots, recordSlot{kind: slotOverflow, data: pageData, ptrPos: recOffset})
		default:
			end := lastOffset
			start := recOffset
			if start > end || end > len(pageData) {
				slots = append(slots, recordSlot{kind: slotDeleted})
			} else {
				slots = append(slots, recordSlot{kind: slotLive, data: pageData[start:end]})
			}
		}
		lastOffset = recOffset
	}
	return slots
}

// resolveOverflow implements §4.6: decode the packed pointer at
// pageData[ptrPos:ptrPos+4], load the target data page, and carve out
// the byte range its slot occupies.
func resolveOverflow(pageData []byte, ptrPos int, allPages map[int]page, pageSize int) ([]byte, bool) {
	if ptrPos < 0 || ptrPos+4 > len(pageData) {
		return nil, false
	}
	ptr := binary.LittleEndian.Uint32(pageData[ptrPos : ptrPos+4])
	targetPageNum := int(ptr >> 8)
	slot := int(ptr & 0xFF)

	target, ok := allPages[targetPageNum*pageSize]
	if !ok || target.kind != PageKindData {
		return nil, false
	}

	hdr, err := parseDataPageHeader(target.data)
	if err != nil || slot >= len(hdr.offsets) {
		return nil, false
	}

	raw := hdr.offsets[slot]
	if raw&recordOffsetDeletedFlag != 0 {
		return nil, false
	}
	start := int(raw & recordOffsetMask)

	end := len(target.data)
	if slot > 0 {
		end = int(hdr.offsets[slot-1] & recordOffsetMask)
	}
	if start > end || end > len(target.data) {
		return nil, false
	}
	return target.data[start:end], true
}

// decodeRecord implements §4.7: null bitmap, fixed-length pass,
// variable-length metadata recovery, and variable-length pass. A
// non-nil, non-errSkipRow error is a structural (tier-2) failure that
// should abort the whole ParseTable call; errSkipRow means "log and
// move on to the next record" (tier-3). Tier-3 warnings are written
// through log, the caller's configured logger, so WithLogger reaches
// per-row diagnostics and not just the per-page ones in catalog.go.
func decodeRecord(def *TableDef, version Version, raw []byte, allPages map[int]page, pageSize int, strictMemo bool, log *zap.Logger) (*ordereddict.Dict, error) {
	nullBytes := (def.ColumnCount + 7) / 8
	if len(raw) < nullBytes {
		log.Sugar().Warnf("jet: table %q: record shorter than its null bitmap, skipping", def.Name)
		return nil, errSkipRow
	}

	bitmap := raw[len(raw)-nullBytes:]
	isNull := func(columnID int) bool {
		byteIdx := columnID / 8
		bitIdx := uint(columnID % 8)
		if byteIdx >= len(bitmap) {
			return true
		}
		return bitmap[byteIdx]&(1<<bitIdx) == 0
	}

	prefixLen := 2
	if version == Version3 {
		prefixLen = 1
	}
	if len(raw) < prefixLen {
		log.Sugar().Warnf("jet: table %q: record shorter than its header prefix, skipping", def.Name)
		return nil, errSkipRow
	}
	body := raw[prefixLen:]

	row := ordereddict.NewDict()

	for _, col := range def.Columns {
		if !col.IsFixedLength() {
			continue
		}
		if col.ColumnID >= nullBytes*8 {
			return nil, fmt.Errorf("%w: table %q: column %q id %d exceeds null bitmap width %d",
				ErrTableHeaderCorrupt, def.Name, col.Name, col.ColumnID, nullBytes*8)
		}
		if isNull(col.ColumnID) {
			row.Set(col.Name, nil)
			continue
		}
		if col.TypeCode == colTypeBoolean {
			row.Set(col.Name, true)
			continue
		}
		end := col.FixedOffset + col.FixedLength
		if end > len(body) {
			log.Sugar().Warnf("jet: table %q: column %q fixed value out of range, skipping row", def.Name, col.Name)
			return nil, errSkipRow
		}
		val, err := decodeValue(col.TypeCode, body[col.FixedOffset:end], version)
		if err != nil {
			log.Sugar().Warnf("jet: table %q: column %q: %v", def.Name, col.Name, err)
			row.Set(col.Name, nil)
			continue
		}
		row.Set(col.Name, val)
	}

	varFields, jumpSet, err := parseVariableMetadata(raw, body, nullBytes, version, def.VariableColumns)
	if err != nil {
		log.Sugar().Warnf("jet: table %q: %v, dropping row", def.Name, err)
		return nil, errSkipRow
	}

	// trueOffsets biases the raw offsets table by the Jet-3 jump table
	// (§4.7 step 5, §9 "Jet-3 jump-table semantics"): jumpSet[i] means
	// "from field i's end boundary onward, add 0x100". That boundary is
	// offsets[i+1], shared between field i's end and field i+1's start,
	// so the bias has to be tracked per offsets-array slot rather than
	// recomputed independently inside each field's own iteration —
	// otherwise the same stored offset would decode to two different
	// byte positions depending on which field read it.
	trueOffsets := make([]int, len(varFields.offsets))
	bias := 0
	for j := range varFields.offsets {
		if version == Version3 && j > 0 && jumpSet[j-1] {
			bias += 0x100
		}
		trueOffsets[j] = int(varFields.offsets[j]) + bias
	}

	for i, col := range def.variableOrder {
		if isNull(col.ColumnID) {
			row.Set(col.Name, nil)
			continue
		}
		if i+1 >= len(trueOffsets) {
			row.Set(col.Name, nil)
			continue
		}
		start := trueOffsets[i]
		end := trueOffsets[i+1]

		if version != Version3 {
			if start > len(body) {
				start &= 0xFF
			}
			if end > len(body) {
				end &= 0xFF
			}
		}
		if start < 0 || end < start || end > len(body) {
			log.Sugar().Warnf("jet: table %q: column %q variable range out of bounds, skipping column", def.Name, col.Name)
			row.Set(col.Name, nil)
			continue
		}
		if start == end {
			row.Set(col.Name, "")
			continue
		}

		slice := body[start:end]
		if col.TypeCode == colTypeMemo {
			val, merr := decodeMemo(slice, version, allPages, pageSize)
			if merr != nil {
				if strictMemo && errors.Is(merr, ErrUnsupportedMemoType) {
					log.Sugar().Warnf("jet: table %q: column %q: %v, skipping row", def.Name, col.Name, merr)
					return nil, errSkipRow
				}
				log.Sugar().Warnf("jet: table %q: column %q: memo decode failed: %v, using raw bytes as text", def.Name, col.Name, merr)
				row.Set(col.Name, string(slice))
				continue
			}
			row.Set(col.Name, val)
			continue
		}

		val, verr := decodeValue(col.TypeCode, slice, version)
		if verr != nil {
			log.Sugar().Warnf("jet: table %q: column %q: %v", def.Name, col.Name, verr)
			row.Set(col.Name, nil)
			continue
		}
		row.Set(col.Name, val)
	}

	return row, nil
}

// variableMetadata is the parsed trailer described by §4.7 step 4:
// a count of variable fields and their offsets-into-body table.
type variableMetadata struct {
	count   int
	offsets []uint16
}

// varMetaCountSize and varMetaJumpCountSize describe the layout of the
// variable-length metadata trailer this package reads and writes (see
// parseVariableMetadata's doc comment).
const (
	varMetaCountSize     = 2
	varMetaJumpCountSize = 1
)

// parseVariableMetadata implements §4.7 step 4.
//
// Trailer layout, measured backward from the end of raw (after the
// null bitmap, and after one zero padding byte on Jet 4+):
//
//	[jump table: Jet 3 only, jumpCount(1) + jumpCount * index(1)]
//	[count: uint16 — number of variable columns, varMetaCountSize]
//	[offsets: (count+1) * uint16, into body]
//
// If the decoded count does not match wantCount, the reversed record
// is searched (within the first 10 bytes of the trailer) for a 2-byte
// LE encoding of wantCount and re-parsed from there, per the base
// spec's recovery heuristic; failing that, the row is dropped.
func parseVariableMetadata(raw, body []byte, nullBytes int, version Version, wantCount int) (variableMetadata, map[int]bool, error) {
	end := len(raw) - nullBytes
	if version != Version3 && end >= 1 && raw[end-1] == 0 {
		end--
	}

	meta, jumpSet, ok := tryParseVariableMetadataAt(raw, end, version, wantCount)
	if ok {
		return meta, jumpSet, nil
	}

	for back := 1; back <= 10 && end-back >= varMetaCountSize; back++ {
		probe := end - back
		if probe < varMetaCountSize {
			break
		}
		if int(binary.LittleEndian.Uint16(raw[probe-varMetaCountSize:probe])) == wantCount {
			if meta, jumpSet, ok := tryParseVariableMetadataAt(raw, probe, version, wantCount); ok {
				return meta, jumpSet, nil
			}
		}
	}

	return variableMetadata{}, nil, fmt.Errorf("variable-length metadata count mismatch (want %d)", wantCount)
}

func tryParseVariableMetadataAt(raw []byte, end int, version Version, wantCount int) (variableMetadata, map[int]bool, bool) {
	jumpSet := map[int]bool{}

	cursor := end
	if version == Version3 {
		if cursor < varMetaJumpCountSize {
			return variableMetadata{}, nil, false
		}
		cursor -= varMetaJumpCountSize
		jumpCount := int(raw[cursor])
		if cursor-jumpCount < 0 {
			return variableMetadata{}, nil, false
		}
		cursor -= jumpCount
		for i := 0; i < jumpCount; i++ {
			jumpSet[int(raw[cursor+i])] = true
		}
	}

	if cursor < varMetaCountSize {
		return variableMetadata{}, nil, false
	}
	cursor -= varMetaCountSize
	count := int(binary.LittleEndian.Uint16(raw[cursor : cursor+varMetaCountSize]))
	if count != wantCount {
		return variableMetadata{}, nil, false
	}

	offsetsLen := (count + 1) * 2
	if cursor-offsetsLen < 0 {
		return variableMetadata{}, nil, false
	}
	cursor -= offsetsLen

	offsets := make([]uint16, count+1)
	for i := 0; i <= count; i++ {
		offsets[i] = binary.LittleEndian.Uint16(raw[cursor+i*2 : cursor+i*2+2])
	}

	return variableMetadata{count: count, offsets: offsets}, jumpSet, true
}
