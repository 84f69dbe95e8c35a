package jet

import "testing"

type colSpec struct {
	typeCode    byte
	columnIndex int
	columnID    int
	fixedOffset int
	fixedLength int
	fixed       bool
	name        string
}

func buildLogicalTDEF(cols []colSpec, rowCount int) []byte {
	var buf []byte
	buf = append(buf, le32(uint32(len(cols)))...)

	varCount := 0
	for _, c := range cols {
		if !c.fixed {
			varCount++
		}
	}
	buf = append(buf, le32(uint32(varCount))...)
	buf = append(buf, le32(0)...) // realIndexCount
	buf = append(buf, le32(uint32(rowCount))...)

	for _, c := range cols {
		flags := byte(0)
		if c.fixed {
			flags = colFlagFixedLength
		}
		desc := make([]byte, tdefColumnDescriptorSize)
		desc[0] = c.typeCode
		desc[1] = byte(c.columnIndex)
		desc[2] = byte(c.columnIndex >> 8)
		desc[3] = byte(c.columnID)
		desc[4] = byte(c.columnID >> 8)
		desc[5] = byte(c.fixedOffset)
		desc[6] = byte(c.fixedOffset >> 8)
		desc[7] = flags
		desc[8] = byte(c.fixedLength)
		desc[9] = byte(c.fixedLength >> 8)
		buf = append(buf, desc...)
	}

	for _, c := range cols {
		buf = append(buf, byte(len(c.name)))
		buf = append(buf, []byte(c.name)...)
	}
	return buf
}

func buildTDEFPage(pageSize int, nextPtr uint32, payload []byte) []byte {
	data := make([]byte, pageSize)
	data[0], data[1] = pageMagicTableDef[0], pageMagicTableDef[1]
	copy(data[4:8], le32(nextPtr))
	room := pageSize - tdefPageHeaderSize
	if len(payload) > room {
		panic("test payload too large for one page")
	}
	copy(data[tdefPageHeaderSize:], payload)
	return data
}

func TestParseLogicalTDEFPositionalMap(t *testing.T) {
	cols := []colSpec{
		{typeCode: colTypeInt32, columnIndex: 0, columnID: 5, fixed: true, fixedOffset: 0, fixedLength: 4, name: "ID"},
		{typeCode: colTypeText, columnIndex: 1, columnID: 6, fixed: false, name: "Name"},
	}
	payload := buildLogicalTDEF(cols, 3)

	def, err := parseLogicalTDEF("Widgets", payload)
	if err != nil {
		t.Fatalf("parseLogicalTDEF: %v", err)
	}
	if def.ColumnCount != 2 || def.VariableColumns != 1 || def.RowCount != 3 {
		t.Fatalf("unexpected header fields: %+v", def)
	}
	if def.Columns[0].Name != "ID" || def.Columns[1].Name != "Name" {
		t.Fatalf("unexpected column names: %+v", def.Columns)
	}
	if len(def.variableOrder) != 1 || def.variableOrder[0].Name != "Name" {
		t.Fatalf("unexpected variable order: %+v", def.variableOrder)
	}
}

func TestBuildColumnMapFallsBackToColumnID(t *testing.T) {
	// Both columns share columnIndex 0: positional mapping cannot
	// produce 2 distinct keys, so the column-ID map must be used.
	cols := []colSpec{
		{typeCode: colTypeInt32, columnIndex: 0, columnID: 1, fixed: true, fixedOffset: 0, fixedLength: 4, name: "A"},
		{typeCode: colTypeInt32, columnIndex: 0, columnID: 2, fixed: true, fixedOffset: 4, fixedLength: 4, name: "B"},
	}
	payload := buildLogicalTDEF(cols, 0)

	def, err := parseLogicalTDEF("Dup", payload)
	if err != nil {
		t.Fatalf("parseLogicalTDEF: %v", err)
	}
	if len(def.colByMapKey) != 2 {
		t.Fatalf("expected column-ID fallback to produce 2 map entries, got %d", len(def.colByMapKey))
	}
	if def.colByMapKey[1].Name != "A" || def.colByMapKey[2].Name != "B" {
		t.Fatalf("unexpected column-ID map contents: %+v", def.colByMapKey)
	}
}

func TestReadTableDefFollowsContinuationChain(t *testing.T) {
	cols := []colSpec{
		{typeCode: colTypeInt32, columnIndex: 0, columnID: 0, fixed: true, fixedOffset: 0, fixedLength: 4, name: "ID"},
		{typeCode: colTypeText, columnIndex: 1, columnID: 1, fixed: false, name: "Description"},
	}
	payload := buildLogicalTDEF(cols, 1)

	// A TDEF page carries no payload length, so every page but the last
	// contributes all of its bytes after the header. The page size is
	// chosen so the first page is full and the last column name
	// straddles the page boundary.
	split := len(payload) - 3
	pageSize := tdefPageHeaderSize + split
	room := pageSize - tdefPageHeaderSize
	if split < 0 || split > room {
		t.Fatalf("test setup: split %d not within a single page's room %d", split, room)
	}

	first := buildTDEFPage(pageSize, 3, payload[:split])
	second := buildTDEFPage(pageSize, 0, payload[split:])

	allPages := map[int]page{
		2 * pageSize: {offset: 2 * pageSize, data: first, kind: PageKindTableDef},
		3 * pageSize: {offset: 3 * pageSize, data: second, kind: PageKindTableDef},
	}

	def, err := readTableDef("Items", allPages[2*pageSize], allPages, pageSize)
	if err != nil {
		t.Fatalf("readTableDef: %v", err)
	}
	if def.ColumnCount != 2 || def.Columns[1].Name != "Description" {
		t.Fatalf("unexpected def after following continuation: %+v", def)
	}
}
