package jet

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Column describes one column of a table, as reconstructed from a
// TDEF page chain (§3, §4.4).
type Column struct {
	Name        string
	TypeCode    byte
	Flags       byte
	FixedOffset int
	FixedLength int
	ColumnIndex int
	ColumnID    int
}

// IsFixedLength reports whether the column is stored in the fixed
// region of every record.
func (c Column) IsFixedLength() bool {
	return c.Flags&colFlagFixedLength != 0
}

// TableDef is a table's reconstructed schema: header counts plus an
// ordered column list and the positional/ID lookup map §4.4 describes.
type TableDef struct {
	Name            string
	ColumnCount     int
	VariableColumns int
	RealIndexCount  int
	RowCount        int
	Columns         []Column

	colByMapKey map[int]*Column
	// variableOrder holds the variable-length columns only, ordered by
	// their column-map key ascending — this is "column-map order" as
	// used by the variable-length decode pass (§4.7 step 5).
	variableOrder []Column
}

// tdefColumnDescriptorSize is the size of one column descriptor in the
// logical TDEF byte stream this package reads and writes (see the doc
// comment on parseLogicalTDEF for the full layout).
const tdefColumnDescriptorSize = 10

// tdefPageHeaderSize is the size, in bytes, of the small per-page
// header prefixed onto every physical TDEF page before its payload
// (the continuation pointer). It is the same on every dialect.
const tdefPageHeaderSize = 8

// readTableDef walks the TDEF page chain starting at tdefPage (the
// page hosting the table's definition), concatenates the logical byte
// stream (§4.4), and parses it into a TableDef.
func readTableDef(name string, tdefPage page, allPages map[int]page, pageSize int) (*TableDef, error) {
	var logical []byte

	cur := tdefPage
	for {
		if len(cur.data) < tdefPageHeaderSize {
			return nil, fmt.Errorf("%w: tdef page too small", ErrTableHeaderCorrupt)
		}
		nextPtr := binary.LittleEndian.Uint32(cur.data[4:8])
		logical = append(logical, cur.data[tdefPageHeaderSize:]...)
		if nextPtr == 0 {
			break
		}
		next, ok := allPages[int(nextPtr)*pageSize]
		if !ok || next.kind != PageKindTableDef {
			return nil, fmt.Errorf("%w: tdef continuation page %d missing", ErrTableHeaderCorrupt, nextPtr)
		}
		cur = next
	}

	return parseLogicalTDEF(name, logical)
}

// parseLogicalTDEF parses the concatenated TDEF byte stream.
//
// Layout (all integers little-endian):
//
//	[0:4]   columnCount     uint32
//	[4:8]   variableColumns uint32
//	[8:12]  realIndexCount  uint32
//	[12:16] rowCount        uint32
//	[16:]   realIndexCount * 8 bytes of opaque index metadata (skipped;
//	        indexes are out of scope for this decoder)
//	then, for each of columnCount columns, a 10-byte descriptor:
//	  [0]   typeCode  byte
//	  [1:3] columnIndex uint16
//	  [3:5] columnID    uint16
//	  [5:7] fixedOffset uint16
//	  [7]   flags       byte (bit 0x01 = fixed-length)
//	  [8:10] fixedLength uint16
//	then, for each of columnCount columns, a name entry:
//	  [0]   nameLen byte
//	  [1:1+nameLen] name bytes (UTF-8)
func parseLogicalTDEF(name string, buf []byte) (*TableDef, error) {
	if len(buf) < 16 {
		return nil, fmt.Errorf("%w: tdef stream too small", ErrTableHeaderCorrupt)
	}

	def := &TableDef{
		Name:            name,
		ColumnCount:     int(binary.LittleEndian.Uint32(buf[0:4])),
		VariableColumns: int(binary.LittleEndian.Uint32(buf[4:8])),
		RealIndexCount:  int(binary.LittleEndian.Uint32(buf[8:12])),
		RowCount:        int(binary.LittleEndian.Uint32(buf[12:16])),
	}
	buf = buf[16:]

	indexBytes := def.RealIndexCount * 8
	if len(buf) < indexBytes {
		return nil, fmt.Errorf("%w: tdef index metadata truncated", ErrTableHeaderCorrupt)
	}
	buf = buf[indexBytes:]

	if len(buf) < def.ColumnCount*tdefColumnDescriptorSize {
		return nil, fmt.Errorf("%w: tdef column descriptors truncated", ErrTableHeaderCorrupt)
	}

	def.Columns = make([]Column, def.ColumnCount)
	for i := 0; i < def.ColumnCount; i++ {
		cbuf := buf[i*tdefColumnDescriptorSize : (i+1)*tdefColumnDescriptorSize]
		def.Columns[i] = Column{
			TypeCode:    cbuf[0],
			ColumnIndex: int(binary.LittleEndian.Uint16(cbuf[1:3])),
			ColumnID:    int(binary.LittleEndian.Uint16(cbuf[3:5])),
			FixedOffset: int(binary.LittleEndian.Uint16(cbuf[5:7])),
			Flags:       cbuf[7],
			FixedLength: int(binary.LittleEndian.Uint16(cbuf[8:10])),
		}
	}
	buf = buf[def.ColumnCount*tdefColumnDescriptorSize:]

	for i := 0; i < def.ColumnCount; i++ {
		if len(buf) < 1 {
			return nil, fmt.Errorf("%w: tdef name table truncated", ErrTableHeaderCorrupt)
		}
		nameLen := int(buf[0])
		if len(buf) < 1+nameLen {
			return nil, fmt.Errorf("%w: tdef name table truncated", ErrTableHeaderCorrupt)
		}
		def.Columns[i].Name = string(buf[1 : 1+nameLen])
		buf = buf[1+nameLen:]
	}

	if err := def.buildColumnMap(); err != nil {
		return nil, err
	}
	def.buildVariableOrder()

	return def, nil
}

// buildColumnMap implements §4.4's positional-index-first, column-ID
// fallback keying rule.
func (def *TableDef) buildColumnMap() error {
	if len(def.Columns) == 0 {
		def.colByMapKey = map[int]*Column{}
		return nil
	}

	minIndex := def.Columns[0].ColumnIndex
	for i := range def.Columns {
		if def.Columns[i].ColumnIndex < minIndex {
			minIndex = def.Columns[i].ColumnIndex
		}
	}

	byPositional := make(map[int]*Column, len(def.Columns))
	for i := range def.Columns {
		byPositional[def.Columns[i].ColumnIndex-minIndex] = &def.Columns[i]
	}
	if len(byPositional) == len(def.Columns) && len(byPositional) == def.ColumnCount {
		def.colByMapKey = byPositional
		return nil
	}

	byID := make(map[int]*Column, len(def.Columns))
	for i := range def.Columns {
		byID[def.Columns[i].ColumnID] = &def.Columns[i]
	}
	if len(byID) == def.ColumnCount {
		def.colByMapKey = byID
		return nil
	}

	return fmt.Errorf("%w: neither positional index nor column ID produced %d distinct columns for %q",
		ErrTableHeaderCorrupt, def.ColumnCount, def.Name)
}

// buildVariableOrder collects the non-fixed-length columns in
// ascending column-map-key order.
func (def *TableDef) buildVariableOrder() {
	keys := make([]int, 0, len(def.colByMapKey))
	for k := range def.colByMapKey {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	def.variableOrder = def.variableOrder[:0]
	for _, k := range keys {
		col := def.colByMapKey[k]
		if !col.IsFixedLength() {
			def.variableOrder = append(def.variableOrder, *col)
		}
	}
}
