// Package jet decodes Microsoft Jet (.mdb/.accdb) database pages held
// entirely in memory, exposing each table's rows as an ordered
// sequence of typed values without ever touching a filesystem path.
package jet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Velocidex/ordereddict"
	"go.uber.org/zap"

	"github.com/joseanu/AccessDB-browser-parser/pkg/logger"
)

// catalogEntry is one row read out of MSysObjects (§4.9).
type catalogEntry struct {
	Name  string
	Type  int64
	Flags int64
	ID    int64
}

// Option configures a Parser at construction time.
type Option func(*Parser)

// WithLogger overrides the package-level zap logger a Parser uses for
// per-row tier-3 warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStrictMemo makes an unrecognized memo storage type (LVAL type 2,
// §4.8) a per-row skip instead of a degraded fallback to raw bytes.
func WithStrictMemo(strict bool) Option {
	return func(p *Parser) {
		p.strictMemo = strict
	}
}

// Parser exposes a parsed Jet buffer: its dialect, its catalog of user
// tables, and on-demand per-table row decoding.
type Parser struct {
	buf      []byte
	version  Version
	pageSize int

	allPages  map[int]page
	dataPages map[int]page
	tdefPages map[int]page

	catalog    *ordereddict.Dict
	tableDefs  map[string]*TableDef
	tableHeads map[string]int // table name -> TDEF head page number

	logger     *zap.Logger
	strictMemo bool
}

// NewParser classifies buf's pages, reads its file header, and builds
// the table catalog from MSysObjects. It returns a fatal error (§7
// tier 1) if the buffer is malformed, the dialect is unrecognized, or
// the catalog's own table definition cannot be parsed.
func NewParser(buf []byte, opts ...Option) (*Parser, error) {
	hdr, err := readFileHeader(buf)
	if err != nil {
		return nil, err
	}

	allPages, dataPages, tdefPages, err := classifyPages(buf, hdr.pageSize)
	if err != nil {
		return nil, err
	}

	p := &Parser{
		buf:        buf,
		version:    hdr.version,
		pageSize:   hdr.pageSize,
		allPages:   allPages,
		dataPages:  dataPages,
		tdefPages:  tdefPages,
		tableDefs:  map[string]*TableDef{},
		tableHeads: map[string]int{},
		logger:     logger.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.buildCatalog(); err != nil {
		return nil, err
	}
	return p, nil
}

// Version reports the Jet dialect detected for this buffer.
func (p *Parser) Version() Version {
	return p.version
}

// PageSize reports the page size, in bytes, implied by this buffer's
// dialect.
func (p *Parser) PageSize() int {
	return p.pageSize
}

// TableNames returns the user tables found in the catalog, in the
// order MSysObjects lists them.
func (p *Parser) TableNames() []string {
	names := make([]string, 0, p.catalog.Len())
	for _, k := range p.catalog.Keys() {
		names = append(names, k)
	}
	return names
}

// TableDef returns the reconstructed schema for a catalog table,
// parsing its TDEF page chain on first use.
func (p *Parser) TableDef(name string) (*TableDef, error) {
	return p.tableDef(name)
}

// buildCatalog implements §4.9: read MSysObjects' own TDEF (always at
// the fixed page index catalogTDEFPageIndex), decode its rows, and
// keep only the user-table entries.
func (p *Parser) buildCatalog() error {
	headOffset := catalogTDEFPageIndex * p.pageSize
	head, ok := p.tdefPages[headOffset]
	if !ok {
		return fmt.Errorf("%w: no table-definition page at catalog index %d", ErrTableHeaderCorrupt, catalogTDEFPageIndex)
	}

	def, err := readTableDef("MSysObjects", head, p.allPages, p.pageSize)
	if err != nil {
		return err
	}
	p.tableDefs["MSysObjects"] = def
	p.tableHeads["MSysObjects"] = catalogTDEFPageIndex

	rows, err := p.decodeTableRows(def, catalogTDEFPageIndex)
	if err != nil {
		return err
	}

	catalog := ordereddict.NewDict()
	for _, row := range rows {
		entry, ok := parseCatalogEntry(row.Data())
		if !ok {
			continue
		}
		if isSystemObject(entry) {
			continue
		}
		catalog.Set(entry.Name, entry)
	}
	p.catalog = catalog
	return nil
}

func parseCatalogEntry(d *ordereddict.Dict) (catalogEntry, bool) {
	name, ok := d.GetString("Name")
	if !ok {
		return catalogEntry{}, false
	}
	typ, _ := d.GetInt64("Type")
	flags, _ := d.GetInt64("Flags")
	id, _ := d.GetInt64("Id")
	return catalogEntry{Name: name, Type: typ, Flags: flags, ID: id}, true
}

// isSystemObject implements §4.9's MSysObjects filtering rule: only
// Type-1 entries with Flags exactly zero are user tables. Jet stores
// Flags as a signed 32-bit integer, so a hidden or system bit such as
// 0x80000000 already reads as nonzero once parsed as int64, whether
// the source value was sign-extended or not; no per-bit check is
// needed on top of the equality test.
func isSystemObject(e catalogEntry) bool {
	return e.Type != sysObjectTypeTable || e.Flags != 0
}

// tableDef resolves and caches a non-catalog table's TDEF by looking
// up its catalog entry, whose Id field Jet stores as the table's TDEF
// head page number.
func (p *Parser) tableDef(name string) (*TableDef, error) {
	if def, ok := p.tableDefs[name]; ok {
		return def, nil
	}

	entryVal, ok := p.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	entry := entryVal.(catalogEntry)

	headOffset := int(entry.ID) * p.pageSize
	head, ok := p.tdefPages[headOffset]
	if !ok {
		return nil, fmt.Errorf("%w: %q: no table-definition page at index %d", ErrTableHeaderCorrupt, name, entry.ID)
	}

	def, err := readTableDef(name, head, p.allPages, p.pageSize)
	if err != nil {
		return nil, err
	}
	p.tableDefs[name] = def
	p.tableHeads[name] = int(entry.ID)
	return def, nil
}

// Row is one decoded record of a parsed table (§5).
type Row struct {
	number int
	data   *ordereddict.Dict
}

// RowNumber is the record's 1-based position among the table's live
// (non-deleted) records, in page-then-slot order.
func (r Row) RowNumber() int {
	return r.number
}

// Data holds the row's column values keyed by column name.
func (r Row) Data() *ordereddict.Dict {
	return r.data
}

// ParseTable implements §5: decode every live record belonging to a
// catalog table into a Row. A per-row decode failure is logged and the
// row is skipped (§7 tier 3) without aborting the scan; a column ID
// outside the null bitmap (ErrTableHeaderCorrupt) aborts the call.
func (p *Parser) ParseTable(name string) ([]Row, error) {
	def, err := p.tableDef(name)
	if err != nil {
		return nil, err
	}
	tdefHeadPageNumber := p.tableHeads[name]
	if !p.hasOwnedDataPages(tdefHeadPageNumber) {
		return nil, fmt.Errorf("%w: %q", ErrEmptyTable, name)
	}
	return p.decodeTableRows(def, tdefHeadPageNumber)
}

func (p *Parser) hasOwnedDataPages(tdefHeadPageNumber int) bool {
	for _, dp := range p.dataPages {
		hdr, err := parseDataPageHeader(dp.data)
		if err == nil && hdr.pageOwner == tdefHeadPageNumber {
			return true
		}
	}
	return false
}

func (p *Parser) decodeTableRows(def *TableDef, tdefHeadPageNumber int) ([]Row, error) {
	var owned []page
	for _, dp := range p.dataPages {
		hdr, err := parseDataPageHeader(dp.data)
		if err != nil {
			continue
		}
		if hdr.pageOwner == tdefHeadPageNumber {
			owned = append(owned, dp)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].offset < owned[j].offset })

	var rows []Row
	rowNum := 0
	for _, dp := range owned {
		hdr, err := parseDataPageHeader(dp.data)
		if err != nil {
			p.logger.Sugar().Warnf("jet: table %q: %v, skipping page", def.Name, err)
			continue
		}
		slots := carveRecordSlots(hdr, dp.data)

		for _, slot := range slots {
			var recordData []byte
			switch slot.kind {
			case slotDeleted:
				continue
			case slotOverflow:
				resolved, ok := resolveOverflow(slot.data, slot.ptrPos, p.allPages, p.pageSize)
				if !ok {
					rowNum++
					p.logger.Sugar().Warnf("jet: table %q: could not resolve overflow record, skipping", def.Name)
					continue
				}
				recordData = resolved
			default:
				recordData = slot.data
			}

			rowNum++
			data, err := decodeRecord(def, p.version, recordData, p.allPages, p.pageSize, p.strictMemo, p.logger)
			if err != nil {
				if errors.Is(err, ErrTableHeaderCorrupt) {
					// A null-bitmap sizing mismatch is a schema-level
					// defect, not a single bad row (§7 tier 2): it
					// aborts the whole ParseTable call.
					return nil, err
				}
				p.logger.Sugar().Warnf("jet: table %q: row %d: %v", def.Name, rowNum, err)
				continue
			}
			rows = append(rows, Row{number: rowNum, data: data})
		}
	}

	return rows, nil
}
