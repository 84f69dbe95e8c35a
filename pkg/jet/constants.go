package jet

// Page sizes, in bytes, for the two page-size families Jet ever uses.
const (
	pageSizeJet3 = 0x0800
	pageSizeJet4 = 0x1000
)

// Page magic bytes (first two bytes of every page, in on-disk order).
var (
	pageMagicData     = [2]byte{0x01, 0x01}
	pageMagicTableDef = [2]byte{0x02, 0x01}
)

// PageKind classifies a page by its magic bytes.
type PageKind int

const (
	PageKindOther PageKind = iota
	PageKindData
	PageKindTableDef
)

// Version identifies the on-disk Jet dialect.
type Version int

const (
	Version3    Version = 3
	Version4    Version = 4
	Version5    Version = 5
	Version2010 Version = 2010
)

// catalogTDEFPageIndex is the fixed page index (not byte offset) of the
// MSysObjects table-definition page.
const catalogTDEFPageIndex = 2

// fileSignature is the leading 4 bytes every Jet database file carries
// at the start of its first page, ahead of the version byte at
// jetVersionByteOffset.
var fileSignature = [4]byte{0x00, 0x01, 0x00, 0x00}

// MSysObjects.Type value for a user table.
const sysObjectTypeTable = 1

// Column/value type codes (§4.1).
const (
	colTypeBoolean  = 1
	colTypeInt8     = 2
	colTypeInt16    = 3
	colTypeInt32    = 4
	colTypeMoney    = 5
	colTypeFloat32  = 6
	colTypeFloat64  = 7
	colTypeDateTime = 8
	colTypeBinary   = 9
	colTypeText     = 10
	colTypeOLE      = 11
	colTypeMemo     = 12
	colTypeGUID     = 15
	colTypeBit96    = 16
	colTypeComplex  = 18
)

// Column descriptor flag bits.
const (
	colFlagFixedLength = 0x01
)

// Record-offset slot flag bits (§4.5).
const (
	recordOffsetDeletedFlag  = 0x8000
	recordOffsetOverflowFlag = 0x4000
	recordOffsetMask         = 0x0FFF
)

// Memo (LVAL) header top-bit flags (§4.8).
const (
	memoFlagInline    = 0x80000000
	memoFlagLVAL1     = 0x40000000
	memoLengthMask    = 0x3FFFFFFF
	memoHeaderLength  = 12
)
