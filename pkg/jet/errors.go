package jet

import "errors"

// Fatal-at-construction errors (§7 tier 1).
var (
	// ErrMalformedBuffer is returned when the input buffer's length is
	// not a whole multiple of the page size for the detected dialect.
	ErrMalformedBuffer = errors.New("jet: malformed buffer")

	// ErrUnknownVersion is returned when the file-header version byte
	// does not map to a known Jet dialect.
	ErrUnknownVersion = errors.New("jet: unknown jet version")

	// ErrTableHeaderCorrupt is returned when a TDEF page chain cannot
	// be parsed into a consistent column set.
	ErrTableHeaderCorrupt = errors.New("jet: table header corrupt")
)

// Fatal-at-ParseTable errors (§7 tier 2).
var (
	// ErrUnknownTable is returned by ParseTable for a name absent from
	// the catalog.
	ErrUnknownTable = errors.New("jet: unknown table")

	// ErrEmptyTable is returned by ParseTable for a known table with no
	// attached data pages.
	ErrEmptyTable = errors.New("jet: table has no data pages")
)
