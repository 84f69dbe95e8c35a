package jet

import (
	"fmt"
)

// page is a fixed-size view over one page of the input buffer.
type page struct {
	offset int
	data   []byte
	kind   PageKind
}

// classifyPages splits buf into pageSize-sized pages and tags each by
// its magic bytes (§4.2). allPages, dataPages and tdefPages are keyed
// by byte offset into buf.
func classifyPages(buf []byte, pageSize int) (allPages map[int]page, dataPages map[int]page, tdefPages map[int]page, err error) {
	if pageSize <= 0 || len(buf)%pageSize != 0 {
		return nil, nil, nil, fmt.Errorf("%w: buffer length %d is not a multiple of page size %d", ErrMalformedBuffer, len(buf), pageSize)
	}

	allPages = make(map[int]page)
	dataPages = make(map[int]page)
	tdefPages = make(map[int]page)

	for offset := 0; offset < len(buf); offset += pageSize {
		data := buf[offset : offset+pageSize]
		p := page{offset: offset, data: data, kind: classifyPage(data)}
		allPages[offset] = p
		switch p.kind {
		case PageKindData:
			dataPages[offset] = p
		case PageKindTableDef:
			tdefPages[offset] = p
		}
	}
	return allPages, dataPages, tdefPages, nil
}

func classifyPage(data []byte) PageKind {
	if len(data) < 2 {
		return PageKindOther
	}
	switch {
	case data[0] == pageMagicData[0] && data[1] == pageMagicData[1]:
		return PageKindData
	case data[0] == pageMagicTableDef[0] && data[1] == pageMagicTableDef[1]:
		return PageKindTableDef
	default:
		return PageKindOther
	}
}
