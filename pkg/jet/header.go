package jet

import "fmt"

// fileHeader is the result of parsing the first page of the buffer
// (§4.3).
type fileHeader struct {
	version  Version
	pageSize int
}

// jetVersionByteOffset is the offset, within the first page, of the byte
// that identifies the Jet dialect.
const jetVersionByteOffset = 0x14

// readFileHeader parses the leading page of buf to determine the Jet
// dialect and the page size it implies, after verifying the buffer
// opens with the known Access file signature.
func readFileHeader(buf []byte) (fileHeader, error) {
	if len(buf) <= jetVersionByteOffset {
		return fileHeader{}, fmt.Errorf("%w: buffer too small for file header", ErrMalformedBuffer)
	}
	if [4]byte(buf[0:4]) != fileSignature {
		return fileHeader{}, fmt.Errorf("%w: missing Access file signature", ErrMalformedBuffer)
	}

	switch buf[jetVersionByteOffset] {
	case 0:
		return fileHeader{version: Version3, pageSize: pageSizeJet3}, nil
	case 1:
		return fileHeader{version: Version4, pageSize: pageSizeJet4}, nil
	case 2:
		return fileHeader{version: Version5, pageSize: pageSizeJet4}, nil
	case 3:
		return fileHeader{version: Version2010, pageSize: pageSizeJet4}, nil
	default:
		return fileHeader{}, fmt.Errorf("%w: version byte 0x%02x", ErrUnknownVersion, buf[jetVersionByteOffset])
	}
}
