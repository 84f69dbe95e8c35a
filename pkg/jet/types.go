package jet

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// jetEpochDate is the civil date (1899-12-30) that Jet DateTime day
// counts are measured from; the noon bias lives in decodeDateTime's
// time-of-day computation, not here, so that adding whole days never
// needs to account for a carried fraction of a day (§4.1, §8.6).
var jetEpochDate = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// decodeValue decodes a single column value from its raw byte slice
// given the type code and dialect. Binary, Text and OLE values take the
// whole slice; Bit96 takes at most its first 17 bytes.
func decodeValue(typeCode byte, data []byte, version Version) (interface{}, error) {
	switch typeCode {
	case colTypeInt8:
		if len(data) < 1 {
			return nil, fmt.Errorf("jet: int8 value too short")
		}
		return int64(int8(data[0])), nil

	case colTypeInt16:
		if len(data) < 2 {
			return nil, fmt.Errorf("jet: int16 value too short")
		}
		return int64(int16(binary.LittleEndian.Uint16(data))), nil

	case colTypeInt32:
		if len(data) < 4 {
			return nil, fmt.Errorf("jet: int32 value too short")
		}
		return int64(int32(binary.LittleEndian.Uint32(data))), nil

	case colTypeMoney:
		return decodeMoney(data)

	case colTypeFloat32:
		if len(data) < 4 {
			return nil, fmt.Errorf("jet: float32 value too short")
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil

	case colTypeFloat64:
		if len(data) < 8 {
			return nil, fmt.Errorf("jet: float64 value too short")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil

	case colTypeDateTime:
		return decodeDateTime(data)

	case colTypeBinary:
		return string(data), nil

	case colTypeText:
		return decodeText(data, version)

	case colTypeOLE:
		return string(data), nil

	case colTypeGUID:
		return decodeGUID(data)

	case colTypeBit96:
		if len(data) < 17 {
			return string(data), nil
		}
		return string(data[:17]), nil

	case colTypeComplex:
		if len(data) < 4 {
			return nil, fmt.Errorf("jet: complex value too short")
		}
		return int64(int32(binary.LittleEndian.Uint32(data))), nil

	case colTypeMemo:
		// Memo payloads are routed through decodeMemo by the record
		// decoder before reaching here; treat any leftover call the
		// same as Text.
		return decodeText(data, version)

	default:
		return nil, fmt.Errorf("jet: unsupported column type code %d", typeCode)
	}
}

// decodeMoney decodes the 64-bit fixed-point Money encoding (§4.1,
// §8.7): low 32 bits unsigned, high 32 bits signed, value = (low +
// high*2^32) / 10000.
func decodeMoney(data []byte) (float64, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("jet: money value too short")
	}
	low := binary.LittleEndian.Uint32(data[:4])
	high := int32(binary.LittleEndian.Uint32(data[4:8]))
	total := float64(high)*4294967296.0 + float64(low)
	return total / 10000.0, nil
}

// decodeDateTime decodes a Float64 day count since the Jet epoch into
// an ISO-8601 timestamp string (§4.1, §8.6).
func decodeDateTime(data []byte) (string, error) {
	if len(data) < 8 {
		return "", fmt.Errorf("jet: datetime value too short")
	}
	days := math.Float64frombits(binary.LittleEndian.Uint64(data))
	whole := math.Floor(days)
	frac := days - whole

	// The calendar date advances by the whole-day count from the civil
	// epoch date; the time-of-day is the fractional part measured from
	// a fixed noon baseline and wrapped modulo 24h without carrying
	// into the date, which is what reproduces the documented epoch law
	// (0.0 -> noon on the epoch date, 1.5 -> midnight the day after).
	date := jetEpochDate.AddDate(0, 0, int(whole))

	hoursF := frac * 24
	hours := math.Floor(hoursF)
	minutesF := (hoursF - hours) * 60
	minutes := math.Floor(minutesF)
	secondsF := (minutesF - minutes) * 60
	seconds := math.Floor(secondsF)
	millis := math.Floor((secondsF - seconds) * 1000)

	totalHour := math.Mod(12+hours, 24)

	t := date.Add(time.Duration(totalHour) * time.Hour)
	t = t.Add(time.Duration(minutes) * time.Minute)
	t = t.Add(time.Duration(seconds) * time.Second)
	t = t.Add(time.Duration(millis) * time.Millisecond)

	return t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
}

// decodeGUID formats 16 raw bytes as a lowercase dash-separated hex
// string with no little-endian reordering (§4.1, §8.8, §9).
func decodeGUID(data []byte) (string, error) {
	if len(data) < 16 {
		return "", fmt.Errorf("jet: guid value too short")
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x",
		data[0:4], data[4:6], data[6:8], data[8:10], data[10:16]), nil
}

// decodeText decodes a Text column according to §4.1's dialect rules.
func decodeText(data []byte, version Version) (string, error) {
	if version == Version3 {
		return string(data), nil
	}

	if len(data) >= 2 && (isMarker(data[0], data[1], 0xFE, 0xFF) || isMarker(data[0], data[1], 0xFF, 0xFE)) {
		dec := charmap.Windows1252.NewDecoder()
		out, err := dec.Bytes(data[2:])
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isMarker(a, b, wantA, wantB byte) bool {
	return a == wantA && b == wantB
}
