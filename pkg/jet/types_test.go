package jet

import (
	"encoding/binary"
	"math"
	"testing"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestDecodeMoney(t *testing.T) {
	// 1.2345 * 10000 = 12345, fits entirely in the low 32 bits.
	data := append(le32(12345), le32(0)...)
	got, err := decodeMoney(data)
	if err != nil {
		t.Fatalf("decodeMoney: %v", err)
	}
	if got != 1.2345 {
		t.Fatalf("decodeMoney = %v, want 1.2345", got)
	}
}

func TestDecodeMoneyNegative(t *testing.T) {
	var negOne int32 = -1
	data := append(le32(0), le32(uint32(negOne))...)
	got, err := decodeMoney(data)
	if err != nil {
		t.Fatalf("decodeMoney: %v", err)
	}
	want := -4294967296.0 / 10000.0
	if got != want {
		t.Fatalf("decodeMoney = %v, want %v", got, want)
	}
}

func TestDecodeDateTimeEpoch(t *testing.T) {
	data := le64(math.Float64bits(0.0))
	got, err := decodeDateTime(data)
	if err != nil {
		t.Fatalf("decodeDateTime: %v", err)
	}
	want := "1899-12-30T12:00:00.000Z"
	if got != want {
		t.Fatalf("decodeDateTime(0.0) = %q, want %q", got, want)
	}
}

func TestDecodeDateTimeOneAndHalf(t *testing.T) {
	data := le64(math.Float64bits(1.5))
	got, err := decodeDateTime(data)
	if err != nil {
		t.Fatalf("decodeDateTime: %v", err)
	}
	want := "1899-12-31T00:00:00.000Z"
	if got != want {
		t.Fatalf("decodeDateTime(1.5) = %q, want %q", got, want)
	}
}

func TestDecodeGUID(t *testing.T) {
	data := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x06,
		0x07, 0x08,
		0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}
	got, err := decodeGUID(data)
	if err != nil {
		t.Fatalf("decodeGUID: %v", err)
	}
	want := "01020304-0506-0708-090a-0b0c0d0e0f10"
	if got != want {
		t.Fatalf("decodeGUID = %q, want %q", got, want)
	}
}

func TestDecodeTextJet3IsUTF8(t *testing.T) {
	got, err := decodeText([]byte("hello"), Version3)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if got != "hello" {
		t.Fatalf("decodeText = %q, want %q", got, "hello")
	}
}

func TestDecodeTextJet4UTF16LE(t *testing.T) {
	// "hi" in UTF-16LE.
	data := []byte{'h', 0, 'i', 0}
	got, err := decodeText(data, Version4)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if got != "hi" {
		t.Fatalf("decodeText = %q, want %q", got, "hi")
	}
}

func TestDecodeTextJet4Windows1252Marker(t *testing.T) {
	data := append([]byte{0xFF, 0xFE}, []byte("hey")...)
	got, err := decodeText(data, Version4)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if got != "hey" {
		t.Fatalf("decodeText = %q, want %q", got, "hey")
	}
}

func TestDecodeValueInt32(t *testing.T) {
	var negSeven int32 = -7
	v, err := decodeValue(colTypeInt32, le32(uint32(negSeven)), Version4)
	if err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if v.(int64) != -7 {
		t.Fatalf("decodeValue = %v, want -7", v)
	}
}
