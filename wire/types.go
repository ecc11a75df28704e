package wire

import "fmt"

// ===== PRIMITIVE WIRE TYPES =====

// PrimType is the 3-bit tag in a field header. It fixes how many bytes the
// payload occupies; it says nothing about what the bytes mean.
type PrimType uint8

const (
	Varint       PrimType = 0 // variable length integer
	PackedVarint PrimType = 1 // reserved, not implemented
	B32          PrimType = 2 // fixed length, 32 bits
	B64          PrimType = 3 // fixed length, 64 bits
	LenPlus      PrimType = 4 // varint length followed by that many bytes
	B128         PrimType = 5 // fixed length, 128 bits (AES IV)
	B160         PrimType = 6 // fixed length, 160 bits (SHA1 digest)
	B256         PrimType = 7 // fixed length, 256 bits (SHA3-256 digest)

	MaxPrimType = B256
)

var primTypeNames = [...]string{
	Varint:       "varint",
	PackedVarint: "packed_varint",
	B32:          "b32",
	B64:          "b64",
	LenPlus:      "len_plus",
	B128:         "b128",
	B160:         "b160",
	B256:         "b256",
}

func (p PrimType) String() string {
	if p <= MaxPrimType {
		return primTypeNames[p]
	}
	return fmt.Sprintf("prim(%d)", uint8(p))
}

// fixedWidth is the payload size of the fixed-width primitive types; zero
// for the variable ones.
var fixedWidth = [...]int{
	B32:  4,
	B64:  8,
	B128: 16,
	B160: 20,
	B256: 32,
}

// FixedWidth returns the payload size of a fixed-width primitive type and
// whether p is one.
func (p PrimType) FixedWidth() (int, bool) {
	if p > MaxPrimType {
		return 0, false
	}
	n := fixedWidth[p]
	return n, n != 0
}

// ===== FIELD HEADERS =====

// MaxFieldNumber is the largest field number that fits beside the 3-bit tag.
const MaxFieldNumber uint64 = 1<<61 - 1

// FieldHeaderValue packs a field number and primitive type into a header.
// Bits above MaxFieldNumber are shifted out; WriteFieldHeader rejects them.
func FieldHeaderValue(fieldNumber uint64, pt PrimType) uint64 {
	return fieldNumber<<3 | uint64(pt)
}

// HdrFieldNumber extracts the field number from a header.
func HdrFieldNumber(hdr uint64) uint64 {
	return hdr >> 3
}

// HdrType extracts the primitive type from a header.
func HdrType(hdr uint64) PrimType {
	return PrimType(hdr & 7)
}

// FieldHeaderLength returns the encoded size of the header for a field of
// logical type ft. The header depends on the primitive type, which is why
// the logical type is mapped first.
func FieldHeaderLength(fieldNumber uint64, ft FieldType) (int, error) {
	pt, err := ft.PrimType()
	if err != nil {
		return 0, err
	}
	if err := checkFieldNumber("FieldHeaderLength", fieldNumber); err != nil {
		return 0, err
	}
	return LengthAsVarint(FieldHeaderValue(fieldNumber, pt)), nil
}

// checkFieldNumber rejects field numbers that do not fit beside the tag.
func checkFieldNumber(op string, fieldNumber uint64) error {
	if fieldNumber > MaxFieldNumber {
		return newError(KindOutOfRange, op, "field number %d overflows header", fieldNumber)
	}
	return nil
}

// ReadFieldHeader reads one header varint and splits it.
func ReadFieldHeader(buf *Buffer) (PrimType, uint64, error) {
	hdr, err := ReadRawVarint(buf)
	if err != nil {
		return 0, 0, err
	}
	return HdrType(hdr), HdrFieldNumber(hdr), nil
}

// WriteFieldHeader writes the packed header for fieldNumber and pt.
func WriteFieldHeader(buf *Buffer, fieldNumber uint64, pt PrimType) error {
	if err := checkFieldNumber("WriteFieldHeader", fieldNumber); err != nil {
		return err
	}
	if pt > MaxPrimType {
		return newError(KindOutOfRange, "WriteFieldHeader", "primitive type %d", pt)
	}
	return WriteRawVarint(buf, FieldHeaderValue(fieldNumber, pt))
}

// RawValue is a field decoded without a schema: the payload is surfaced in
// its primitive form (uint64 for varints, uint32/uint64 for B32/B64, []byte
// for everything else).
type RawValue struct {
	FieldNumber uint64
	PrimType    PrimType
	Data        interface{}
}
