package wire

import "fmt"

// FieldType is a logical field type. The numeric values are part of the
// wire contract: they must never be renumbered, and the group boundaries
// (last varint, last B32, last B64, last LenPlus) are load-bearing.
type FieldType uint8

const (
	// implemented using varints
	VBool FieldType = iota
	VEnum
	VUint32
	VSint32
	VUint64
	VSint64
	// implemented using B32
	FUint32
	FSint32
	FFloat
	// implemented using B64
	FUint64
	FSint64
	FDouble
	// implemented using LenPlus
	LString
	LBytes
	LMsg
	// other fixed length byte sequences
	FBytes16
	FBytes20
	FBytes32

	MaxFieldType = FBytes32
)

// NumFieldTypes is the size of the field type table.
const NumFieldTypes = int(MaxFieldType) + 1

var fieldTypeSymbols = [NumFieldTypes]string{
	"vbool",
	"venum",
	"vuint32",
	"vsint32",
	"vuint64",
	"vsint64",
	"fuint32",
	"fsint32",
	"ffloat",
	"fuint64",
	"fsint64",
	"fdouble",
	"lstring",
	"lbytes",
	"lmsg",
	"fbytes16",
	"fbytes20",
	"fbytes32",
}

var fieldTypesBySymbol = func() map[string]FieldType {
	m := make(map[string]FieldType, NumFieldTypes)
	for i, sym := range fieldTypeSymbols {
		m[sym] = FieldType(i)
	}
	return m
}()

// Valid reports whether ft is inside the table.
func (ft FieldType) Valid() bool {
	return ft <= MaxFieldType
}

// Symbol returns the short name used in schemas and debug output.
func (ft FieldType) Symbol() string {
	if !ft.Valid() {
		return ""
	}
	return fieldTypeSymbols[ft]
}

func (ft FieldType) String() string {
	if !ft.Valid() {
		return fmt.Sprintf("ftype(%d)", uint8(ft))
	}
	return fieldTypeSymbols[ft]
}

// PrimType maps the logical type to the primitive type that lays it out.
func (ft FieldType) PrimType() (PrimType, error) {
	switch {
	case ft <= VSint64:
		return Varint, nil
	case ft <= FFloat:
		return B32, nil
	case ft <= FDouble:
		return B64, nil
	case ft <= LMsg:
		return LenPlus, nil
	case ft == FBytes16:
		return B128, nil
	case ft == FBytes20:
		return B160, nil
	case ft == FBytes32:
		return B256, nil
	}
	return 0, invalidFieldType("PrimType", int(ft))
}

// FieldTypeByIndex converts a schema-supplied integer to a FieldType.
func FieldTypeByIndex(ndx int) (FieldType, error) {
	if ndx < 0 || ndx > int(MaxFieldType) {
		return 0, invalidFieldType("FieldTypeByIndex", ndx)
	}
	return FieldType(ndx), nil
}

// FieldTypeBySymbol looks a FieldType up by its symbol, e.g. "fbytes20".
func FieldTypeBySymbol(sym string) (FieldType, error) {
	ft, ok := fieldTypesBySymbol[sym]
	if !ok {
		return 0, newError(KindInvalidFieldType, "FieldTypeBySymbol", "no field type %q", sym)
	}
	return ft, nil
}

// FieldTypes returns every logical type in index order.
func FieldTypes() []FieldType {
	out := make([]FieldType, NumFieldTypes)
	for i := range out {
		out[i] = FieldType(i)
	}
	return out
}

func invalidFieldType(op string, ndx int) *Error {
	return newError(KindInvalidFieldType, op, "index %d outside 0..%d", ndx, MaxFieldType)
}
