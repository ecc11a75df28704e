package wire

import (
	"math"
	"unicode/utf8"
)

// PutFunc encodes val under fieldNumber, header first.
type PutFunc func(buf *Buffer, val interface{}, fieldNumber uint64) error

// GetFunc decodes one payload (the header has already been read).
type GetFunc func(buf *Buffer) (interface{}, error)

// LenFunc returns the exact number of bytes the matching PutFunc writes,
// header included, without writing anything.
type LenFunc func(val interface{}, fieldNumber uint64) (int, error)

// WireLener is implemented by nested-message values that know their
// encoded length. LMsg lengths are computed from it.
type WireLener interface {
	WireLen() int
}

// The three tables are indexed by FieldType and never modified after
// package initialization.
var (
	putFuncs = [NumFieldTypes]PutFunc{
		VBool:    vboolPut,
		VEnum:    venumPut,
		VUint32:  vuint32Put,
		VSint32:  vsint32Put,
		VUint64:  vuint64Put,
		VSint64:  vsint64Put,
		FUint32:  fuint32Put,
		FSint32:  fsint32Put,
		FFloat:   ffloatPut,
		FUint64:  fuint64Put,
		FSint64:  fsint64Put,
		FDouble:  fdoublePut,
		LString:  lstringPut,
		LBytes:   lbytesPut,
		LMsg:     lmsgPut,
		FBytes16: fbytes16Put,
		FBytes20: fbytes20Put,
		FBytes32: fbytes32Put,
	}
	getFuncs = [NumFieldTypes]GetFunc{
		VBool:    vboolGet,
		VEnum:    venumGet,
		VUint32:  vuint32Get,
		VSint32:  vsint32Get,
		VUint64:  vuint64Get,
		VSint64:  vsint64Get,
		FUint32:  fuint32Get,
		FSint32:  fsint32Get,
		FFloat:   ffloatGet,
		FUint64:  fuint64Get,
		FSint64:  fsint64Get,
		FDouble:  fdoubleGet,
		LString:  lstringGet,
		LBytes:   lbytesGet,
		LMsg:     lmsgGet,
		FBytes16: fbytes16Get,
		FBytes20: fbytes20Get,
		FBytes32: fbytes32Get,
	}
	lenFuncs = [NumFieldTypes]LenFunc{
		VBool:    vboolLen,
		VEnum:    venumLen,
		VUint32:  vuint32Len,
		VSint32:  vsint32Len,
		VUint64:  vuint64Len,
		VSint64:  vsint64Len,
		FUint32:  fixedLen(FUint32),
		FSint32:  fixedLen(FSint32),
		FFloat:   fixedLen(FFloat),
		FUint64:  fixedLen(FUint64),
		FSint64:  fixedLen(FSint64),
		FDouble:  fixedLen(FDouble),
		LString:  lstringLen,
		LBytes:   lbytesLen,
		LMsg:     lmsgLen,
		FBytes16: fixedLen(FBytes16),
		FBytes20: fixedLen(FBytes20),
		FBytes32: fixedLen(FBytes32),
	}
)

// PutFuncFor returns the put entry for ft.
func PutFuncFor(ft FieldType) (PutFunc, error) {
	if !ft.Valid() {
		return nil, invalidFieldType("PutFuncFor", int(ft))
	}
	return putFuncs[ft], nil
}

// GetFuncFor returns the get entry for ft.
func GetFuncFor(ft FieldType) (GetFunc, error) {
	if !ft.Valid() {
		return nil, invalidFieldType("GetFuncFor", int(ft))
	}
	return getFuncs[ft], nil
}

// LenFuncFor returns the len entry for ft.
func LenFuncFor(ft FieldType) (LenFunc, error) {
	if !ft.Valid() {
		return nil, invalidFieldType("LenFuncFor", int(ft))
	}
	return lenFuncs[ft], nil
}

// Put encodes val as a field of type ft.
func Put(buf *Buffer, ft FieldType, val interface{}, fieldNumber uint64) error {
	fn, err := PutFuncFor(ft)
	if err != nil {
		return err
	}
	return fn(buf, val, fieldNumber)
}

// Get decodes a payload of type ft at the current position.
func Get(buf *Buffer, ft FieldType) (interface{}, error) {
	fn, err := GetFuncFor(ft)
	if err != nil {
		return nil, err
	}
	return fn(buf)
}

// Len returns the encoded size Put would produce for the same arguments.
func Len(ft FieldType, val interface{}, fieldNumber uint64) (int, error) {
	fn, err := LenFuncFor(ft)
	if err != nil {
		return 0, err
	}
	return fn(val, fieldNumber)
}

// hdrLen is FieldHeaderLength for a type already known to be valid. It
// rejects the field numbers WriteFieldHeader rejects.
func hdrLen(op string, fieldNumber uint64, pt PrimType) (int, error) {
	if err := checkFieldNumber(op, fieldNumber); err != nil {
		return 0, err
	}
	return LengthAsVarint(FieldHeaderValue(fieldNumber, pt)), nil
}

// ===== PUTS =====

// puts implemented using varints -------------------------

func vboolPut(buf *Buffer, val interface{}, n uint64) error {
	b, ok := val.(bool)
	if !ok {
		return typeMismatch("vboolPut", "expected bool, got %T", val)
	}
	var v uint64
	if b {
		v = 1
	}
	return WriteVarintField(buf, v, n)
}

// enums are constrained to 16 bits; anything wider is masked
func venumPut(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToUint64("venumPut", val)
	if err != nil {
		return err
	}
	return WriteVarintField(buf, v&0xffff, n)
}

func vuint32Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToUint64("vuint32Put", val)
	if err != nil {
		return err
	}
	return WriteVarintField(buf, v&0xffffffff, n)
}

func vsint32Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToInt64("vsint32Put", val)
	if err != nil {
		return err
	}
	return WriteVarintField(buf, EncodeSint32(int32(v)), n)
}

func vuint64Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToUint64("vuint64Put", val)
	if err != nil {
		return err
	}
	return WriteVarintField(buf, v, n)
}

func vsint64Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToInt64("vsint64Put", val)
	if err != nil {
		return err
	}
	return WriteVarintField(buf, EncodeSint64(v), n)
}

// implemented using B32 ----------------------------------

func fuint32Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToUint64("fuint32Put", val)
	if err != nil {
		return err
	}
	return WriteB32Field(buf, uint32(v), n)
}

func fsint32Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToInt64("fsint32Put", val)
	if err != nil {
		return err
	}
	return WriteB32Field(buf, uint32(int32(v)), n)
}

func ffloatPut(buf *Buffer, val interface{}, n uint64) error {
	f, err := coerceToFloat32("ffloatPut", val)
	if err != nil {
		return err
	}
	return WriteB32Field(buf, math.Float32bits(f), n)
}

// implemented using B64 ----------------------------------

func fuint64Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToUint64("fuint64Put", val)
	if err != nil {
		return err
	}
	return WriteB64Field(buf, v, n)
}

func fsint64Put(buf *Buffer, val interface{}, n uint64) error {
	v, err := coerceToInt64("fsint64Put", val)
	if err != nil {
		return err
	}
	return WriteB64Field(buf, uint64(v), n)
}

func fdoublePut(buf *Buffer, val interface{}, n uint64) error {
	f, err := coerceToFloat64("fdoublePut", val)
	if err != nil {
		return err
	}
	return WriteB64Field(buf, math.Float64bits(f), n)
}

// implemented using LenPlus ------------------------------

func lstringPut(buf *Buffer, val interface{}, n uint64) error {
	s, err := stringValue("lstringPut", val)
	if err != nil {
		return err
	}
	return WriteLenPlusField(buf, []byte(s), n)
}

func lbytesPut(buf *Buffer, val interface{}, n uint64) error {
	b, err := coerceToBytes("lbytesPut", val)
	if err != nil {
		return err
	}
	return WriteLenPlusField(buf, b, n)
}

// nested messages are encoded by the schema layer, not here
func lmsgPut(buf *Buffer, val interface{}, n uint64) error {
	return newError(KindUnimplemented, "lmsgPut", "nested message fields are not supported")
}

// other fixed-length byte fields -------------------------

func fbytes16Put(buf *Buffer, val interface{}, n uint64) error {
	b, err := coerceToBytes("fbytes16Put", val)
	if err != nil {
		return err
	}
	return WriteB128Field(buf, b, n)
}

func fbytes20Put(buf *Buffer, val interface{}, n uint64) error {
	b, err := coerceToBytes("fbytes20Put", val)
	if err != nil {
		return err
	}
	return WriteB160Field(buf, b, n)
}

func fbytes32Put(buf *Buffer, val interface{}, n uint64) error {
	b, err := coerceToBytes("fbytes32Put", val)
	if err != nil {
		return err
	}
	return WriteB256Field(buf, b, n)
}

func stringValue(op string, val interface{}) (string, error) {
	var s string
	switch t := val.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return "", typeMismatch(op, "expected string, got %T", val)
	}
	if !utf8.ValidString(s) {
		return "", typeMismatch(op, "string is not valid UTF-8")
	}
	return s, nil
}

// ===== GETS =====

func vboolGet(buf *Buffer) (interface{}, error) {
	v, err := ReadRawVarint(buf)
	if err != nil {
		return nil, err
	}
	return v != 0, nil
}

func venumGet(buf *Buffer) (interface{}, error) {
	v, err := ReadRawVarint(buf)
	if err != nil {
		return nil, err
	}
	return uint16(v), nil
}

func vuint32Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawVarint(buf)
	if err != nil {
		return nil, err
	}
	return uint32(v), nil
}

func vsint32Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawVarint(buf)
	if err != nil {
		return nil, err
	}
	return DecodeSint32(v), nil
}

func vuint64Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawVarint(buf)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func vsint64Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawVarint(buf)
	if err != nil {
		return nil, err
	}
	return DecodeSint64(v), nil
}

func fuint32Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawB32(buf)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// fixed signed fields are sign-extended on read
func fsint32Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawB32(buf)
	if err != nil {
		return nil, err
	}
	return int32(v), nil
}

func ffloatGet(buf *Buffer) (interface{}, error) {
	v, err := ReadRawB32(buf)
	if err != nil {
		return nil, err
	}
	return math.Float32frombits(v), nil
}

func fuint64Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawB64(buf)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func fsint64Get(buf *Buffer) (interface{}, error) {
	v, err := ReadRawB64(buf)
	if err != nil {
		return nil, err
	}
	return int64(v), nil
}

func fdoubleGet(buf *Buffer) (interface{}, error) {
	v, err := ReadRawB64(buf)
	if err != nil {
		return nil, err
	}
	return math.Float64frombits(v), nil
}

func lstringGet(buf *Buffer) (interface{}, error) {
	start := buf.position
	b, err := ReadRawLenPlus(buf)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		buf.position = start
		return nil, typeMismatch("lstringGet", "string is not valid UTF-8")
	}
	return string(b), nil
}

func lbytesGet(buf *Buffer) (interface{}, error) {
	b, err := ReadRawLenPlus(buf)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func lmsgGet(buf *Buffer) (interface{}, error) {
	return nil, newError(KindUnimplemented, "lmsgGet", "nested message fields are not supported")
}

func fbytes16Get(buf *Buffer) (interface{}, error) {
	b, err := ReadRawB128(buf)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func fbytes20Get(buf *Buffer) (interface{}, error) {
	b, err := ReadRawB160(buf)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func fbytes32Get(buf *Buffer) (interface{}, error) {
	b, err := ReadRawB256(buf)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ===== LENS =====
//
// Each len function validates its value the same way the matching put
// does, so a value Len accepts is a value Put accepts.

func vboolLen(val interface{}, n uint64) (int, error) {
	if _, ok := val.(bool); !ok {
		return 0, typeMismatch("vboolLen", "expected bool, got %T", val)
	}
	h, err := hdrLen("vboolLen", n, Varint)
	if err != nil {
		return 0, err
	}
	return h + 1, nil
}

func venumLen(val interface{}, n uint64) (int, error) {
	v, err := coerceToUint64("venumLen", val)
	if err != nil {
		return 0, err
	}
	h, err := hdrLen("venumLen", n, Varint)
	if err != nil {
		return 0, err
	}
	return h + LengthAsVarint(v&0xffff), nil
}

func vuint32Len(val interface{}, n uint64) (int, error) {
	v, err := coerceToUint64("vuint32Len", val)
	if err != nil {
		return 0, err
	}
	h, err := hdrLen("vuint32Len", n, Varint)
	if err != nil {
		return 0, err
	}
	return h + LengthAsVarint(v&0xffffffff), nil
}

func vsint32Len(val interface{}, n uint64) (int, error) {
	v, err := coerceToInt64("vsint32Len", val)
	if err != nil {
		return 0, err
	}
	h, err := hdrLen("vsint32Len", n, Varint)
	if err != nil {
		return 0, err
	}
	return h + LengthAsVarint(EncodeSint32(int32(v))), nil
}

func vuint64Len(val interface{}, n uint64) (int, error) {
	v, err := coerceToUint64("vuint64Len", val)
	if err != nil {
		return 0, err
	}
	h, err := hdrLen("vuint64Len", n, Varint)
	if err != nil {
		return 0, err
	}
	return h + LengthAsVarint(v), nil
}

func vsint64Len(val interface{}, n uint64) (int, error) {
	v, err := coerceToInt64("vsint64Len", val)
	if err != nil {
		return 0, err
	}
	h, err := hdrLen("vsint64Len", n, Varint)
	if err != nil {
		return 0, err
	}
	return h + LengthAsVarint(EncodeSint64(v)), nil
}

// fixedLen builds the len entry for a fixed-width type. The value is still
// checked so that Len and Put reject the same inputs.
func fixedLen(ft FieldType) LenFunc {
	pt, _ := ft.PrimType()
	width, _ := pt.FixedWidth()
	op := ft.Symbol() + "Len"
	return func(val interface{}, n uint64) (int, error) {
		var err error
		switch ft {
		case FUint32, FSint32, FUint64, FSint64:
			_, err = coerceToUint64(op, val)
		case FFloat, FDouble:
			_, err = coerceToFloat64(op, val)
		default:
			var b []byte
			b, err = coerceToBytes(op, val)
			if err == nil && len(b) != width {
				err = newError(KindInvalidSize, op, "block must be %d bytes, got %d", width, len(b))
			}
		}
		if err != nil {
			return 0, err
		}
		h, err := hdrLen(op, n, pt)
		if err != nil {
			return 0, err
		}
		return h + width, nil
	}
}

func lstringLen(val interface{}, n uint64) (int, error) {
	s, err := stringValue("lstringLen", val)
	if err != nil {
		return 0, err
	}
	h, err := hdrLen("lstringLen", n, LenPlus)
	if err != nil {
		return 0, err
	}
	return h + LengthAsVarint(uint64(len(s))) + len(s), nil
}

func lbytesLen(val interface{}, n uint64) (int, error) {
	b, err := coerceToBytes("lbytesLen", val)
	if err != nil {
		return 0, err
	}
	h, err := hdrLen("lbytesLen", n, LenPlus)
	if err != nil {
		return 0, err
	}
	return h + LenPlusSize(b), nil
}

// lmsgLen needs the sub-message length from the schema layer.
func lmsgLen(val interface{}, n uint64) (int, error) {
	m, ok := val.(WireLener)
	if !ok {
		return 0, typeMismatch("lmsgLen", "expected a value with WireLen, got %T", val)
	}
	l := m.WireLen()
	if l < 0 {
		return 0, newError(KindInvalidSize, "lmsgLen", "wire length %d", l)
	}
	h, err := hdrLen("lmsgLen", n, LenPlus)
	if err != nil {
		return 0, err
	}
	return h + LengthAsVarint(uint64(l)) + l, nil
}
