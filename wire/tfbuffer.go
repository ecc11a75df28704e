package wire

import "fmt"

// FieldSpec maps a field number to its declared logical type. Message
// definitions in the schema package implement it.
type FieldSpec interface {
	FieldTypeNdx(fieldNumber uint64) (FieldType, error)
}

// TFBuffer is a buffer bound to the FieldSpec that types its fields.
type TFBuffer struct {
	*Buffer
	spec FieldSpec
}

func newTFBuffer(op string, spec FieldSpec, buf *Buffer) (TFBuffer, error) {
	if spec == nil {
		return TFBuffer{}, newError(KindTypeMismatch, op, "no field spec")
	}
	if buf == nil {
		return TFBuffer{}, newError(KindInvalidSize, op, "no buffer")
	}
	return TFBuffer{Buffer: buf, spec: spec}, nil
}

// Spec returns the FieldSpec the buffer was created with.
func (t TFBuffer) Spec() FieldSpec { return t.spec }

// TFWriter writes fields one at a time, typing each by its field number.
type TFWriter struct {
	TFBuffer

	fieldNumber uint64
	fieldType   FieldType
	value       interface{}
}

// NewTFWriter binds spec to buf for writing.
func NewTFWriter(spec FieldSpec, buf *Buffer) (*TFWriter, error) {
	tb, err := newTFBuffer("NewTFWriter", spec, buf)
	if err != nil {
		return nil, err
	}
	return &TFWriter{TFBuffer: tb}, nil
}

// PutNext writes value as field fieldNumber using the declared type's put
// entry.
func (w *TFWriter) PutNext(fieldNumber uint64, value interface{}) error {
	ft, err := w.spec.FieldTypeNdx(fieldNumber)
	if err != nil {
		return err
	}
	if err := Put(w.Buffer, ft, value, fieldNumber); err != nil {
		return err
	}
	w.fieldNumber = fieldNumber
	w.fieldType = ft
	w.value = value
	return nil
}

// FieldNumber returns the number of the last field written.
func (w *TFWriter) FieldNumber() uint64 { return w.fieldNumber }

// FieldType returns the type of the last field written.
func (w *TFWriter) FieldType() FieldType { return w.fieldType }

// Value returns the last value written.
func (w *TFWriter) Value() interface{} { return w.value }

// noFieldType marks a reader positioned on no declared field.
const noFieldType = MaxFieldType + 1

// TFReader reads fields one at a time. After a successful GetNext the
// accessors describe the field just read.
type TFReader struct {
	TFBuffer

	fieldNumber uint64
	fieldType   FieldType
	primType    PrimType
	value       interface{}
	known       bool
}

// NewTFReader binds spec to buf for reading. Reads run from the current
// position to the limit, so a buffer that was just written must be flipped
// first.
func NewTFReader(spec FieldSpec, buf *Buffer) (*TFReader, error) {
	tb, err := newTFBuffer("NewTFReader", spec, buf)
	if err != nil {
		return nil, err
	}
	return &TFReader{TFBuffer: tb, fieldType: noFieldType}, nil
}

// HasNext reports whether unread bytes remain before the limit.
func (r *TFReader) HasNext() bool { return r.position < r.limit }

// GetNext reads the next field header and payload. Fields the FieldSpec does not
// declare are skipped when SkipUnknownFields is set; Known then reports
// false and Value is nil.
func (r *TFReader) GetNext() error {
	start := r.position
	pt, n, err := ReadFieldHeader(r.Buffer)
	if err != nil {
		return err
	}
	r.fieldNumber, r.primType, r.value, r.known = n, pt, nil, false
	r.fieldType = noFieldType

	ft, err := r.spec.FieldTypeNdx(n)
	if err != nil {
		cfg := currentConfig()
		if !cfg.SkipUnknownFields {
			r.position = start
			return err
		}
		if err := SkipField(r.Buffer, pt); err != nil {
			r.position = start
			return err
		}
		return nil
	}
	r.fieldType = ft

	want, err := ft.PrimType()
	if err != nil {
		r.position = start
		return err
	}
	if want != pt && currentConfig().StrictWireType {
		r.position = start
		return newError(KindTypeMismatch, "GetNext",
			"field %d declared %s (%s) but header carries %s", n, ft, want, pt)
	}

	v, err := Get(r.Buffer, ft)
	if err != nil {
		r.position = start
		return err
	}
	r.value = v
	r.known = true
	return nil
}

// FieldNumber returns the number of the field last read.
func (r *TFReader) FieldNumber() uint64 { return r.fieldNumber }

// FieldType returns the declared type of the field last read. It is not
// Valid until a known field has been read.
func (r *TFReader) FieldType() FieldType { return r.fieldType }

// PrimType returns the primitive type from the last header read.
func (r *TFReader) PrimType() PrimType { return r.primType }

// Value returns the decoded value of the field last read.
func (r *TFReader) Value() interface{} { return r.value }

// Known reports whether the field last read was declared by the FieldSpec.
func (r *TFReader) Known() bool { return r.known }

// SkipField advances past one payload of primitive type pt.
func SkipField(buf *Buffer, pt PrimType) error {
	switch pt {
	case Varint:
		return SkipVarint(buf)
	case LenPlus:
		return SkipLenPlus(buf)
	case PackedVarint:
		return newError(KindUnimplemented, "SkipField", "packed varints are not implemented")
	}
	n, ok := pt.FixedWidth()
	if !ok {
		return newError(KindOutOfRange, "SkipField", "primitive type %d", pt)
	}
	if err := buf.ensureReadable("SkipField", n); err != nil {
		return err
	}
	buf.position += n
	return nil
}

// ReadRawField reads one header and its payload without a schema. It
// returns nil, nil at the limit.
func ReadRawField(buf *Buffer) (*RawValue, error) {
	if buf.position >= buf.limit {
		return nil, nil
	}
	start := buf.position
	pt, n, err := ReadFieldHeader(buf)
	if err != nil {
		return nil, err
	}
	data, err := readRawValue(buf, pt)
	if err != nil {
		buf.position = start
		return nil, fmt.Errorf("field %d: %w", n, err)
	}
	return &RawValue{
		FieldNumber: n,
		PrimType:    pt,
		Data:        data,
	}, nil
}

// readRawValue decodes a payload without type information
func readRawValue(buf *Buffer, pt PrimType) (interface{}, error) {
	switch pt {
	case Varint:
		return ReadRawVarint(buf)
	case B32:
		return ReadRawB32(buf)
	case B64:
		return ReadRawB64(buf)
	case LenPlus:
		return ReadRawLenPlus(buf)
	case B128:
		return ReadRawB128(buf)
	case B160:
		return ReadRawB160(buf)
	case B256:
		return ReadRawB256(buf)
	default:
		return nil, newError(KindUnimplemented, "ReadRawField", "primitive type %s", pt)
	}
}
