package wire

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSpec declares field types by number.
type mapSpec map[uint64]FieldType

func (m mapSpec) FieldTypeNdx(n uint64) (FieldType, error) {
	ft, ok := m[n]
	if !ok {
		return 0, fmt.Errorf("no field %d: %w", n, ErrInvalidFieldType)
	}
	return ft, nil
}

func fullSpec() mapSpec {
	spec := mapSpec{}
	for _, ft := range FieldTypes() {
		if ft == LMsg {
			continue
		}
		spec[uint64(ft)+1] = ft
	}
	return spec
}

func TestTFWriterReaderRoundTrip(t *testing.T) {
	spec := fullSpec()
	values := map[uint64]interface{}{
		uint64(VBool) + 1:    true,
		uint64(VEnum) + 1:    uint16(3),
		uint64(VUint32) + 1:  uint32(0x172f3e4d),
		uint64(VSint32) + 1:  int32(-192),
		uint64(VUint64) + 1:  uint64(0xffffffffffffffff),
		uint64(VSint64) + 1:  int64(-1 << 40),
		uint64(FUint32) + 1:  uint32(0xdeadbeef),
		uint64(FSint32) + 1:  int32(-7),
		uint64(FFloat) + 1:   float32(2.5),
		uint64(FUint64) + 1:  uint64(1 << 60),
		uint64(FSint64) + 1:  int64(-99),
		uint64(FDouble) + 1:  float64(-0.125),
		uint64(LString) + 1:  "fieldz",
		uint64(LBytes) + 1:   []byte{0, 1, 2},
		uint64(FBytes16) + 1: make([]byte, 16),
		uint64(FBytes20) + 1: make([]byte, 20),
		uint64(FBytes32) + 1: make([]byte, 32),
	}

	buf, err := NewWireBuffer(16)
	require.NoError(t, err)
	w, err := NewTFWriter(spec, buf)
	require.NoError(t, err)

	order := make([]uint64, 0, len(values))
	for n := uint64(1); n <= uint64(NumFieldTypes); n++ {
		if _, ok := values[n]; ok {
			order = append(order, n)
		}
	}
	for _, n := range order {
		require.NoError(t, w.PutNext(n, values[n]), "field %d", n)
		assert.Equal(t, n, w.FieldNumber())
		assert.Equal(t, spec[n], w.FieldType())
		assert.Equal(t, values[n], w.Value())
	}

	buf.Flip()
	r, err := NewTFReader(spec, buf)
	require.NoError(t, err)
	for _, n := range order {
		require.True(t, r.HasNext())
		require.NoError(t, r.GetNext(), "field %d", n)
		assert.True(t, r.Known())
		assert.Equal(t, n, r.FieldNumber())
		assert.Equal(t, spec[n], r.FieldType())
		pt, _ := spec[n].PrimType()
		assert.Equal(t, pt, r.PrimType())
		assert.Equal(t, values[n], r.Value(), "field %d", n)
	}
	assert.False(t, r.HasNext())
}

func TestTFWriterUnknownField(t *testing.T) {
	buf, err := NewWireBuffer(16)
	require.NoError(t, err)
	w, err := NewTFWriter(mapSpec{1: VBool}, buf)
	require.NoError(t, err)
	err = w.PutNext(2, true)
	assert.Equal(t, KindInvalidFieldType, KindOf(err))
	assert.True(t, errors.Is(err, ErrInvalidFieldType))
	assert.Equal(t, 0, buf.Position())
}

func TestTFBufferRequiresSpec(t *testing.T) {
	buf, err := NewWireBuffer(16)
	require.NoError(t, err)
	_, err = NewTFWriter(nil, buf)
	assert.Error(t, err)
	_, err = NewTFReader(mapSpec{}, nil)
	assert.Error(t, err)
}

func TestTFReaderSkipsUnknown(t *testing.T) {
	buf, err := NewWireBuffer(64)
	require.NoError(t, err)
	require.NoError(t, WriteVarintField(buf, 77, 9))
	require.NoError(t, WriteB64Field(buf, 1, 10))
	require.NoError(t, WriteLenPlusField(buf, []byte("skip me"), 11))
	require.NoError(t, WriteB160Field(buf, make([]byte, 20), 12))
	require.NoError(t, Put(buf, VUint32, 5, 1))
	buf.Flip()

	r, err := NewTFReader(mapSpec{1: VUint32}, buf)
	require.NoError(t, err)
	assert.False(t, r.FieldType().Valid())
	for i := 0; i < 4; i++ {
		require.NoError(t, r.GetNext())
		assert.False(t, r.Known())
		assert.Nil(t, r.Value())
		assert.False(t, r.FieldType().Valid())
	}
	require.NoError(t, r.GetNext())
	assert.True(t, r.Known())
	assert.Equal(t, uint32(5), r.Value())
	assert.Equal(t, VUint32, r.FieldType())
	assert.False(t, r.HasNext())
}

func TestTFReaderUnknownClearsFieldType(t *testing.T) {
	buf, err := NewWireBuffer(32)
	require.NoError(t, err)
	require.NoError(t, Put(buf, VUint32, 5, 1))
	require.NoError(t, WriteVarintField(buf, 77, 9))
	buf.Flip()

	r, err := NewTFReader(mapSpec{1: VUint32}, buf)
	require.NoError(t, err)
	require.NoError(t, r.GetNext())
	assert.Equal(t, VUint32, r.FieldType())

	require.NoError(t, r.GetNext())
	assert.False(t, r.Known())
	assert.Equal(t, uint64(9), r.FieldNumber())
	assert.False(t, r.FieldType().Valid(), "unknown field must not report the previous type")
}

func TestTFReaderUnknownWhenNotSkipping(t *testing.T) {
	saved := CurrentConfig()
	defer SetConfig(saved)
	cfg := saved
	cfg.SkipUnknownFields = false
	SetConfig(cfg)

	buf, err := NewWireBuffer(16)
	require.NoError(t, err)
	require.NoError(t, WriteVarintField(buf, 1, 9))
	buf.Flip()

	r, err := NewTFReader(mapSpec{1: VBool}, buf)
	require.NoError(t, err)
	require.Error(t, r.GetNext())
	assert.Equal(t, 0, buf.Position())
}

func TestTFReaderWireTypeMismatch(t *testing.T) {
	buf, err := NewWireBuffer(16)
	require.NoError(t, err)
	// declared fuint32, written as a varint
	require.NoError(t, WriteVarintField(buf, 0x01020304, 1))
	buf.Flip()

	r, err := NewTFReader(mapSpec{1: FUint32}, buf)
	require.NoError(t, err)
	err = r.GetNext()
	assert.Equal(t, KindTypeMismatch, KindOf(err))
	assert.Equal(t, 0, buf.Position())

	saved := CurrentConfig()
	defer SetConfig(saved)
	cfg := saved
	cfg.StrictWireType = false
	SetConfig(cfg)

	// lenient mode reads the payload by the declared type
	require.NoError(t, r.GetNext())
	assert.Equal(t, Varint, r.PrimType())
	assert.Equal(t, FUint32, r.FieldType())
}

func TestSkipField(t *testing.T) {
	tests := []struct {
		name string
		pt   PrimType
		data []byte
		want int
	}{
		{"varint", Varint, []byte{0xac, 0x02, 0xff}, 2},
		{"b32", B32, []byte{1, 2, 3, 4, 5}, 4},
		{"b64", B64, make([]byte, 9), 8},
		{"len_plus", LenPlus, []byte{0x02, 'o', 'k', 'x'}, 3},
		{"b128", B128, make([]byte, 16), 16},
		{"b160", B160, make([]byte, 20), 20},
		{"b256", B256, make([]byte, 40), 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := WrapChannel(tt.data, len(tt.data))
			require.NoError(t, err)
			require.NoError(t, SkipField(buf, tt.pt))
			assert.Equal(t, tt.want, buf.Position())
		})
	}

	buf, err := WrapChannel([]byte{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, KindUnimplemented, KindOf(SkipField(buf, PackedVarint)))
	assert.Equal(t, KindBufferUnderrun, KindOf(SkipField(buf, B32)))
	assert.Equal(t, KindOutOfRange, KindOf(SkipField(buf, PrimType(8))))
}

func TestReadRawField(t *testing.T) {
	buf, err := NewWireBuffer(64)
	require.NoError(t, err)
	require.NoError(t, WriteVarintField(buf, 150, 1))
	require.NoError(t, WriteB32Field(buf, 7, 2))
	require.NoError(t, WriteB64Field(buf, 8, 3))
	require.NoError(t, WriteLenPlusField(buf, []byte("hi"), 4))
	require.NoError(t, WriteB128Field(buf, make([]byte, 16), 5))
	buf.Flip()

	want := []RawValue{
		{FieldNumber: 1, PrimType: Varint, Data: uint64(150)},
		{FieldNumber: 2, PrimType: B32, Data: uint32(7)},
		{FieldNumber: 3, PrimType: B64, Data: uint64(8)},
		{FieldNumber: 4, PrimType: LenPlus, Data: []byte("hi")},
		{FieldNumber: 5, PrimType: B128, Data: make([]byte, 16)},
	}
	for _, w := range want {
		rv, err := ReadRawField(buf)
		require.NoError(t, err)
		require.NotNil(t, rv)
		assert.Equal(t, w, *rv)
	}
	rv, err := ReadRawField(buf)
	require.NoError(t, err)
	assert.Nil(t, rv)
}

func TestReadRawFieldTruncated(t *testing.T) {
	buf, err := WrapChannel([]byte{0x0a, 0x01, 0x02}, 3)
	require.NoError(t, err)
	_, err = ReadRawField(buf)
	assert.Equal(t, KindBufferUnderrun, KindOf(err))
	assert.Equal(t, 0, buf.Position())

	buf, err = WrapChannel([]byte{0x09, 0x01}, 2)
	require.NoError(t, err)
	_, err = ReadRawField(buf)
	assert.Equal(t, KindUnimplemented, KindOf(err))
}
