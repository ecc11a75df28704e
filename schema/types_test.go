package schema

import (
	"testing"

	"github.com/anirudhraja/fieldz/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordMessage() *Message {
	return &Message{
		Name: "Record",
		Fields: []*Field{
			{Name: "digest", Number: 7, Type: wire.FBytes20},
			{Name: "active", Number: 1, Type: wire.VBool},
			{Name: "user_name", Number: 3, Type: wire.LString, JsonName: "userName"},
		},
	}
}

func TestMessageFieldSpec(t *testing.T) {
	var spec wire.FieldSpec = recordMessage()

	ft, err := spec.FieldTypeNdx(7)
	require.NoError(t, err)
	assert.Equal(t, wire.FBytes20, ft)

	_, err = spec.FieldTypeNdx(2)
	assert.ErrorContains(t, err, "message Record has no field 2")
	assert.Equal(t, wire.KindInvalidFieldType, wire.KindOf(err))
	assert.ErrorIs(t, err, wire.ErrInvalidFieldType)
}

func TestMessageLookups(t *testing.T) {
	m := recordMessage()

	require.NotNil(t, m.FieldByNumber(3))
	assert.Equal(t, "user_name", m.FieldByNumber(3).Name)
	assert.Nil(t, m.FieldByNumber(99))

	assert.Equal(t, uint64(3), m.FieldByName("user_name").Number)
	assert.Equal(t, uint64(3), m.FieldByName("userName").Number)
	assert.Nil(t, m.FieldByName("missing"))

	var order []uint64
	for _, f := range m.SortedFields() {
		order = append(order, f.Number)
	}
	assert.Equal(t, []uint64{1, 3, 7}, order)
	assert.Equal(t, uint64(7), m.Fields[0].Number, "SortedFields must not reorder the message")
}

func TestMessageValidate(t *testing.T) {
	require.NoError(t, recordMessage().Validate())

	dup := recordMessage()
	dup.Fields = append(dup.Fields, &Field{Name: "other", Number: 1, Type: wire.VUint32})
	assert.ErrorContains(t, dup.Validate(), "share number 1")

	big := recordMessage()
	big.Fields[0].Number = wire.MaxFieldNumber + 1
	assert.ErrorContains(t, big.Validate(), "overflows header")

	bad := recordMessage()
	bad.Fields[0].Type = wire.FieldType(30)
	assert.ErrorContains(t, bad.Validate(), "invalid field type")
}

func TestEnumLookups(t *testing.T) {
	e := &Enum{
		Name: "Status",
		Values: []*EnumValue{
			{Name: "UNKNOWN", Number: 0},
			{Name: "ACTIVE", Number: 1},
		},
	}
	n, ok := e.ValueByName("ACTIVE")
	assert.True(t, ok)
	assert.Equal(t, int32(1), n)
	_, ok = e.ValueByName("GONE")
	assert.False(t, ok)

	assert.Equal(t, "UNKNOWN", e.ValueByNumber(0).Name)
	assert.Nil(t, e.ValueByNumber(5))
}

func TestJSONName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"name", "name"},
		{"Name", "name"},
		{"user_name", "userName"},
		{"iv_block_16", "ivBlock16"},
		{"_private", "private"},
		{"trailing_", "trailing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JSONName(tt.in), "JSONName(%q)", tt.in)
	}
}
