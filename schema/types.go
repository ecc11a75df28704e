package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anirudhraja/fieldz/wire"
)

// ProtoRepo represents a collection of loaded schema files.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "common/digest.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message represents a message definition. A *Message types its fields for
// wire.TFReader and wire.TFWriter.
type Message struct {
	Name        string     `json:"name"`         // "Record"
	FullName    string     `json:"full_name"`    // "demo.v1.Record"
	Fields      []*Field   `json:"fields"`       // message fields
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
}

// Field represents a message field
type Field struct {
	Name     string         `json:"name"`      // "user_name"
	Number   uint64         `json:"number"`    // 1
	Label    FieldLabel     `json:"label"`     // optional, required, repeated
	Type     wire.FieldType `json:"type"`      // logical field type
	TypeName string         `json:"type_name"` // declared type as written, e.g. "Status", "fbytes20"
	TypeRef  string         `json:"type_ref"`  // fully qualified enum or message name, once resolved
	JsonName string         `json:"json_name"` // JSON field name
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// IsRepeated reports whether the field may occur more than once.
func (f *Field) IsRepeated() bool { return f.Label == LabelRepeated }

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "Status"
	FullName   string       `json:"full_name"`   // "demo.v1.Status"
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}

// FieldTypeNdx returns the declared type of field number n.
func (m *Message) FieldTypeNdx(n uint64) (wire.FieldType, error) {
	f := m.FieldByNumber(n)
	if f == nil {
		return 0, fmt.Errorf("message %s has no field %d: %w", m.Name, n, wire.ErrInvalidFieldType)
	}
	return f.Type, nil
}

// FieldByNumber returns the field numbered n, or nil.
func (m *Message) FieldByNumber(n uint64) *Field {
	for _, f := range m.Fields {
		if f.Number == n {
			return f
		}
	}
	return nil
}

// FieldByName looks a field up by its declared name or its JSON name.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	for _, f := range m.Fields {
		if f.JsonName != "" && f.JsonName == name {
			return f
		}
	}
	return nil
}

// SortedFields returns the fields in ascending field-number order.
func (m *Message) SortedFields() []*Field {
	out := make([]*Field, len(m.Fields))
	copy(out, m.Fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Validate checks that field numbers are unique, fit a field header and
// that every field has a known logical type.
func (m *Message) Validate() error {
	seen := make(map[uint64]string, len(m.Fields))
	for _, f := range m.Fields {
		if f.Number > wire.MaxFieldNumber {
			return fmt.Errorf("message %s: field %s: number %d overflows header", m.Name, f.Name, f.Number)
		}
		if prev, ok := seen[f.Number]; ok {
			return fmt.Errorf("message %s: fields %s and %s share number %d", m.Name, prev, f.Name, f.Number)
		}
		seen[f.Number] = f.Name
		if !f.Type.Valid() {
			return fmt.Errorf("message %s: field %s: invalid field type %d", m.Name, f.Name, f.Type)
		}
	}
	return nil
}

// ValueByName returns the number of the named value.
func (e *Enum) ValueByName(name string) (int32, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Number, true
		}
	}
	return 0, false
}

// ValueByNumber returns the first value numbered n, or nil.
func (e *Enum) ValueByNumber(n int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == n {
			return v
		}
	}
	return nil
}

// JSONName converts a snake_case field name to lowerCamelCase.
func JSONName(s string) string {
	if s == "" {
		return s
	}
	if !strings.Contains(s, "_") {
		// ensure lower first char
		if s[0] >= 'A' && s[0] <= 'Z' {
			return string(s[0]-'A'+'a') + s[1:]
		}
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	if len(out) > 0 && out[0] >= 'A' && out[0] <= 'Z' {
		out[0] = out[0] - 'A' + 'a'
	}
	return string(out)
}
