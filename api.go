package fieldz

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/fieldz/registry"
	"github.com/anirudhraja/fieldz/schema"
	"github.com/anirudhraja/fieldz/wire"
)

// ===== SCHEMA-AWARE API =====

// Fieldz marshals and parses map[string]interface{} records against
// message definitions loaded from .proto files.
type Fieldz struct {
	registry *registry.Registry
	logger   zerolog.Logger
}

// Option configures a Fieldz.
type Option func(*Fieldz)

// WithLogger sets the logger shared with the schema registry.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fieldz) { f.logger = l }
}

// NewFieldz creates a Fieldz whose imports resolve against protoDirs.
func NewFieldz(protoDirs []string, opts ...Option) *Fieldz {
	f := &Fieldz{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	f.registry = registry.NewRegistry(protoDirs, registry.WithLogger(f.logger))
	return f
}

// LoadSchemaFromFile loads protoPath (relative to a proto directory) and
// its imports.
func (f *Fieldz) LoadSchemaFromFile(protoPath string) error {
	if err := f.registry.LoadSchemaFromFile(protoPath); err != nil {
		return err
	}
	f.logger.Debug().Str("schema", protoPath).Int("messages", len(f.registry.ListMessages())).Msg("schema loaded")
	return nil
}

// LoadSchema loads a .proto file or every .proto file under a directory.
func (f *Fieldz) LoadSchema(path string) error {
	return f.registry.LoadSchema(path)
}

// Marshal encodes data as messageType. Fields are written in ascending
// field-number order into a buffer sized exactly from the len table.
func (f *Fieldz) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	msg, err := f.lookupMessage(messageType)
	if err != nil {
		return nil, err
	}
	return f.marshalMessage(msg, data)
}

// Size returns the number of bytes Marshal would produce.
func (f *Fieldz) Size(data map[string]interface{}, messageType string) (int, error) {
	msg, err := f.lookupMessage(messageType)
	if err != nil {
		return 0, err
	}
	return f.sizeMessage(msg, data)
}

// lookupMessage resolves a top-level message type. Ambiguous short names
// are reported as such rather than as missing.
func (f *Fieldz) lookupMessage(messageType string) (*schema.Message, error) {
	msg, err := f.registry.GetMessage(messageType)
	if errors.Is(err, registry.ErrAmbiguousName) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}
	return msg, nil
}

// Parse decodes data as messageType. Fields the message does not declare
// are skipped; repeated fields come back as []interface{}.
func (f *Fieldz) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	msg, err := f.lookupMessage(messageType)
	if err != nil {
		return nil, err
	}
	return f.parseMessage(msg, data)
}

// ParseRaw decodes data without a schema.
func (f *Fieldz) ParseRaw(data []byte) ([]*wire.RawValue, error) {
	buf, err := wire.WrapChannel(data, len(data))
	if err != nil {
		return nil, err
	}
	var out []*wire.RawValue
	for {
		rv, err := wire.ReadRawField(buf)
		if err != nil {
			return nil, err
		}
		if rv == nil {
			return out, nil
		}
		out = append(out, rv)
	}
}

// ===== ENCODING =====

// fieldValue pairs a declared field with the caller's value for it.
type fieldValue struct {
	field  *schema.Field
	values []interface{}
}

// collect matches data keys to fields and orders them by field number.
func (f *Fieldz) collect(msg *schema.Message, data map[string]interface{}) ([]fieldValue, error) {
	out := make([]fieldValue, 0, len(data))
	for key, val := range data {
		field := msg.FieldByName(key)
		if field == nil {
			return nil, fmt.Errorf("message %s has no field %q", msg.Name, key)
		}
		if val == nil {
			continue
		}
		values := []interface{}{val}
		if field.IsRepeated() {
			var err error
			if values, err = toSlice(val); err != nil {
				return nil, wire.WrapEncodingFieldError(err, field.Name)
			}
		}
		out = append(out, fieldValue{field: field, values: values})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].field.Number < out[j].field.Number })
	for i := 1; i < len(out); i++ {
		if out[i].field == out[i-1].field {
			return nil, fmt.Errorf("message %s: field %s given twice", msg.Name, out[i].field.Name)
		}
	}
	return out, nil
}

func toSlice(val interface{}) ([]interface{}, error) {
	if s, ok := val.([]interface{}); ok {
		return s, nil
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("repeated field needs a list, got %T", val)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// nestedLen carries a sub-message length to the lmsg len entry.
type nestedLen int

func (n nestedLen) WireLen() int { return int(n) }

func (f *Fieldz) sizeMessage(msg *schema.Message, data map[string]interface{}) (int, error) {
	fields, err := f.collect(msg, data)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, fv := range fields {
		for _, v := range fv.values {
			n, err := f.sizeField(fv.field, v)
			if err != nil {
				return 0, wire.WrapEncodingFieldError(err, fv.field.Name)
			}
			total += n
		}
	}
	return total, nil
}

func (f *Fieldz) sizeField(field *schema.Field, v interface{}) (int, error) {
	switch field.Type {
	case wire.LMsg:
		sub, m, err := f.nested(field, v)
		if err != nil {
			return 0, err
		}
		n, err := f.sizeMessage(sub, m)
		if err != nil {
			return 0, err
		}
		return wire.Len(wire.LMsg, nestedLen(n), field.Number)
	case wire.VEnum:
		num, err := f.enumNumber(field, v)
		if err != nil {
			return 0, err
		}
		return wire.Len(wire.VEnum, num, field.Number)
	}
	return wire.Len(field.Type, v, field.Number)
}

func (f *Fieldz) marshalMessage(msg *schema.Message, data map[string]interface{}) ([]byte, error) {
	size, err := f.sizeMessage(msg, data)
	if err != nil {
		return nil, err
	}
	buf, err := wire.NewChannel(size)
	if err != nil {
		return nil, err
	}
	w, err := wire.NewTFWriter(msg, buf)
	if err != nil {
		return nil, err
	}
	fields, err := f.collect(msg, data)
	if err != nil {
		return nil, err
	}
	for _, fv := range fields {
		for _, v := range fv.values {
			if err := f.putField(w, fv.field, v); err != nil {
				return nil, wire.WrapEncodingFieldError(err, fv.field.Name)
			}
		}
	}
	if buf.Position() != size {
		return nil, fmt.Errorf("message %s: wrote %d bytes, expected %d", msg.Name, buf.Position(), size)
	}
	return buf.Bytes(), nil
}

func (f *Fieldz) putField(w *wire.TFWriter, field *schema.Field, v interface{}) error {
	switch field.Type {
	case wire.LMsg:
		sub, m, err := f.nested(field, v)
		if err != nil {
			return err
		}
		b, err := f.marshalMessage(sub, m)
		if err != nil {
			return err
		}
		return wire.WriteLenPlusField(w.Buffer, b, field.Number)
	case wire.VEnum:
		num, err := f.enumNumber(field, v)
		if err != nil {
			return err
		}
		v = num
	}
	return w.PutNext(field.Number, v)
}

// nested resolves the sub-message definition of an lmsg field.
func (f *Fieldz) nested(field *schema.Field, v interface{}) (*schema.Message, map[string]interface{}, error) {
	if field.TypeRef == "" {
		return nil, nil, fmt.Errorf("field %s has no message type", field.Name)
	}
	sub, err := f.registry.GetMessage(field.TypeRef)
	if err != nil {
		return nil, nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("message value must be map[string]interface{}, got %T", v)
	}
	return sub, m, nil
}

// enumNumber accepts an enum value name or a number.
func (f *Fieldz) enumNumber(field *schema.Field, v interface{}) (interface{}, error) {
	name, ok := v.(string)
	if !ok {
		return v, nil
	}
	if field.TypeRef == "" {
		return nil, fmt.Errorf("field %s: enum name %q given but the field has no enum type", field.Name, name)
	}
	enum, err := f.registry.GetEnum(field.TypeRef)
	if err != nil {
		return nil, err
	}
	num, ok := enum.ValueByName(name)
	if !ok {
		return nil, fmt.Errorf("enum %s has no value %q", enum.Name, name)
	}
	return num, nil
}

// ===== DECODING =====

func (f *Fieldz) parseMessage(msg *schema.Message, data []byte) (map[string]interface{}, error) {
	buf, err := wire.WrapChannel(data, len(data))
	if err != nil {
		return nil, err
	}
	r, err := wire.NewTFReader(msg, buf)
	if err != nil {
		return nil, err
	}

	result := make(map[string]interface{})
	repeatedCollector := make(map[string][]interface{})
	for r.HasNext() {
		field, value, err := f.nextField(r, msg)
		if err != nil {
			if field != nil {
				return nil, wire.WrapDecodingFieldError(err, field.Name)
			}
			return nil, fmt.Errorf("failed to decode message %s: %w", msg.Name, err)
		}
		if field == nil {
			// unknown field, skipped
			continue
		}
		if field.IsRepeated() {
			repeatedCollector[field.Name] = append(repeatedCollector[field.Name], value)
		} else {
			result[field.Name] = value
		}
	}

	for fieldName, repeatedData := range repeatedCollector {
		result[fieldName] = repeatedData
	}
	return result, nil
}

// nextField reads one field. Nested messages are read here; every other
// type goes through the reader's dispatch.
func (f *Fieldz) nextField(r *wire.TFReader, msg *schema.Message) (*schema.Field, interface{}, error) {
	start := r.Position()
	pt, n, err := wire.ReadFieldHeader(r.Buffer)
	if err != nil {
		return nil, nil, err
	}
	field := msg.FieldByNumber(n)

	if field != nil && field.Type == wire.LMsg {
		if pt != wire.LenPlus {
			return field, nil, fmt.Errorf("field %d: nested message carried as %s: %w", n, pt, wire.ErrTypeMismatch)
		}
		b, err := wire.ReadRawLenPlus(r.Buffer)
		if err != nil {
			return field, nil, err
		}
		sub, err := f.registry.GetMessage(field.TypeRef)
		if err != nil {
			return field, nil, err
		}
		value, err := f.parseMessage(sub, b)
		return field, value, err
	}

	if err := r.SetPosition(start); err != nil {
		return nil, nil, err
	}
	if err := r.GetNext(); err != nil {
		return field, nil, err
	}
	if !r.Known() {
		return nil, nil, nil
	}
	return field, f.decodedValue(field, r.Value()), nil
}

// decodedValue maps enum numbers back to names when the enum knows them.
func (f *Fieldz) decodedValue(field *schema.Field, v interface{}) interface{} {
	if field.Type != wire.VEnum || field.TypeRef == "" {
		return v
	}
	enum, err := f.registry.GetEnum(field.TypeRef)
	if err != nil {
		return v
	}
	num, ok := v.(uint16)
	if !ok {
		return v
	}
	if ev := enum.ValueByNumber(int32(num)); ev != nil {
		return ev.Name
	}
	return v
}

// ===== REGISTRY ACCESS =====

func (f *Fieldz) Registry() *registry.Registry { return f.registry }
func (f *Fieldz) ListMessages() []string      { return f.registry.ListMessages() }
func (f *Fieldz) ListEnums() []string         { return f.registry.ListEnums() }
