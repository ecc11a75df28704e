package registry

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/fieldz/schema"
	"github.com/anirudhraja/fieldz/wire"
)

const recordProto = `syntax = "proto3";
package demo.v1;

import "common/digest.proto";

enum Status {
  UNKNOWN = 0;
  ACTIVE = 1;
  RETIRED = 2;
}

message Record {
  bool active = 1;
  Status status = 2;
  uint32 count = 3;
  sint32 delta = 4;
  uint64 total = 5;
  sint64 offset = 6;
  fixed32 crc = 7;
  sfixed32 bias = 8;
  float ratio = 9;
  fixed64 stamp = 10;
  sfixed64 skew = 11;
  double score = 12;
  string user_name = 13;
  bytes payload = 14;
  demo.common.Digest digest = 15;
  bytes iv = 16 [(fieldz.type) = "fbytes16"];
  fbytes20 sha1 = 17;
  bytes sha3 = 18 [(fieldz.type) = "fbytes32", json_name = "sha3_256"];
  repeated string tags = 19;

  message Inner {
    Kind kind = 1;
    enum Kind {
      NONE = 0;
      SOME = 1;
    }
  }
  Inner inner = 20;
}
`

const digestProto = `syntax = "proto3";
package demo.common;

message Digest {
  fbytes32 value = 1;
}
`

func writeProto(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func loadRecord(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	writeProto(t, dir, "demo/record.proto", recordProto)
	writeProto(t, dir, "common/digest.proto", digestProto)

	r := NewRegistry([]string{dir})
	require.NoError(t, r.LoadSchemaFromFile("demo/record.proto"))
	return r
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry([]string{"a", "b"})
	require.NotNil(t, r)
	assert.Equal(t, []string{"a", "b"}, r.ProtoDirectories)
	assert.Empty(t, r.ListMessages())
	assert.Empty(t, r.ListEnums())
	assert.NotNil(t, r.Repo())
}

func TestLoadSchemaFromFile_ResolvesImports(t *testing.T) {
	r := loadRecord(t)

	assert.Equal(t, []string{"demo.common.Digest", "demo.v1.Record", "demo.v1.Record.Inner"}, r.ListMessages())
	assert.Equal(t, []string{"demo.v1.Record.Inner.Kind", "demo.v1.Status"}, r.ListEnums())
	assert.Len(t, r.Repo().ProtoFiles, 2)

	for _, f := range r.Repo().ProtoFiles {
		if f.Name == "record.proto" {
			require.Len(t, f.Imports, 1)
			assert.Equal(t, "common/digest.proto", f.Imports[0].Path)
			assert.Equal(t, "demo.v1", f.Package)
			assert.Equal(t, "proto3", f.Syntax)
		}
	}
}

func TestFieldTypeResolution(t *testing.T) {
	r := loadRecord(t)
	msg, err := r.GetMessage("demo.v1.Record")
	require.NoError(t, err)

	want := map[string]wire.FieldType{
		"active":    wire.VBool,
		"status":    wire.VEnum,
		"count":     wire.VUint32,
		"delta":     wire.VSint32,
		"total":     wire.VUint64,
		"offset":    wire.VSint64,
		"crc":       wire.FUint32,
		"bias":      wire.FSint32,
		"ratio":     wire.FFloat,
		"stamp":     wire.FUint64,
		"skew":      wire.FSint64,
		"score":     wire.FDouble,
		"user_name": wire.LString,
		"payload":   wire.LBytes,
		"digest":    wire.LMsg,
		"iv":        wire.FBytes16,
		"sha1":      wire.FBytes20,
		"sha3":      wire.FBytes32,
		"tags":      wire.LString,
		"inner":     wire.LMsg,
	}
	require.Len(t, msg.Fields, len(want))
	for name, ft := range want {
		f := msg.FieldByName(name)
		require.NotNil(t, f, name)
		assert.Equal(t, ft, f.Type, name)
	}

	assert.Equal(t, "demo.v1.Status", msg.FieldByName("status").TypeRef)
	assert.Equal(t, "demo.common.Digest", msg.FieldByName("digest").TypeRef)
	assert.Equal(t, "demo.v1.Record.Inner", msg.FieldByName("inner").TypeRef)
	assert.Equal(t, "userName", msg.FieldByName("user_name").JsonName)
	assert.Equal(t, "sha3_256", msg.FieldByName("sha3").JsonName)
	assert.True(t, msg.FieldByName("tags").IsRepeated())

	inner, err := r.GetMessage("Record.Inner")
	require.NoError(t, err)
	require.Len(t, inner.Fields, 1)
	assert.Equal(t, wire.VEnum, inner.Fields[0].Type)
	assert.Equal(t, "demo.v1.Record.Inner.Kind", inner.Fields[0].TypeRef)

	// a loaded message is a wire.FieldSpec
	ft, err := msg.FieldTypeNdx(17)
	require.NoError(t, err)
	assert.Equal(t, wire.FBytes20, ft)
}

func TestGetMessageAndEnum(t *testing.T) {
	r := loadRecord(t)

	msg, err := r.GetMessage("Record")
	require.NoError(t, err)
	assert.Equal(t, "demo.v1.Record", msg.FullName)

	_, err = r.GetMessage("Missing")
	assert.ErrorContains(t, err, "message not found")

	enum, err := r.GetEnum("Status")
	require.NoError(t, err)
	n, ok := enum.ValueByName("RETIRED")
	assert.True(t, ok)
	assert.Equal(t, int32(2), n)

	_, err = r.GetEnum("Color")
	assert.ErrorContains(t, err, "enum not found")
}

func TestLoadSchema_Errors(t *testing.T) {
	r := NewRegistry(nil)
	assert.ErrorContains(t, r.LoadSchema("/nonexistent/path"), "path does not exist")

	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hi"), 0o644))
	assert.ErrorContains(t, r.LoadSchema(txt), "is not a .proto file")

	r = NewRegistry([]string{dir})
	assert.ErrorContains(t, r.LoadSchemaFromFile("missing.proto"), "path does not exist")
}

func TestLoadSchema_Directory(t *testing.T) {
	dir := t.TempDir()
	writeProto(t, dir, "a/one.proto", `syntax = "proto3";
package one;
message A { uint32 x = 1; }
`)
	writeProto(t, dir, "b/two.proto", `syntax = "proto3";
package two;
message B { one.A a = 1; sint64 y = 2; }
`)
	writeProto(t, dir, "b/README.md", "not a schema")

	r := NewRegistry(nil)
	require.NoError(t, r.LoadSchema(dir))
	assert.Equal(t, []string{"one.A", "two.B"}, r.ListMessages())

	b, err := r.GetMessage("two.B")
	require.NoError(t, err)
	assert.Equal(t, wire.LMsg, b.FieldByNumber(1).Type)
	assert.Equal(t, "one.A", b.FieldByNumber(1).TypeRef)
}

func TestGetAmbiguousShortName(t *testing.T) {
	dir := t.TempDir()
	writeProto(t, dir, "a/one.proto", `syntax = "proto3";
package one;
enum Kind { K_NONE = 0; }
message Item { uint32 x = 1; }
`)
	writeProto(t, dir, "b/two.proto", `syntax = "proto3";
package two;
enum Kind { K_ZERO = 0; }
message Item { sint64 y = 1; }
message Only { Item item = 1; }
`)

	r := NewRegistry(nil)
	require.NoError(t, r.LoadSchema(dir))

	_, err := r.GetMessage("Item")
	assert.ErrorIs(t, err, ErrAmbiguousName)
	assert.ErrorContains(t, err, "one.Item, two.Item")

	_, err = r.GetEnum("Kind")
	assert.ErrorIs(t, err, ErrAmbiguousName)
	assert.ErrorContains(t, err, "one.Kind, two.Kind")

	item, err := r.GetMessage("two.Item")
	require.NoError(t, err)
	assert.Equal(t, wire.VSint64, item.FieldByNumber(1).Type)

	only, err := r.GetMessage("Only")
	require.NoError(t, err)
	assert.Equal(t, "two.Item", only.FieldByNumber(1).TypeRef)

	enum, err := r.GetEnum("one.Kind")
	require.NoError(t, err)
	assert.Equal(t, "K_NONE", enum.ValueByNumber(0).Name)
}

func TestRegisterMessageAmbiguity(t *testing.T) {
	r := NewRegistry(nil)
	for _, pkg := range []string{"a", "b"} {
		msg := &schema.Message{
			Name:   "Record",
			Fields: []*schema.Field{{Name: "active", Number: 1, Type: wire.VBool}},
		}
		require.NoError(t, r.RegisterMessage(pkg, msg))
	}

	_, err := r.GetMessage("Record")
	assert.ErrorIs(t, err, ErrAmbiguousName)

	msg, err := r.GetMessage("b.Record")
	require.NoError(t, err)
	assert.Equal(t, "b.Record", msg.FullName)
}

func TestLoadSchema_RejectsUnsupported(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "int32 has no logical type",
			content: "syntax = \"proto3\";\nmessage M { int32 id = 1; }\n",
			errText: "use sint32",
		},
		{
			name:    "unknown type",
			content: "syntax = \"proto3\";\nmessage M { Nowhere n = 1; }\n",
			errText: "unable to resolve type name: Nowhere",
		},
		{
			name:    "bad option symbol",
			content: "syntax = \"proto3\";\nmessage M { bytes b = 1 [(fieldz.type) = \"fbytes64\"]; }\n",
			errText: "fieldz.type",
		},
		{
			name:    "duplicate numbers",
			content: "syntax = \"proto3\";\nmessage M { bool a = 1; bool b = 1; }\n",
			errText: "share number 1",
		},
		{
			name:    "map field",
			content: "syntax = \"proto3\";\nmessage M { map<string, string> labels = 1; }\n",
			errText: "map fields are not supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			p := writeProto(t, dir, "m.proto", tt.content)
			err := NewRegistry(nil).LoadSchema(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestOneofFieldsAreFlattened(t *testing.T) {
	dir := t.TempDir()
	p := writeProto(t, dir, "o.proto", `syntax = "proto3";
message Choice {
  oneof pick {
    string name = 1;
    uint64 id = 2;
  }
}
`)
	r := NewRegistry(nil)
	require.NoError(t, r.LoadSchema(p))
	msg, err := r.GetMessage("Choice")
	require.NoError(t, err)
	require.Len(t, msg.Fields, 2)
	assert.Equal(t, wire.LString, msg.FieldByNumber(1).Type)
	assert.Equal(t, wire.VUint64, msg.FieldByNumber(2).Type)
}

func TestEnumAllowAlias(t *testing.T) {
	dir := t.TempDir()
	p := writeProto(t, dir, "e.proto", `syntax = "proto3";
enum Mode {
  option allow_alias = true;
  OFF = 0;
  DISABLED = 0;
  ON = 1;
}
`)
	r := NewRegistry(nil)
	require.NoError(t, r.LoadSchema(p))
	e, err := r.GetEnum("Mode")
	require.NoError(t, err)
	assert.True(t, e.AllowAlias)
	assert.Len(t, e.Values, 3)
	assert.Equal(t, "OFF", e.ValueByNumber(0).Name)
}

func TestRegisterMessage(t *testing.T) {
	r := NewRegistry(nil)
	msg := &schema.Message{
		Name: "Block",
		Fields: []*schema.Field{
			{Name: "iv", Number: 1, Type: wire.FBytes16},
		},
		NestedTypes: []*schema.Message{{Name: "Part"}},
	}
	require.NoError(t, r.RegisterMessage("crypto", msg))
	assert.Equal(t, []string{"crypto.Block", "crypto.Block.Part"}, r.ListMessages())

	bad := &schema.Message{
		Name:   "Bad",
		Fields: []*schema.Field{{Name: "x", Number: 1, Type: wire.FieldType(99)}},
	}
	assert.Error(t, r.RegisterMessage("", bad))
}

func TestLoadLogsAtDebug(t *testing.T) {
	dir := t.TempDir()
	writeProto(t, dir, "common/digest.proto", digestProto)

	var out bytes.Buffer
	logger := zerolog.New(&out).Level(zerolog.DebugLevel)
	r := NewRegistry([]string{dir}, WithLogger(logger))
	require.NoError(t, r.LoadSchemaFromFile("common/digest.proto"))
	assert.Contains(t, out.String(), "loaded proto file")
	assert.Contains(t, out.String(), `"package":"demo.common"`)
}

func TestGetReferencedType(t *testing.T) {
	entities := map[string]struct{}{
		"pkg.Outer":       {},
		"pkg.Outer.Inner": {},
		"pkg.Other":       {},
		"Top":             {},
	}
	tests := []struct {
		typeName string
		prefix   string
		want     string
		wantErr  bool
	}{
		{"Inner", "pkg.Outer", "pkg.Outer.Inner", false},
		{"Other", "pkg.Outer.Inner", "pkg.Other", false},
		{"pkg.Other", "x.Y", "pkg.Other", false},
		{".pkg.Outer", "pkg.Other", "pkg.Outer", false},
		{"Top", "pkg.Outer", "Top", false},
		{".Missing", "pkg", "", true},
		{"Missing", "pkg.Outer", "", true},
	}
	for _, tt := range tests {
		got, err := getReferencedType(tt.typeName, tt.prefix, entities)
		if tt.wantErr {
			assert.Error(t, err, tt.typeName)
			continue
		}
		require.NoError(t, err, tt.typeName)
		assert.Equal(t, tt.want, got, tt.typeName)
	}
}
