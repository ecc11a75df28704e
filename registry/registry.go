package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/fieldz/schema"
	"github.com/anirudhraja/fieldz/wire"
)

// Registry allows us to store the schema of the messages. We look this up
// when we need to parse or marshal a message.
//
// Loading is not safe for concurrent use. Once loading is done, lookups may
// run concurrently.
type Registry struct {
	ProtoDirectories []string

	repo            *schema.ProtoRepo
	messages        map[string]*schema.Message // fully qualified name -> message
	enums           map[string]*schema.Enum    // fully qualified name -> enum
	parsedProtoBody map[string]*protoparserparser.Proto
	protoEntities   map[string]*protoFileEntity
	overrides       map[*schema.Field]string // (fieldz.type) option values
	logger          zerolog.Logger
}

// protoFileEntity records what a parsed file pulled in.
type protoFileEntity struct {
	imports []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used while loading. The default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a registry that resolves imports against protoDirs.
func NewRegistry(protoDirs []string, opts ...Option) *Registry {
	r := &Registry{
		ProtoDirectories: protoDirs,
		repo: &schema.ProtoRepo{
			ProtoFiles: make(map[string]*schema.ProtoFile),
		},
		messages:        make(map[string]*schema.Message),
		enums:           make(map[string]*schema.Enum),
		parsedProtoBody: make(map[string]*protoparserparser.Proto),
		protoEntities:   make(map[string]*protoFileEntity),
		overrides:       make(map[*schema.Field]string),
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadSchema loads a single .proto file, or recursively every .proto file
// under a directory. Imports are not followed; use LoadSchemaFromFile for
// that.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		if err := r.loadSingleProtoFile(protoPath); err != nil {
			return fmt.Errorf("failed to load proto file: %w", err)
		}
	} else {
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			// Skip directories and non-proto files
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}
			if err := r.loadSingleProtoFile(path); err != nil {
				return fmt.Errorf("failed to load proto file %s: %w", path, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	if err := r.buildSymbolTable(); err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	return nil
}

// LoadSchemaFromFile loads protoPath, found relative to one of the proto
// directories, together with everything it imports.
func (r *Registry) LoadSchemaFromFile(protoPath string) error {
	files, err := r.getAllProtoInfo(protoPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", protoPath, err)
	}
	for _, file := range files {
		if err := r.addProtoFile(file, r.parsedProtoBody[file]); err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", file, err)
		}
	}
	if err := r.buildSymbolTable(); err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	return nil
}

// loadSingleProtoFile parses one file and adds it to the repo.
func (r *Registry) loadSingleProtoFile(filePath string) error {
	parsed, err := r.parseProtoFile(filePath)
	if err != nil {
		return err
	}
	return r.addProtoFile(filePath, parsed)
}

func (r *Registry) addProtoFile(filePath string, parsed *protoparserparser.Proto) error {
	if _, ok := r.repo.ProtoFiles[filePath]; ok {
		return nil
	}
	if parsed == nil {
		return fmt.Errorf("%s was not parsed", filePath)
	}
	protoFile, err := r.buildProtoFile(filePath, parsed)
	if err != nil {
		return err
	}
	r.repo.ProtoFiles[filePath] = protoFile
	r.logger.Debug().
		Str("file", filePath).
		Str("package", protoFile.Package).
		Int("messages", len(protoFile.Messages)).
		Int("enums", len(protoFile.Enums)).
		Msg("loaded proto file")
	return nil
}

// buildSymbolTable builds the symbol table from the loaded repository
func (r *Registry) buildSymbolTable() error {
	// Pass 1: Register all message and enum names
	for _, name := range r.sortedFiles() {
		r.registerNames(r.repo.ProtoFiles[name])
	}

	entities := make(map[string]struct{}, len(r.messages)+len(r.enums))
	for name := range r.messages {
		entities[name] = struct{}{}
	}
	for name := range r.enums {
		entities[name] = struct{}{}
	}

	// Pass 2: resolve every field to its logical type
	for _, name := range r.sortedFiles() {
		protoFile := r.repo.ProtoFiles[name]
		for _, msg := range protoFile.Messages {
			if err := r.buildDefinitions(msg, entities); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func (r *Registry) sortedFiles() []string {
	names := make([]string, 0, len(r.repo.ProtoFiles))
	for name := range r.repo.ProtoFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// registerNames registers all message and enum names
func (r *Registry) registerNames(protoFile *schema.ProtoFile) {
	for _, msg := range protoFile.Messages {
		r.registerMessage(msg)
	}
	for _, enum := range protoFile.Enums {
		r.enums[enum.FullName] = enum
	}
}

func (r *Registry) registerMessage(msg *schema.Message) {
	r.messages[msg.FullName] = msg
	for _, nestedMsg := range msg.NestedTypes {
		r.registerMessage(nestedMsg)
	}
	for _, nestedEnum := range msg.NestedEnums {
		r.enums[nestedEnum.FullName] = nestedEnum
	}
}

// buildDefinitions resolves the field types of msg and its nested messages.
func (r *Registry) buildDefinitions(msg *schema.Message, entities map[string]struct{}) error {
	for _, field := range msg.Fields {
		if err := r.resolveFieldType(field, msg.FullName, entities); err != nil {
			return fmt.Errorf("message %s: field %s: %w", msg.FullName, field.Name, err)
		}
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	for _, nestedMsg := range msg.NestedTypes {
		if err := r.buildDefinitions(nestedMsg, entities); err != nil {
			return err
		}
	}
	return nil
}

// protoScalarTypes maps proto scalar names to the logical type that
// encodes them.
var protoScalarTypes = map[string]wire.FieldType{
	"bool":     wire.VBool,
	"uint32":   wire.VUint32,
	"sint32":   wire.VSint32,
	"uint64":   wire.VUint64,
	"sint64":   wire.VSint64,
	"fixed32":  wire.FUint32,
	"sfixed32": wire.FSint32,
	"float":    wire.FFloat,
	"fixed64":  wire.FUint64,
	"sfixed64": wire.FSint64,
	"double":   wire.FDouble,
	"string":   wire.LString,
	"bytes":    wire.LBytes,
}

// int32 and int64 have no logical type: plain varints of negative values
// are what zig-zag exists to avoid.
var unsupportedScalars = map[string]string{
	"int32": "sint32",
	"int64": "sint64",
}

func (r *Registry) resolveFieldType(field *schema.Field, prefix string, entities map[string]struct{}) error {
	if sym, ok := r.overrides[field]; ok {
		ft, err := wire.FieldTypeBySymbol(sym)
		if err != nil {
			return fmt.Errorf("option (%s): %w", fieldTypeOption, err)
		}
		field.Type = ft
		return nil
	}
	if ft, err := wire.FieldTypeBySymbol(field.TypeName); err == nil {
		field.Type = ft
		return nil
	}
	if ft, ok := protoScalarTypes[field.TypeName]; ok {
		field.Type = ft
		return nil
	}
	if alt, ok := unsupportedScalars[field.TypeName]; ok {
		return fmt.Errorf("type %s has no logical field type, use %s", field.TypeName, alt)
	}

	ref, err := getReferencedType(field.TypeName, prefix, entities)
	if err != nil {
		return err
	}
	field.TypeRef = ref
	if _, ok := r.enums[ref]; ok {
		field.Type = wire.VEnum
	} else {
		field.Type = wire.LMsg
	}
	return nil
}

func (r *Registry) getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// Repo returns the loaded files.
func (r *Registry) Repo() *schema.ProtoRepo { return r.repo }

// ErrAmbiguousName is returned when a short name matches more than one
// registered definition.
var ErrAmbiguousName = errors.New("ambiguous name")

// GetMessage retrieves a message definition by name. A name without its
// package prefix resolves only when exactly one message carries it.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}

	// Try without package prefix
	matches := suffixMatches(r.ListMessages(), name)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("message not found: %s", name)
	case 1:
		return r.messages[matches[0]], nil
	default:
		return nil, fmt.Errorf("message %s matches %s: %w", name, strings.Join(matches, ", "), ErrAmbiguousName)
	}
}

// GetEnum retrieves an enum definition by name, with the same short name
// rules as GetMessage.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}

	// Try without package prefix
	matches := suffixMatches(r.ListEnums(), name)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("enum not found: %s", name)
	case 1:
		return r.enums[matches[0]], nil
	default:
		return nil, fmt.Errorf("enum %s matches %s: %w", name, strings.Join(matches, ", "), ErrAmbiguousName)
	}
}

func suffixMatches(fullNames []string, name string) []string {
	var matches []string
	for _, fullName := range fullNames {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, fullName)
		}
	}
	return matches
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	names := make([]string, 0, len(r.messages))
	for name := range r.messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	names := make([]string, 0, len(r.enums))
	for name := range r.enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterMessage adds a message built in code rather than parsed. Its
// fields must already carry their logical types.
func (r *Registry) RegisterMessage(pkg string, msg *schema.Message) error {
	r.qualify(pkg, msg)
	if err := validateTree(msg); err != nil {
		return err
	}
	r.registerMessage(msg)
	return nil
}

// qualify fills in missing full names below prefix.
func (r *Registry) qualify(prefix string, msg *schema.Message) {
	if msg.FullName == "" {
		msg.FullName = r.getFullName(prefix, msg.Name)
	}
	for _, nestedEnum := range msg.NestedEnums {
		if nestedEnum.FullName == "" {
			nestedEnum.FullName = msg.FullName + "." + nestedEnum.Name
		}
	}
	for _, nestedMsg := range msg.NestedTypes {
		r.qualify(msg.FullName, nestedMsg)
	}
}

func validateTree(msg *schema.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	for _, nestedMsg := range msg.NestedTypes {
		if err := validateTree(nestedMsg); err != nil {
			return err
		}
	}
	return nil
}
