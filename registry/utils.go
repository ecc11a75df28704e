package registry

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/fieldz/schema"
)

// fieldTypeOption names the field option that pins a field's logical type,
// e.g. `bytes digest = 3 [(fieldz.type) = "fbytes20"];`.
const fieldTypeOption = "fieldz.type"

// getAllProtoInfo uses DFS to fetch all the files from all directories passed and stores relevant proto files
func (r *Registry) getAllProtoInfo(protoFile string) ([]string, error) {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	result := make([]string, 0)

	var dfs func(protoFile string) error
	dfs = func(protoFile string) error {
		if _, ok := visited[protoFile]; ok {
			return nil
		}
		visited[protoFile] = struct{}{}
		result = append(result, protoFile)
		protoFileEntity := &protoFileEntity{
			imports: make([]string, 0),
		}
		parsedBody, err := r.parseProtoFile(protoFile)
		if err != nil {
			return err
		}
		for _, body := range parsedBody.ProtoBody {
			switch b := body.(type) {
			case *protoparserparser.Import: // resolve relation for each imports
				importPath := strings.Trim(b.Location, `"`)
				if strings.HasPrefix(importPath, "google/protobuf/") {
					r.logger.Debug().Str("file", protoFile).Str("import", importPath).Msg("skipping well-known import")
					continue
				}
				fullImportPath, err := r.findIfProtoExists(importPath)
				if err != nil {
					return err
				}
				protoFileEntity.imports = append(protoFileEntity.imports, fullImportPath)
				if err = dfs(fullImportPath); err != nil {
					return err
				}
			}
		}
		r.protoEntities[protoFile] = protoFileEntity
		return nil
	}
	// run dfs on the input proto path
	protoPath, err := r.findIfProtoExists(protoFile)
	if err != nil {
		return nil, err
	}
	if err := dfs(protoPath); err != nil {
		return nil, err
	}
	return result, nil
}

// parseProtoFile parses filePath once and caches the result.
func (r *Registry) parseProtoFile(filePath string) (*protoparserparser.Proto, error) {
	if parsed, ok := r.parsedProtoBody[filePath]; ok {
		return parsed, nil
	}
	protoBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	parsed, err := protoparser.Parse(bytes.NewBuffer(protoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	r.parsedProtoBody[filePath] = parsed
	return parsed, nil
}

func (r *Registry) findIfProtoExists(protoPath string) (string, error) {
	var (
		fullPath      string
		fullProtoPath string
		err           error
	)
	protoPath = strings.Trim(protoPath, `"`)
	for _, dir := range r.ProtoDirectories {
		fullPath = path.Join(dir, protoPath)
		// Check if the path exists
		_, err = os.Stat(fullPath)
		if err == nil {
			fullProtoPath = fullPath
			break
		}
	}
	if fullProtoPath == "" {
		return "", fmt.Errorf("path does not exist: %s in %v", protoPath, r.ProtoDirectories)
	}
	if !strings.HasSuffix(fullProtoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file %s", fullProtoPath)
	}
	return fullProtoPath, nil
}

// buildProtoFile converts a parsed file into schema definitions. Field
// types are left unresolved; buildSymbolTable resolves them once every
// file is known.
func (r *Registry) buildProtoFile(filePath string, parsed *protoparserparser.Proto) (*schema.ProtoFile, error) {
	protoFile := &schema.ProtoFile{
		Name:     path.Base(filePath),
		Syntax:   "proto3", // Default
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
	}
	if parsed.Syntax != nil && parsed.Syntax.ProtobufVersion != "" {
		protoFile.Syntax = parsed.Syntax.ProtobufVersion
	}

	// the package may appear anywhere among the top-level statements
	for _, body := range parsed.ProtoBody {
		if pkg, ok := body.(*protoparserparser.Package); ok {
			protoFile.Package = pkg.Name
		}
	}

	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Import:
			protoFile.Imports = append(protoFile.Imports, &schema.Import{
				Path:   strings.Trim(b.Location, `"`),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			msg, err := r.convertMessage(protoFile.Package, b)
			if err != nil {
				return nil, err
			}
			protoFile.Messages = append(protoFile.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(protoFile.Package, b)
			if err != nil {
				return nil, err
			}
			protoFile.Enums = append(protoFile.Enums, enum)
		}
	}
	return protoFile, nil
}

func (r *Registry) convertMessage(prefix string, m *protoparserparser.Message) (*schema.Message, error) {
	msg := &schema.Message{
		Name:     m.MessageName,
		FullName: r.getFullName(prefix, m.MessageName),
	}
	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			label := schema.LabelOptional
			if b.IsRepeated {
				label = schema.LabelRepeated
			} else if b.IsRequired {
				label = schema.LabelRequired
			}
			field, err := r.convertField(msg.FullName, b.FieldName, b.Type, b.FieldNumber, label, b.FieldOptions)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, field)
		case *protoparserparser.Oneof:
			// oneof members are plain optional fields on the wire
			for _, of := range b.OneofFields {
				field, err := r.convertField(msg.FullName, of.FieldName, of.Type, of.FieldNumber, schema.LabelOptional, of.FieldOptions)
				if err != nil {
					return nil, err
				}
				msg.Fields = append(msg.Fields, field)
			}
		case *protoparserparser.MapField:
			return nil, fmt.Errorf("message %s: field %s: map fields are not supported", msg.FullName, b.MapName)
		case *protoparserparser.Message:
			nested, err := r.convertMessage(msg.FullName, b)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Enum:
			enum, err := convertEnum(msg.FullName, b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil
}

func (r *Registry) convertField(msgName, name, typeName, number string, label schema.FieldLabel, options []*protoparserparser.FieldOption) (*schema.Field, error) {
	n, err := strconv.ParseUint(number, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("message %s: field %s: bad field number %q", msgName, name, number)
	}
	field := &schema.Field{
		Name:     name,
		Number:   n,
		Label:    label,
		TypeName: typeName,
		JsonName: schema.JSONName(name),
	}
	for _, opt := range options {
		switch optionName(opt.OptionName) {
		case fieldTypeOption:
			r.overrides[field] = unquote(opt.Constant)
		case "json_name":
			field.JsonName = unquote(opt.Constant)
		}
	}
	return field, nil
}

func convertEnum(prefix string, e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{
		Name:     e.EnumName,
		FullName: prefix + "." + e.EnumName,
	}
	if prefix == "" {
		enum.FullName = e.EnumName
	}
	for _, body := range e.EnumBody {
		switch b := body.(type) {
		case *protoparserparser.EnumField:
			n, err := strconv.ParseInt(b.Number, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("enum %s: value %s: bad number %q", enum.FullName, b.Ident, b.Number)
			}
			enum.Values = append(enum.Values, &schema.EnumValue{
				Name:   b.Ident,
				Number: int32(n),
			})
		case *protoparserparser.Option:
			if optionName(b.OptionName) == "allow_alias" && unquote(b.Constant) == "true" {
				enum.AllowAlias = true
			}
		}
	}
	return enum, nil
}

// optionName strips the parentheses that mark a custom option.
func optionName(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), ")")
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

/*
This helper function will return the entity for any referenced type ,
Be it top/file,nested or imported entities.If not found will return an error
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, error) {
	// check if fully qualifed prefixed by dot
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, allResolvedEntities)
	}
	// try resolving from inner entities up till the parent package
	if result, ok := splitNameAndCheck(typeName, prefix, allResolvedEntities); ok {
		return result, nil
	}
	//  check if the entity is referenced to other packages via packageName
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck splits the prefixName and tries to append the typeName and find the entity for resolution
// it also tries the find the entities defined using relative path
func splitNameAndCheck(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, bool) {
	prefixSplit := strings.Split(prefix, ".")

	for len(prefixSplit) > 0 && prefixSplit[0] != "" {
		entityName := strings.Join(prefixSplit, ".") + "." + typeName
		if _, ok := allResolvedEntities[entityName]; ok {
			return entityName, true
		}
		// Omit the last element in each iteration as we go level above to outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, allResolvedEntities map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified (.) type name: %s", typeName)
}
