// Command fieldz encodes and decodes fieldz records from the command line.
//
//	fieldz [-config file] [-proto dir]... [-schema file] [-log-level lvl] <command> [args]
//
// Commands:
//
//	encode -type Msg   JSON object on stdin, hex on stdout
//	decode -type Msg   hex on stdin, JSON object on stdout
//	raw                hex on stdin, one line per field, no schema needed
//	types              list the logical field types
//
// Bytes-valued fields travel as base64 strings in JSON.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/fieldz"
	"github.com/anirudhraja/fieldz/internal/logging"
	"github.com/anirudhraja/fieldz/registry"
	"github.com/anirudhraja/fieldz/schema"
	"github.com/anirudhraja/fieldz/wire"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "fieldz: %v\n", err)
		os.Exit(1)
	}
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fieldz", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML config file")
	var protoDirs stringList
	fs.Var(&protoDirs, "proto", "directory imports resolve against (repeatable)")
	schemaPath := fs.String("schema", "", ".proto file to load, relative to a proto directory")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaultCLIConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadCLIConfig(*configPath); err != nil {
			return err
		}
	}
	if len(protoDirs) > 0 {
		cfg.ProtoDirs = protoDirs
	}
	if *schemaPath != "" {
		cfg.Schema = *schemaPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(stderr, "fieldz", lvl)
	wire.SetConfig(cfg.Wire)

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("missing command (encode, decode, raw, types)")
	}
	cmd, cmdArgs := rest[0], rest[1:]
	logger.Debug().Str("command", cmd).Strs("proto_dirs", cfg.ProtoDirs).Str("schema", cfg.Schema).Msg("starting")

	switch cmd {
	case "types":
		return listTypes(stdout)
	case "raw":
		return rawCommand(stdin, stdout)
	case "encode", "decode":
		typeName, err := parseTypeFlag(cmd, cmdArgs, stderr)
		if err != nil {
			return err
		}
		fz, err := loadFieldz(cfg, logger)
		if err != nil {
			return err
		}
		if cmd == "encode" {
			return encodeCommand(fz, typeName, stdin, stdout, logger)
		}
		return decodeCommand(fz, typeName, stdin, stdout, logger)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseTypeFlag(cmd string, args []string, stderr io.Writer) (string, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	typeName := fs.String("type", "", "message type, short or fully qualified")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *typeName == "" {
		return "", fmt.Errorf("%s: -type is required", cmd)
	}
	return *typeName, nil
}

func loadFieldz(cfg cliConfig, logger zerolog.Logger) (*fieldz.Fieldz, error) {
	if cfg.Schema == "" {
		return nil, fmt.Errorf("no schema given (-schema or schema in config)")
	}
	fz := fieldz.NewFieldz(cfg.ProtoDirs, fieldz.WithLogger(logger))
	if err := fz.LoadSchemaFromFile(cfg.Schema); err != nil {
		return nil, err
	}
	return fz, nil
}

func listTypes(w io.Writer) error {
	for _, ft := range wire.FieldTypes() {
		pt, err := ft.PrimType()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%2d  %-9s %s\n", int(ft), ft.Symbol(), pt); err != nil {
			return err
		}
	}
	return nil
}

func encodeCommand(fz *fieldz.Fieldz, typeName string, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) error {
	dec := json.NewDecoder(stdin)
	dec.UseNumber()
	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return fmt.Errorf("read JSON: %w", err)
	}
	msg, err := fz.Registry().GetMessage(typeName)
	if err != nil {
		return err
	}
	if err := decodeBinaryFields(fz.Registry(), msg, data); err != nil {
		return err
	}
	out, err := fz.Marshal(data, typeName)
	if err != nil {
		return err
	}
	logger.Debug().Str("type", msg.FullName).Int("bytes", len(out)).Msg("encoded")
	_, err = fmt.Fprintln(stdout, hex.EncodeToString(out))
	return err
}

func decodeCommand(fz *fieldz.Fieldz, typeName string, stdin io.Reader, stdout io.Writer, logger zerolog.Logger) error {
	data, err := readHex(stdin)
	if err != nil {
		return err
	}
	rec, err := fz.Parse(data, typeName)
	if err != nil {
		return err
	}
	logger.Debug().Str("type", typeName).Int("fields", len(rec)).Msg("decoded")
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func rawCommand(stdin io.Reader, stdout io.Writer) error {
	data, err := readHex(stdin)
	if err != nil {
		return err
	}
	raw, err := fieldz.NewFieldz(nil).ParseRaw(data)
	if err != nil {
		return err
	}
	for _, rv := range raw {
		if _, err := fmt.Fprintf(stdout, "%d\t%s\t%s\n", rv.FieldNumber, rv.PrimType, formatRaw(rv.Data)); err != nil {
			return err
		}
	}
	return nil
}

func formatRaw(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return hex.EncodeToString(b)
	}
	return fmt.Sprint(v)
}

func readHex(r io.Reader) ([]byte, error) {
	in, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(string(in)), ""))
	if err != nil {
		return nil, fmt.Errorf("read hex: %w", err)
	}
	return data, nil
}

// decodeBinaryFields replaces base64 strings with bytes for every
// bytes-valued field of msg, descending into nested messages.
func decodeBinaryFields(reg *registry.Registry, msg *schema.Message, data map[string]interface{}) error {
	for key, val := range data {
		field := msg.FieldByName(key)
		if field == nil || val == nil {
			continue
		}
		conv, err := binaryConverter(reg, field)
		if err != nil {
			return err
		}
		if conv == nil {
			continue
		}
		if list, ok := val.([]interface{}); ok && field.IsRepeated() {
			for i, item := range list {
				if list[i], err = conv(item); err != nil {
					return wire.WrapEncodingFieldError(err, field.Name)
				}
			}
			continue
		}
		if data[key], err = conv(val); err != nil {
			return wire.WrapEncodingFieldError(err, field.Name)
		}
	}
	return nil
}

func binaryConverter(reg *registry.Registry, field *schema.Field) (func(interface{}) (interface{}, error), error) {
	switch field.Type {
	case wire.LBytes, wire.FBytes16, wire.FBytes20, wire.FBytes32:
		return fromBase64, nil
	case wire.LMsg:
		sub, err := reg.GetMessage(field.TypeRef)
		if err != nil {
			return nil, err
		}
		return func(v interface{}) (interface{}, error) {
			m, ok := v.(map[string]interface{})
			if !ok {
				return v, nil
			}
			return m, decodeBinaryFields(reg, sub, m)
		}, nil
	}
	return nil, nil
}

func fromBase64(v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bytes value is not base64: %w", err)
	}
	return b, nil
}
