package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/anirudhraja/fieldz/internal/logging"
	"github.com/anirudhraja/fieldz/wire"
)

// fieldz config.toml key mapping to CLI settings.
type fileConfig struct {
	ProtoDirs         []string `toml:"proto_dirs"`
	Schema            string   `toml:"schema"`
	LogLevel          string   `toml:"log_level"`
	AutoReserve       bool     `toml:"auto_reserve"`
	StrictWireType    bool     `toml:"strict_wire_type"`
	SkipUnknownFields bool     `toml:"skip_unknown_fields"`
}

type cliConfig struct {
	ProtoDirs []string
	Schema    string
	LogLevel  string
	Wire      wire.Config
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		ProtoDirs: []string{"."},
		LogLevel:  "info",
		Wire:      wire.CurrentConfig(),
	}
}

// loadCLIConfig overlays the keys present in path onto the defaults.
func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load fieldz config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load fieldz config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("proto_dirs") {
		cfg.ProtoDirs = cfg.ProtoDirs[:0]
		for _, dir := range raw.ProtoDirs {
			if dir = strings.TrimSpace(dir); dir != "" {
				cfg.ProtoDirs = append(cfg.ProtoDirs, dir)
			}
		}
	}
	if meta.IsDefined("schema") {
		cfg.Schema = strings.TrimSpace(raw.Schema)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("auto_reserve") {
		cfg.Wire.AutoReserve = raw.AutoReserve
	}
	if meta.IsDefined("strict_wire_type") {
		cfg.Wire.StrictWireType = raw.StrictWireType
	}
	if meta.IsDefined("skip_unknown_fields") {
		cfg.Wire.SkipUnknownFields = raw.SkipUnknownFields
	}

	if err := cfg.validate(); err != nil {
		return cliConfig{}, fmt.Errorf("load fieldz config: %w", err)
	}
	return cfg, nil
}

func (c cliConfig) validate() error {
	if len(c.ProtoDirs) == 0 {
		return fmt.Errorf("proto_dirs must name at least one directory")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
