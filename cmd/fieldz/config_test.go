package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCLIConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
proto_dirs = ["../../testdata", " ", "/usr/include"]
schema = " demo/record.proto "
log_level = "debug"
strict_wire_type = false
`)

	cfg, err := loadCLIConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"../../testdata", "/usr/include"}, cfg.ProtoDirs)
	assert.Equal(t, "demo/record.proto", cfg.Schema)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Wire.StrictWireType)

	def := defaultCLIConfig()
	assert.Equal(t, def.Wire.AutoReserve, cfg.Wire.AutoReserve, "keys left out keep their defaults")
	assert.Equal(t, def.Wire.SkipUnknownFields, cfg.Wire.SkipUnknownFields)
}

func TestLoadCLIConfigEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := loadCLIConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, defaultCLIConfig(), cfg)
}

func TestLoadCLIConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", `protodirs = ["x"]`, `unknown key "protodirs"`},
		{"bad level", `log_level = "loud"`, "invalid log level"},
		{"no dirs", `proto_dirs = []`, "at least one directory"},
		{"bad toml", `schema = `, "load fieldz config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadCLIConfig(writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := loadCLIConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
