package wire

import (
	"os"
	"sync"
)

// Config controls optional codec behaviors. The zero value is not the
// default; use DefaultConfig.
type Config struct {
	// AutoReserve: when true, writes to a growable buffer reserve room for
	// themselves before writing, so callers need not call Reserve first.
	// When false, growable buffers only grow through explicit Reserve calls
	// and a write past capacity reports an overrun like a channel does.
	AutoReserve bool

	// StrictWireType: when true, TFReader rejects a field whose header
	// primitive type differs from the one its declared logical type maps
	// to. When false the payload is decoded by the declared type anyway.
	StrictWireType bool

	// SkipUnknownFields: when true, TFReader skips fields the FieldSpec does not
	// know (and whose primitive type can be skipped). When false an unknown
	// field number is an error.
	SkipUnknownFields bool
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		AutoReserve:       true,
		StrictWireType:    true,
		SkipUnknownFields: true,
	}
}

var (
	configMu sync.RWMutex
	config   = DefaultConfig()
)

// SetConfig replaces the package-wide configuration.
func SetConfig(c Config) {
	configMu.Lock()
	config = c
	configMu.Unlock()
}

// CurrentConfig returns a copy of the package-wide configuration.
func CurrentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

func currentConfig() Config { return CurrentConfig() }

func init() {
	// env toggles for test harnesses; unset leaves the defaults alone
	config.AutoReserve = envBool("FIELDZ_AUTO_RESERVE", config.AutoReserve)
	config.StrictWireType = envBool("FIELDZ_STRICT_WIRE", config.StrictWireType)
	config.SkipUnknownFields = envBool("FIELDZ_SKIP_UNKNOWN", config.SkipUnknownFields)
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return def
}
