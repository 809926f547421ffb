package colorio

import (
	"os"

	"github.com/gogpu/colorio/internal/ops"
)

// Environment variable names.
const (
	EnvConfigPath        = "OCIO"
	EnvOptimizationFlags = "OCIO_OPTIMIZATION_FLAGS"
)

// EnvProvider looks up environment variables.
type EnvProvider interface {
	LookupEnv(key string) (string, bool)
}

// OSEnv reads the process environment.
type OSEnv struct{}

// LookupEnv implements [EnvProvider].
func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// MapEnv serves variables from a map.
type MapEnv map[string]string

// LookupEnv implements [EnvProvider].
func (m MapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ConfigPathFromEnv returns the config path named by $OCIO.
func ConfigPathFromEnv(p EnvProvider) (string, bool) {
	v, ok := p.LookupEnv(EnvConfigPath)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// OptimizationFlagsFromEnv parses $OCIO_OPTIMIZATION_FLAGS, a decimal or
// 0x-prefixed hexadecimal flag word. ok is false when the variable is unset
// or empty.
func OptimizationFlagsFromEnv(p EnvProvider) (flags OptimizationFlags, ok bool, err error) {
	v, found := p.LookupEnv(EnvOptimizationFlags)
	if !found || v == "" {
		return 0, false, nil
	}
	f, err := ops.ParseFlags(v)
	if err != nil {
		return 0, false, &Error{Kind: KindArgument, Entity: EnvOptimizationFlags, Err: err}
	}
	return f, true, nil
}
