package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ben-ranford/linkpreload/internal/safeio"
)

const (
	EnvImportMap = "LINKPRELOAD_IMPORT_MAP"
	EnvCacheSize = "LINKPRELOAD_CACHE_SIZE"
	EnvFanout    = "LINKPRELOAD_FANOUT"
	EnvLogLevel  = "LINKPRELOAD_LOG_LEVEL"
	EnvLogFormat = "LINKPRELOAD_LOG_FORMAT"

	dotEnvName = ".env"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadEnv reads LINKPRELOAD_* settings from the app root's .env file and from
// lookup. Values from lookup win over the .env file.
func LoadEnv(appPath string, lookup LookupFunc) (Overrides, error) {
	appAbs, err := filepath.Abs(appPath)
	if err != nil {
		return Overrides{}, fmt.Errorf("resolve app path: %w", err)
	}

	fileVars := map[string]string{}
	data, err := safeio.ReadFileUnder(appAbs, filepath.Join(appAbs, dotEnvName))
	switch {
	case err == nil:
		fileVars, err = godotenv.Unmarshal(string(data))
		if err != nil {
			return Overrides{}, fmt.Errorf("parse %s: %w", dotEnvName, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Overrides{}, fmt.Errorf("read %s: %w", dotEnvName, err)
	}

	get := func(key string) (string, bool) {
		if lookup != nil {
			if value, ok := lookup(key); ok {
				return strings.TrimSpace(value), true
			}
		}
		value, ok := fileVars[key]
		return strings.TrimSpace(value), ok
	}

	var overrides Overrides
	if value, ok := get(EnvImportMap); ok {
		overrides.ImportMapPath = &value
	}
	if value, ok := get(EnvLogLevel); ok && value != "" {
		overrides.LogLevel = &value
	}
	if value, ok := get(EnvLogFormat); ok && value != "" {
		overrides.LogFormat = &value
	}
	if overrides.CacheSize, err = envInt(get, EnvCacheSize); err != nil {
		return Overrides{}, err
	}
	if overrides.Fanout, err = envInt(get, EnvFanout); err != nil {
		return Overrides{}, err
	}
	return overrides, nil
}

func envInt(get LookupFunc, key string) (*int, error) {
	value, ok := get(key)
	if !ok || value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return &parsed, nil
}
