package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ben-ranford/linkpreload/internal/safeio"
)

const (
	readConfigFileErrFmt = "read config file %s: %w"
	parseConfigErrFmt    = "parse config file %s: %w"
)

var configFileNames = []string{".linkpreload.yml", ".linkpreload.yaml", "linkpreload.json", "linkpreload.toml"}

type rawConfig struct {
	ImportMap  string            `yaml:"import_map" json:"import_map" toml:"import_map"`
	Fanout     *int              `yaml:"fanout" json:"fanout" toml:"fanout"`
	Extensions map[string]string `yaml:"extensions" json:"extensions" toml:"extensions"`
	Cache      rawCache          `yaml:"cache" json:"cache" toml:"cache"`
	Log        rawLog            `yaml:"log" json:"log" toml:"log"`
}

type rawCache struct {
	Size *int `yaml:"size" json:"size" toml:"size"`
}

type rawLog struct {
	Level  string `yaml:"level" json:"level" toml:"level"`
	Format string `yaml:"format" json:"format" toml:"format"`
}

// Load finds and parses the config file for appPath. It returns empty overrides
// and an empty path when no config file exists and none was requested.
func Load(appPath, explicitPath string) (Overrides, string, error) {
	appAbs, err := filepath.Abs(appPath)
	if err != nil {
		return Overrides{}, "", fmt.Errorf("resolve app path: %w", err)
	}
	explicitPath = strings.TrimSpace(explicitPath)

	configPath, found, err := resolveConfigPath(appAbs, explicitPath)
	if err != nil {
		return Overrides{}, "", err
	}
	if !found {
		return Overrides{}, "", nil
	}

	data, err := readConfigFile(appAbs, configPath)
	if err != nil {
		return Overrides{}, "", fmt.Errorf(readConfigFileErrFmt, configPath, err)
	}
	cfg, err := parseConfig(configPath, data)
	if err != nil {
		return Overrides{}, "", fmt.Errorf(parseConfigErrFmt, configPath, err)
	}
	return cfg.toOverrides(), configPath, nil
}

func resolveConfigPath(appPath, explicitPath string) (string, bool, error) {
	if explicitPath != "" {
		candidate := explicitPath
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(appPath, candidate)
		}
		candidate = filepath.Clean(candidate)
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file not found: %s", candidate)
			}
			return "", false, fmt.Errorf(readConfigFileErrFmt, candidate, err)
		}
		return candidate, true, nil
	}

	for _, name := range configFileNames {
		candidate := filepath.Join(appPath, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !os.IsNotExist(err) {
			return "", false, fmt.Errorf(readConfigFileErrFmt, candidate, err)
		}
	}

	return "", false, nil
}

func readConfigFile(appPath, path string) ([]byte, error) {
	if safeio.Within(appPath, path) {
		return safeio.ReadFileUnder(appPath, path)
	}
	return safeio.ReadFile(path)
}

func parseConfig(path string, data []byte) (rawConfig, error) {
	var cfg rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return rawConfig{}, fmt.Errorf("invalid JSON config: %w", err)
		}
		if decoder.More() {
			return rawConfig{}, fmt.Errorf("invalid JSON config: multiple JSON values")
		}
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return rawConfig{}, fmt.Errorf("invalid TOML config: %w", err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return rawConfig{}, fmt.Errorf("invalid YAML config: %w", err)
		}
	}
	return cfg, nil
}

func (c rawConfig) toOverrides() Overrides {
	overrides := Overrides{
		CacheSize:  c.Cache.Size,
		Fanout:     c.Fanout,
		Extensions: c.Extensions,
	}
	if importMap := strings.TrimSpace(c.ImportMap); importMap != "" {
		overrides.ImportMapPath = &importMap
	}
	if level := strings.TrimSpace(c.Log.Level); level != "" {
		overrides.LogLevel = &level
	}
	if format := strings.TrimSpace(c.Log.Format); format != "" {
		overrides.LogFormat = &format
	}
	return overrides
}

// LoadImportMap reads the import map file named by Values. Relative paths are
// taken from the app root. An empty path yields an empty map text.
func LoadImportMap(appPath string, values Values) (string, error) {
	if values.ImportMapPath == "" {
		return "", nil
	}
	appAbs, err := filepath.Abs(appPath)
	if err != nil {
		return "", fmt.Errorf("resolve app path: %w", err)
	}
	path := values.ImportMapPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(appAbs, path)
	}
	data, err := readConfigFile(appAbs, filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read import map %s: %w", path, err)
	}
	return string(data), nil
}
