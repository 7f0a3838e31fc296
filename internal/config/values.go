package config

import (
	"fmt"
	"path"
	"strings"
)

const (
	DefaultCacheSize = 0
	DefaultFanout    = 16
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var validLogFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

type Values struct {
	ImportMapPath string
	// CacheSize of 0 keeps every resolved graph; a positive size bounds it.
	CacheSize int
	Fanout    int
	// Extensions maps a specifier extension onto the extension found on disk,
	// e.g. ".js" -> ".ts" for sources that import their compiled names.
	Extensions map[string]string
	LogLevel   string
	LogFormat  string
}

type Overrides struct {
	ImportMapPath *string
	CacheSize     *int
	Fanout        *int
	Extensions    map[string]string
	LogLevel      *string
	LogFormat     *string
}

func Defaults() Values {
	return Values{
		CacheSize: DefaultCacheSize,
		Fanout:    DefaultFanout,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

func (o Overrides) Apply(values Values) Values {
	merged := values
	if o.ImportMapPath != nil {
		merged.ImportMapPath = strings.TrimSpace(*o.ImportMapPath)
	}
	if o.CacheSize != nil {
		merged.CacheSize = *o.CacheSize
	}
	if o.Fanout != nil {
		merged.Fanout = *o.Fanout
	}
	if len(o.Extensions) > 0 {
		merged.Extensions = make(map[string]string, len(values.Extensions)+len(o.Extensions))
		for from, to := range values.Extensions {
			merged.Extensions[from] = to
		}
		for from, to := range o.Extensions {
			merged.Extensions[from] = to
		}
	}
	if o.LogLevel != nil {
		merged.LogLevel = strings.ToLower(strings.TrimSpace(*o.LogLevel))
	}
	if o.LogFormat != nil {
		merged.LogFormat = strings.ToLower(strings.TrimSpace(*o.LogFormat))
	}
	return merged
}

func (v Values) Validate() error {
	if v.CacheSize < 0 {
		return fmt.Errorf("cache size must be >= 0, got %d", v.CacheSize)
	}
	if v.Fanout < 1 {
		return fmt.Errorf("fanout must be >= 1, got %d", v.Fanout)
	}
	for from, to := range v.Extensions {
		if !isExtension(from) || !isExtension(to) {
			return fmt.Errorf("extension mapping %q -> %q must map \".ext\" to \".ext\"", from, to)
		}
	}
	if _, ok := validLogLevels[v.LogLevel]; !ok {
		return fmt.Errorf("log level must be one of debug, info, warn, error; got %q", v.LogLevel)
	}
	if _, ok := validLogFormats[v.LogFormat]; !ok {
		return fmt.Errorf("log format must be text or json; got %q", v.LogFormat)
	}
	return nil
}

func isExtension(value string) bool {
	return len(value) > 1 && strings.HasPrefix(value, ".") && !strings.ContainsAny(value[1:], "./\\")
}

// ResolveSpecifier returns the specifier rewrite described by Extensions, or nil
// when no mapping is configured.
func (v Values) ResolveSpecifier() func(string) string {
	if len(v.Extensions) == 0 {
		return nil
	}
	mapping := make(map[string]string, len(v.Extensions))
	for from, to := range v.Extensions {
		mapping[from] = to
	}
	return func(specifier string) string {
		ext := path.Ext(specifier)
		to, ok := mapping[ext]
		if !ok {
			return specifier
		}
		return strings.TrimSuffix(specifier, ext) + to
	}
}
