// Package importmap parses import maps and resolves module specifiers through
// them, following the browser import map algorithm.
package importmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrInvalidImportMap  = errors.New("invalid import map")
	ErrBlockedSpecifier  = errors.New("specifier blocked by import map")
	ErrUnmappedSpecifier = errors.New("bare specifier not mapped by import map")
	ErrBacktracking      = errors.New("import map prefix match backtracks above its target")
)

type ImportMap struct {
	Imports  SpecifierMap
	Scopes   []Scope
	Warnings []string
}

// SpecifierMap holds normalized keys sorted so that more specific prefixes come
// first. A nil Address marks a blocked entry.
type SpecifierMap []Entry

type Entry struct {
	Key     string
	Address *url.URL
}

type Scope struct {
	Prefix  string
	Imports SpecifierMap
}

// Parse parses the JSON text of an import map. Relative keys, addresses and scope
// prefixes are resolved against baseURL.
func Parse(input string, baseURL *url.URL) (*ImportMap, error) {
	var top map[string]json.RawMessage
	if err := decodeObject([]byte(input), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportMap, err)
	}

	result := &ImportMap{}
	if raw, ok := top["imports"]; ok {
		var imports map[string]json.RawMessage
		if err := decodeObject(raw, &imports); err != nil {
			return nil, fmt.Errorf("%w: \"imports\" must be an object", ErrInvalidImportMap)
		}
		result.Imports = result.sortAndNormalizeSpecifierMap(imports, baseURL)
	}
	if raw, ok := top["scopes"]; ok {
		var scopes map[string]json.RawMessage
		if err := decodeObject(raw, &scopes); err != nil {
			return nil, fmt.Errorf("%w: \"scopes\" must be an object", ErrInvalidImportMap)
		}
		parsed, err := result.sortAndNormalizeScopes(scopes, baseURL)
		if err != nil {
			return nil, err
		}
		result.Scopes = parsed
	}

	for key := range top {
		switch key {
		case "imports", "scopes", "integrity":
		default:
			result.warn("invalid top-level key %q; only \"imports\", \"scopes\" and \"integrity\" are allowed", key)
		}
	}
	return result, nil
}

func decodeObject(data []byte, target *map[string]json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("expected a JSON object")
	}
	return json.Unmarshal(trimmed, target)
}

func (m *ImportMap) warn(format string, args ...any) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

func (m *ImportMap) sortAndNormalizeSpecifierMap(raw map[string]json.RawMessage, baseURL *url.URL) SpecifierMap {
	normalized := make(map[string]*url.URL, len(raw))
	for key, value := range raw {
		normalizedKey := normalizeSpecifierKey(key, baseURL)
		if normalizedKey == "" {
			m.warn("invalid empty string specifier key")
			continue
		}

		var address string
		if err := json.Unmarshal(value, &address); err != nil {
			m.warn("invalid address for specifier key %q; addresses must be strings", key)
			normalized[normalizedKey] = nil
			continue
		}

		addressURL := tryURLLikeSpecifierParse(address, baseURL)
		if addressURL == nil {
			m.warn("invalid address %q for specifier key %q", address, key)
			normalized[normalizedKey] = nil
			continue
		}
		if strings.HasSuffix(key, "/") && !strings.HasSuffix(addressURL.String(), "/") {
			m.warn("invalid address %q for package specifier key %q; package addresses must end with \"/\"", address, key)
			normalized[normalizedKey] = nil
			continue
		}
		normalized[normalizedKey] = addressURL
	}

	entries := make(SpecifierMap, 0, len(normalized))
	for key, address := range normalized {
		entries = append(entries, Entry{Key: key, Address: address})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key > entries[j].Key
	})
	return entries
}

func (m *ImportMap) sortAndNormalizeScopes(raw map[string]json.RawMessage, baseURL *url.URL) ([]Scope, error) {
	scopes := make([]Scope, 0, len(raw))
	for prefix, value := range raw {
		var imports map[string]json.RawMessage
		if err := decodeObject(value, &imports); err != nil {
			return nil, fmt.Errorf("%w: the value for scope %q must be an object", ErrInvalidImportMap, prefix)
		}
		prefixURL := tryURLParse(prefix, baseURL)
		if prefixURL == nil {
			m.warn("invalid scope %q; scope prefixes must be URLs", prefix)
			continue
		}
		scopes = append(scopes, Scope{
			Prefix:  prefixURL.String(),
			Imports: m.sortAndNormalizeSpecifierMap(imports, baseURL),
		})
	}
	sort.Slice(scopes, func(i, j int) bool {
		return scopes[i].Prefix > scopes[j].Prefix
	})
	return scopes, nil
}

func normalizeSpecifierKey(key string, baseURL *url.URL) string {
	if key == "" {
		return ""
	}
	if u := tryURLLikeSpecifierParse(key, baseURL); u != nil {
		return u.String()
	}
	return key
}

// Resolve maps specifier, written in the module at baseURL, to an absolute URL.
func Resolve(specifier string, m *ImportMap, baseURL *url.URL) (*url.URL, error) {
	asURL := tryURLLikeSpecifierParse(specifier, baseURL)
	normalized := specifier
	if asURL != nil {
		normalized = asURL.String()
	}

	if m != nil {
		base := baseURL.String()
		for _, scope := range m.Scopes {
			if scope.Prefix != base && !(strings.HasSuffix(scope.Prefix, "/") && strings.HasPrefix(base, scope.Prefix)) {
				continue
			}
			resolved, err := resolveImportsMatch(normalized, asURL, scope.Imports)
			if err != nil {
				return nil, err
			}
			if resolved != nil {
				return resolved, nil
			}
		}

		resolved, err := resolveImportsMatch(normalized, asURL, m.Imports)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}

	if asURL != nil {
		return asURL, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnmappedSpecifier, specifier)
}

func resolveImportsMatch(normalized string, asURL *url.URL, imports SpecifierMap) (*url.URL, error) {
	for _, entry := range imports {
		if entry.Key == normalized {
			if entry.Address == nil {
				return nil, fmt.Errorf("%w: %q", ErrBlockedSpecifier, normalized)
			}
			return cloneURL(entry.Address), nil
		}

		if !strings.HasSuffix(entry.Key, "/") || !strings.HasPrefix(normalized, entry.Key) {
			continue
		}
		if asURL != nil && !isSpecial(asURL) {
			continue
		}
		if entry.Address == nil {
			return nil, fmt.Errorf("%w: %q", ErrBlockedSpecifier, normalized)
		}

		afterPrefix := normalized[len(entry.Key):]
		resolved := tryURLParse(afterPrefix, entry.Address)
		if resolved == nil {
			return nil, fmt.Errorf("%w: %q could not be resolved against %s", ErrBlockedSpecifier, normalized, entry.Address)
		}
		if !strings.HasPrefix(resolved.String(), entry.Address.String()) {
			return nil, fmt.Errorf("%w: %q", ErrBacktracking, normalized)
		}
		return resolved, nil
	}
	return nil, nil
}
