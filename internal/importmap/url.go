package importmap

import (
	"net/url"
	"strings"
)

var specialSchemes = map[string]bool{
	"ftp":   true,
	"file":  true,
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
}

func isSpecial(u *url.URL) bool {
	return u != nil && specialSchemes[strings.ToLower(u.Scheme)]
}

// tryURLParse parses value as an absolute URL, or as a reference against base
// when base is non-nil. It returns nil when value is not a URL.
func tryURLParse(value string, base *url.URL) *url.URL {
	ref, err := url.Parse(value)
	if err != nil {
		return nil
	}
	var resolved *url.URL
	if base != nil {
		resolved = base.ResolveReference(ref)
	} else {
		resolved = ref
	}
	if resolved.Scheme == "" {
		return nil
	}
	if isSpecial(resolved) && resolved.Opaque == "" && resolved.Path == "" {
		resolved.Path = "/"
	}
	return resolved
}

// tryURLLikeSpecifierParse treats path-like specifiers as references against base
// and anything else as a candidate absolute URL. Bare specifiers return nil.
func tryURLLikeSpecifierParse(specifier string, base *url.URL) *url.URL {
	if strings.HasPrefix(specifier, "/") || strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return tryURLParse(specifier, base)
	}
	return tryURLParse(specifier, nil)
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
