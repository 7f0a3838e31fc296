package linkrel

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ben-ranford/linkpreload/internal/importmap"
)

// placeholderHost stands in for the application's own origin while resolving
// through an import map. The .invalid TLD cannot collide with a real target.
const placeholderHost = "linkpreload.invalid"

var placeholderOrigin = &url.URL{Scheme: "https", Host: placeholderHost, Path: "/"}

type resolvedSpecifier struct {
	viaImportMap bool
	specifier    string
	// target is the mapped URL; its path is the base for the target's own imports.
	target *url.URL
}

func identity(specifier string) string {
	return specifier
}

// resolveSpecifier applies the import map to specifier written in the module at
// baseURL (a root-relative URL path). Only rewrites that land on the placeholder
// origin count; external targets leave the specifier untouched.
func (r *Resolver) resolveSpecifier(specifier, baseURL string, override func(string) string) resolvedSpecifier {
	if r.importMap != nil {
		if mapped, ok := r.resolveViaImportMap(specifier, baseURL); ok {
			return resolvedSpecifier{
				viaImportMap: true,
				specifier:    override(mapped.Path),
				target:       mapped,
			}
		}
	}
	return resolvedSpecifier{specifier: override(specifier)}
}

func (r *Resolver) resolveViaImportMap(specifier, baseURL string) (*url.URL, bool) {
	ref, err := url.Parse(baseURL)
	if err != nil {
		return nil, false
	}
	mapped, err := importmap.Resolve(specifier, r.importMap, placeholderOrigin.ResolveReference(ref))
	if err != nil {
		return nil, false
	}
	if !isPlaceholder(mapped) {
		return nil, false
	}
	return mapped, true
}

func isPlaceholder(u *url.URL) bool {
	return u != nil && strings.EqualFold(u.Scheme, placeholderOrigin.Scheme) && strings.EqualFold(u.Host, placeholderHost)
}

// candidatePath joins a resolved specifier onto the directory it is relative to.
// Import-map results and root-absolute specifiers are relative to the app root.
// It returns false for specifiers that carry a URL scheme, which are never local.
func (r *Resolver) candidatePath(resolved resolvedSpecifier, module string) (string, bool) {
	if hasScheme(resolved.specifier) {
		return "", false
	}
	dir := filepath.Dir(module)
	if resolved.viaImportMap || strings.HasPrefix(resolved.specifier, "/") {
		dir = r.root
	}
	return filepath.Join(dir, filepath.FromSlash(resolved.specifier)), true
}

func hasScheme(specifier string) bool {
	u, err := url.Parse(specifier)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

// rootRelativeURL turns an absolute path under the app root into a "/"-prefixed
// URL path.
func (r *Resolver) rootRelativeURL(path string) string {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}
