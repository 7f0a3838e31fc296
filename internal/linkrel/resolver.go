// Package linkrel computes the modules a client should preload for an entry ES
// module by walking its static import graph inside an application root.
package linkrel

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/ben-ranford/linkpreload/internal/esm"
	"github.com/ben-ranford/linkpreload/internal/importmap"
	"github.com/ben-ranford/linkpreload/internal/logging"
	"github.com/ben-ranford/linkpreload/internal/safeio"
)

const defaultFanout = 16

type Options struct {
	// ImportMap is the JSON text of an import map. Empty disables rewriting.
	ImportMap string
	// Cache defaults to a MapCache.
	Cache Cache
	// ResolveSpecifier post-processes every resolved specifier before it is
	// checked on disk, e.g. to map ".ts" sources onto served ".js" files.
	ResolveSpecifier func(string) string
	FS               FileSystem
	Parser           ImportParser
	Logger           *slog.Logger
	// Fanout bounds the sibling imports walked at once per module.
	Fanout int
}

type Query struct {
	// ResolveSpecifier replaces Options.ResolveSpecifier for one call. Such calls
	// walk the graph themselves and neither read nor fill the cache.
	ResolveSpecifier func(string) string
}

type Resolver struct {
	root      string
	importMap *importmap.ImportMap
	cache     Cache
	override  func(string) string
	fs        FileSystem
	parser    ImportParser
	logger    *slog.Logger
	fanout    int
	flight    singleflight.Group
}

// New builds a resolver rooted at appPath. A malformed import map is the only
// failure; everything that goes wrong later degrades to nothing to preload.
func New(appPath string, opts Options) (*Resolver, error) {
	root, err := filepath.Abs(appPath)
	if err != nil {
		return nil, fmt.Errorf("resolve app path: %w", err)
	}

	r := &Resolver{
		root:     root,
		cache:    opts.Cache,
		override: opts.ResolveSpecifier,
		fs:       opts.FS,
		parser:   opts.Parser,
		logger:   opts.Logger,
		fanout:   opts.Fanout,
	}
	if opts.ImportMap != "" {
		parsed, err := importmap.Parse(opts.ImportMap, placeholderOrigin)
		if err != nil {
			return nil, fmt.Errorf("parse import map: %w", err)
		}
		r.importMap = parsed
	}
	if r.cache == nil {
		r.cache = NewMapCache()
	}
	if r.override == nil {
		r.override = identity
	}
	if r.fs == nil {
		r.fs = OSFileSystem{Root: root}
	}
	if r.parser == nil {
		r.parser = esm.NewParser()
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.fanout <= 0 {
		r.fanout = defaultFanout
	}
	if r.importMap != nil {
		for _, warning := range r.importMap.Warnings {
			r.logger.Warn("import map", slog.String("warning", warning))
		}
	}
	return r, nil
}

func (r *Resolver) Root() string {
	return r.root
}

// ResolveLinkRelations returns the root-relative paths of every module to preload
// for the module at url, sorted. The boolean is false when there is nothing to
// preload, which is never reported as an empty slice.
func (r *Resolver) ResolveLinkRelations(ctx context.Context, url string, q Query) ([]string, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	override := r.override
	if q.ResolveSpecifier != nil {
		override = q.ResolveSpecifier
	}

	resolved := r.resolveSpecifier(url, url, override)
	entry, ok := r.entryPath(resolved)
	if !ok {
		r.logger.DebugContext(ctx, "entry outside app root", slog.String("url", url))
		return nil, false
	}

	baseURL := r.rootRelativeURL(entry)
	if resolved.target != nil {
		baseURL = resolved.target.Path
	}
	var modules []string
	if q.ResolveSpecifier != nil {
		modules = r.walkGraph(ctx, entry, baseURL, override)
	} else {
		modules = r.resolveCached(ctx, entry, baseURL, override)
	}
	if ctx.Err() != nil || len(modules) == 0 {
		return nil, false
	}

	paths := make([]string, 0, len(modules))
	for _, module := range modules {
		paths = append(paths, r.rootRelativeURL(module))
	}
	return paths, true
}

func (r *Resolver) entryPath(resolved resolvedSpecifier) (string, bool) {
	if hasScheme(resolved.specifier) {
		return "", false
	}
	entry := filepath.Join(r.root, filepath.FromSlash(resolved.specifier))
	if !safeio.Within(r.root, entry) {
		return "", false
	}
	return entry, true
}

// resolveCached serves a graph from the cache or walks it. Empty graphs are not
// stored, so a module that gains imports later is picked up without invalidation.
// Concurrent first walks of one entry share a single walk. The shared walk does
// not inherit the caller's cancellation, so one caller going away cannot cut the
// graph short for the others.
func (r *Resolver) resolveCached(ctx context.Context, entry, baseURL string, override func(string) string) []string {
	if modules, ok := r.cacheGet(ctx, entry); ok {
		return modules
	}

	value, _, _ := r.flight.Do(entry, func() (any, error) {
		walkCtx := context.WithoutCancel(ctx)
		modules := r.walkGraph(walkCtx, entry, baseURL, override)
		if len(modules) > 0 {
			if err := r.cache.Set(walkCtx, entry, modules); err != nil {
				r.logger.WarnContext(walkCtx, "cache set failed", slog.String("module", entry), slog.Any("error", err))
			}
		}
		return modules, nil
	})
	modules, _ := value.([]string)
	return modules
}

func (r *Resolver) cacheGet(ctx context.Context, entry string) ([]string, bool) {
	modules, ok, err := r.cache.Get(ctx, entry)
	if err != nil {
		r.logger.WarnContext(ctx, "cache get failed", slog.String("module", entry), slog.Any("error", err))
		return nil, false
	}
	if !ok || len(modules) == 0 {
		return nil, false
	}
	return modules, true
}
