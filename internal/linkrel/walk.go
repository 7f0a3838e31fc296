package linkrel

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ben-ranford/linkpreload/internal/safeio"
)

// walkState is owned by a single top-level walk. visited is shared by the
// goroutines that walk sibling imports, so it is guarded.
type walkState struct {
	entry    string
	override func(string) string

	mu      sync.Mutex
	visited map[string]struct{}
}

func newWalkState(entry string, override func(string) string) *walkState {
	return &walkState{
		entry:    entry,
		override: override,
		visited:  make(map[string]struct{}),
	}
}

func (s *walkState) markVisited(module string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[module]; ok {
		return false
	}
	s.visited[module] = struct{}{}
	return true
}

type moduleSet struct {
	mu      sync.Mutex
	modules map[string]struct{}
}

func (s *moduleSet) add(modules ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, module := range modules {
		s.modules[module] = struct{}{}
	}
}

func (s *moduleSet) sorted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.modules))
	for module := range s.modules {
		out = append(out, module)
	}
	sort.Strings(out)
	return out
}

// walkGraph returns every module statically reachable from entry, excluding entry.
func (r *Resolver) walkGraph(ctx context.Context, entry, baseURL string, override func(string) string) []string {
	return r.walk(ctx, entry, baseURL, newWalkState(entry, override))
}

func (r *Resolver) walk(ctx context.Context, module, baseURL string, state *walkState) []string {
	if !state.markVisited(module) {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	source, err := r.fs.ReadFile(module)
	if err != nil {
		r.logger.DebugContext(ctx, "module unreadable", slog.String("module", module), slog.Any("error", err))
		return nil
	}
	imports, err := r.parser.ParseImports(ctx, module, source)
	if err != nil {
		r.logger.DebugContext(ctx, "module imports not parsed", slog.String("module", module), slog.Any("error", err))
		return nil
	}

	found := &moduleSet{modules: make(map[string]struct{})}
	var group errgroup.Group
	group.SetLimit(r.fanout)
	for _, imp := range imports {
		if imp.Dynamic || imp.TypeOnly || imp.Specifier == "" {
			continue
		}
		specifier := imp.Specifier
		group.Go(func() error {
			r.walkImport(ctx, module, baseURL, specifier, state, found)
			return nil
		})
	}
	_ = group.Wait()

	return found.sorted()
}

func (r *Resolver) walkImport(ctx context.Context, module, baseURL, specifier string, state *walkState, found *moduleSet) {
	resolved := r.resolveSpecifier(specifier, baseURL, state.override)
	candidate, ok := r.candidatePath(resolved, module)
	if !ok || !safeio.Within(r.root, candidate) || !r.fs.Exists(candidate) {
		r.logger.DebugContext(ctx, "import skipped",
			slog.String("module", module),
			slog.String("specifier", specifier),
			slog.String("candidate", candidate),
		)
		return
	}

	if candidate != state.entry {
		found.add(candidate)
	}

	childBase := r.rootRelativeURL(candidate)
	if resolved.target != nil {
		childBase = resolved.target.Path
	}
	found.add(r.walk(ctx, candidate, childBase, state)...)
}
