package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ben-ranford/linkpreload/internal/config"
	"github.com/ben-ranford/linkpreload/internal/linkrel"
	"github.com/ben-ranford/linkpreload/internal/logging"
	"github.com/ben-ranford/linkpreload/internal/report"
	"github.com/ben-ranford/linkpreload/internal/server"
	"github.com/ben-ranford/linkpreload/internal/workspace"
)

var (
	ErrUnknownMode = errors.New("unknown mode")
	ErrMissingURL  = errors.New("missing module url")
)

type App struct {
	Formatter report.Formatter
	// LogOut receives log records; resolution output goes to the caller.
	LogOut io.Writer
	// LookupEnv reads LINKPRELOAD_* settings. Nil disables the process environment.
	LookupEnv config.LookupFunc
}

func New(logOut io.Writer) *App {
	return &App{
		Formatter: report.NewFormatter(),
		LogOut:    logOut,
		LookupEnv: os.LookupEnv,
	}
}

func (a *App) Execute(ctx context.Context, req Request) (string, error) {
	switch req.Mode {
	case ModeResolve, ModeServe:
	default:
		return "", ErrUnknownMode
	}

	env, err := a.prepare(req)
	if err != nil {
		return "", err
	}
	if req.Mode == ModeServe {
		return "", a.executeServe(ctx, env, req.Serve)
	}
	return a.executeResolve(ctx, env, req.Resolve)
}

// environment is everything derived from the app root and its config.
type environment struct {
	root     string
	logger   *slog.Logger
	resolver *linkrel.Resolver
}

func (a *App) prepare(req Request) (environment, error) {
	root, err := workspace.NormalizeAppRoot(req.AppPath)
	if err != nil {
		return environment{}, err
	}

	fileOverrides, configPath, err := config.Load(root, req.ConfigPath)
	if err != nil {
		return environment{}, err
	}
	envOverrides, err := config.LoadEnv(root, a.LookupEnv)
	if err != nil {
		return environment{}, err
	}
	values := req.Overrides.Apply(envOverrides.Apply(fileOverrides.Apply(config.Defaults())))
	if err := values.Validate(); err != nil {
		return environment{}, fmt.Errorf("invalid config: %w", err)
	}

	logOut := a.LogOut
	if logOut == nil {
		logOut = io.Discard
	}
	logger, err := logging.New(logOut, values.LogLevel, values.LogFormat)
	if err != nil {
		return environment{}, err
	}
	if configPath != "" {
		logger.Debug("loaded config", slog.String("path", configPath))
	}

	resolver, err := newResolver(root, values, logger)
	if err != nil {
		return environment{}, err
	}
	return environment{root: root, logger: logger, resolver: resolver}, nil
}

func newResolver(root string, values config.Values, logger *slog.Logger) (*linkrel.Resolver, error) {
	importMap, err := config.LoadImportMap(root, values)
	if err != nil {
		return nil, err
	}

	var cache linkrel.Cache
	if values.CacheSize > 0 {
		lru, err := linkrel.NewLRUCache(values.CacheSize)
		if err != nil {
			return nil, err
		}
		cache = lru
	}

	return linkrel.New(root, linkrel.Options{
		ImportMap:        importMap,
		Cache:            cache,
		ResolveSpecifier: values.ResolveSpecifier(),
		Logger:           logger,
		Fanout:           values.Fanout,
	})
}

func (a *App) executeResolve(ctx context.Context, env environment, req ResolveRequest) (string, error) {
	if req.URL == "" {
		return "", ErrMissingURL
	}
	modules, ok := env.resolver.ResolveLinkRelations(ctx, req.URL, linkrel.Query{})
	if !ok {
		env.logger.Debug("nothing to preload", slog.String("url", req.URL))
		modules = nil
	}
	return a.Formatter.Format(report.NewPreload(req.URL, modules), req.Format)
}

func (a *App) executeServe(ctx context.Context, env environment, req ServeRequest) error {
	srv, err := server.New(env.resolver, env.root, env.logger)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	addr := req.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return srv.ListenAndServe(ctx, addr)
}
