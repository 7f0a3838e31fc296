// Package server serves an app root over HTTP and announces each module's
// static import graph in a modulepreload Link header.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/ben-ranford/linkpreload/internal/esm"
	"github.com/ben-ranford/linkpreload/internal/linkrel"
	"github.com/ben-ranford/linkpreload/internal/logging"
	"github.com/ben-ranford/linkpreload/internal/report"
)

const shutdownTimeout = 5 * time.Second

type LinkResolver interface {
	ResolveLinkRelations(ctx context.Context, url string, q linkrel.Query) ([]string, bool)
}

type Server struct {
	resolver LinkResolver
	root     *os.Root
	files    http.Handler
	logger   *slog.Logger
}

// New opens appRoot for serving. Files are read through an os.Root, so
// symlinks cannot reach outside the app root.
func New(resolver LinkResolver, appRoot string, logger *slog.Logger) (*Server, error) {
	root, err := os.OpenRoot(appRoot)
	if err != nil {
		return nil, fmt.Errorf("open app root: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		resolver: resolver,
		root:     root,
		files:    http.FileServerFS(root.FS()),
		logger:   logger,
	}, nil
}

func (s *Server) Close() error {
	return s.root.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		s.setLinkHeader(w, r)
	}
	s.files.ServeHTTP(w, r)
}

func (s *Server) setLinkHeader(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean("/" + r.URL.Path)
	if !esm.IsSupported(urlPath) {
		return
	}
	modules, ok := s.resolver.ResolveLinkRelations(r.Context(), urlPath, linkrel.Query{})
	if !ok {
		return
	}
	s.logger.DebugContext(r.Context(), "modulepreload", slog.String("url", urlPath), slog.Int("modules", len(modules)))
	w.Header().Set("Link", report.FormatLinkHeader(modules))
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving app root", slog.String("addr", listener.Addr().String()), slog.String("root", s.root.Name()))
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
