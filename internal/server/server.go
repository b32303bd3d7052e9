// Package server exposes the SQL engine as an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// reloadDelay debounces bursts of file events.
const reloadDelay = 100 * time.Millisecond

// Config holds configuration for the API server.
type Config struct {
	Engine *sql.Engine
	Port   int
	// TablesDir holds JSON/YAML table files served to /v1/execute.
	TablesDir string
	// Watch reloads TablesDir when its files change.
	Watch  bool
	Logger *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	engine    *sql.Engine
	port      int
	tablesDir string
	watch     bool
	logger    *slog.Logger

	mu     sync.RWMutex
	tables executor.Tables
}

// New creates a server and loads its tables directory, if any.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	engine := cfg.Engine
	if engine == nil {
		engine = sql.New(sql.Config{Logger: logger})
	}

	s := &Server{
		engine:    engine,
		port:      cfg.Port,
		tablesDir: cfg.TablesDir,
		watch:     cfg.Watch,
		logger:    logger,
		tables:    executor.Tables{},
	}
	if s.tablesDir != "" {
		if err := s.reload(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Tables returns the currently loaded tables.
func (s *Server) Tables() executor.Tables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables
}

// reload replaces the tables with the contents of the tables directory.
// On failure the previous tables are kept.
func (s *Server) reload() error {
	tables, err := LoadTablesDir(s.tablesDir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
	s.logger.Info("loaded tables", "dir", s.tablesDir, "count", len(tables))
	return nil
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.logRequests,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/dialects", s.handleDialects)
		r.Post("/transpile", s.handleTranspile)
		r.Post("/format", s.handleFormat)
		r.Post("/validate", s.handleValidate)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/optimize", s.handleOptimize)
		r.Post("/execute", s.handleExecute)
	})
	return r
}

// logRequests writes one debug record per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.tablesDir != "" {
		eg.Go(func() error {
			return s.watchTables(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchTables reloads the tables directory after its data files change.
func (s *Server) watchTables(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.tablesDir); err != nil {
		return fmt.Errorf("failed to watch tables dir: %w", err)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isTableFile(event.Name) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := filepath.Base(event.Name)
			debounceTimer = time.AfterFunc(reloadDelay, func() {
				s.logger.Debug("table file changed, reloading", "file", name)
				if err := s.reload(); err != nil {
					s.logger.Error("reload failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
