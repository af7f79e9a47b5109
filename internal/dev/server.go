package dev

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/ssrpages/internal/config"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
)

// ServerOptions configures the development reloader.
type ServerOptions struct {
	// Config is the project configuration. Watch paths derive from it.
	Config *config.Config

	// Store receives rebuilt snapshots.
	Store *pageconfig.Store

	// Rebuild loads the page configuration from scratch.
	Rebuild func() (*pageconfig.Snapshot, error)

	// Prepare builds state derived from a new snapshot (route tables,
	// module registries) before it is swapped in. An error keeps the
	// current snapshot.
	Prepare func(*pageconfig.Snapshot) error

	// OnReload is called after a snapshot was swapped in.
	OnReload func(version uint64)

	Logger *slog.Logger
}

// Server rebuilds the page configuration when watched files change and
// tells connected browsers to reload.
type Server struct {
	options ServerOptions
	reload  *ReloadServer
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	lastErr error
}

// NewServer creates a new development reloader.
func NewServer(options ServerOptions) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		options: options,
		reload:  NewReloadServer(logger),
		logger:  logger,
	}
}

// Reload returns the websocket endpoint browsers connect to.
func (s *Server) Reload() *ReloadServer {
	return s.reload
}

// Start watches the project until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	paths := CollectWatchPaths(s.options.Config)
	w, err := NewWatcher(WatcherConfig{
		Paths:    paths,
		Debounce: 100 * time.Millisecond,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}
	s.logger.Info("watching page configuration", "paths", paths)

	err = w.Run(ctx, s.handleChanges)
	s.reload.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) handleChanges(changes []Change) {
	files := make([]string, len(changes))
	for i, c := range changes {
		files[i] = c.Path
	}
	s.logger.Info("files changed, rebuilding", "files", files)
	if err := s.Rebuild(); err != nil {
		s.logger.Error("rebuild failed, keeping previous configuration", "error", err)
	}
}

// Rebuild loads a new snapshot and swaps it in wholesale. On failure the
// current snapshot is kept and browsers show the error.
func (s *Server) Rebuild() error {
	snap, err := s.options.Rebuild()
	if err == nil && s.options.Prepare != nil {
		err = s.options.Prepare(snap)
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.reload.NotifyError(err.Error())
		return err
	}

	version := s.options.Store.Swap(snap)

	s.mu.Lock()
	hadErr := s.lastErr != nil
	s.lastErr = nil
	s.mu.Unlock()
	if hadErr {
		s.reload.ClearError()
	}

	s.logger.Info("page configuration reloaded", "version", version, "pages", len(snap.Pages()))
	if s.options.OnReload != nil {
		s.options.OnReload(version)
	}
	s.reload.NotifyReload(version)
	return nil
}

// LastError returns the error of the last failed rebuild, nil after a
// successful one.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
