package server

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/ssrpages/pkg/middleware"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/router"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// VirtualPrefix is the URL prefix of generated page code modules.
const VirtualPrefix = "/@virtual/"

// RenderHook turns an assembled page context into HTML. A page exporting
// onRenderHtml of this type renders itself.
type RenderHook func(ctx context.Context, pc *pagecontext.PageContext) (string, error)

// DataHook computes page context fields on the server. A page exporting
// data of this type gets its result merged into the context before
// rendering and serialization.
type DataHook func(ctx context.Context, pc *pagecontext.PageContext) (map[string]any, error)

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the server configuration.
func WithConfig(cfg *ServerConfig) Option {
	return func(s *Server) { s.config = cfg.Clone() }
}

// WithRenderHook sets the render hook of pages without onRenderHtml.
func WithRenderHook(hook RenderHook) Option {
	return func(s *Server) { s.render = hook }
}

// WithScripts sets the file system Lua route files are read from.
func WithScripts(fsys fs.FS) Option {
	return func(s *Server) { s.scripts = fsys }
}

// WithModulesFunc derives the export table from each snapshot instead of
// using the table passed to New.
func WithModulesFunc(fn func(*pageconfig.Snapshot) virtualmodule.Modules) Option {
	return func(s *Server) { s.modulesFor = fn }
}

// WithReloadHandler mounts the dev reload websocket at path.
func WithReloadHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.reloadPath = path
		s.reloadHandler = h
	}
}

// Server serves the pages of one application.
type Server struct {
	config        *ServerConfig
	store         *pageconfig.Store
	modules       virtualmodule.Modules
	modulesFor    func(*pageconfig.Snapshot) virtualmodule.Modules
	scripts       fs.FS
	render        RenderHook
	reloadPath    string
	reloadHandler http.Handler

	generator *virtualmodule.Generator
	assembler *pagecontext.Assembler
	logger    *slog.Logger

	mu       sync.Mutex
	state    *appState
	prepared map[*pageconfig.Snapshot]*appState

	handler    http.Handler
	httpServer *http.Server
}

// New creates a server for the pages of store. modules holds the exports
// of every code file the configuration references.
func New(store *pageconfig.Store, modules virtualmodule.Modules, opts ...Option) (*Server, error) {
	s := &Server{
		config:   DefaultServerConfig(),
		store:    store,
		modules:  modules,
		prepared: make(map[*pageconfig.Snapshot]*appState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.ValidateConfig(); err != nil {
		return nil, err
	}
	s.logger = s.config.Logger
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.assembler = pagecontext.NewAssembler(s.logger)

	genOpts := []virtualmodule.GeneratorOption{
		virtualmodule.WithOptions(virtualmodule.Options{
			IncludeAssetsImportedByServer: s.config.IncludeAssetsImportedByServer,
			IsDev:                         !s.config.Production,
		}),
		virtualmodule.WithGeneratorLogger(s.logger),
	}
	if s.config.ModuleCacheSize > 0 {
		genOpts = append(genOpts, virtualmodule.WithCacheSize(s.config.ModuleCacheSize))
	}
	gen, err := virtualmodule.NewGenerator(store, genOpts...)
	if err != nil {
		return nil, err
	}
	s.generator = gen

	if _, err := s.current(); err != nil {
		return nil, err
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(s.logger))
	r.Use(middleware.RequestLogger(s.logger))
	if s.config.Tracing {
		r.Use(middleware.Tracing())
	}

	m := s.config.Metrics
	kind := func(k string) func(http.Handler) http.Handler {
		if m == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return m.Handler(k)
	}

	if m != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if s.reloadHandler != nil {
		r.Handle(s.reloadPath, s.reloadHandler)
	}
	r.With(kind("module")).Get(VirtualPrefix+"*", s.handleModule)
	r.With(kind("page")).Get("/*", s.handlePage)
	return r
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a listen
// error.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address, "pages", len(s.store.Snapshot().Pages()))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Matcher returns the route matcher of the current snapshot.
func (s *Server) Matcher() (*router.Matcher, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	return st.matcher, nil
}
