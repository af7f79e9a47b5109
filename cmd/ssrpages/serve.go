package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrpages/internal/config"
	"github.com/vango-dev/ssrpages/internal/dev"
	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/middleware"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/server"
)

type serveOptions struct {
	dev     bool
	port    int
	host    string
	tracing bool
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pages, page contexts and page code modules",
		Long: `Start the HTTP server.

Endpoints:
  /@virtual/<id>                  generated page code modules
  /<path>/index.pageContext.json  serialized page context
  /<path>                         rendered page
  /metrics                        Prometheus metrics (metrics.enabled)

With --dev the page configuration and Lua route files are watched;
changes are reloaded atomically and connected browsers refresh.

Examples:
  ssrpages serve
  ssrpages serve --dev --port=8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dev, "dev", false, "Watch the page configuration and reload browsers")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from ssrpages.json)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from ssrpages.json)")
	cmd.Flags().BoolVar(&opts.tracing, "tracing", false, "Wrap requests in OpenTelemetry spans")

	return cmd
}

func runServe(w, errw io.Writer, flags *globalFlags, opts serveOptions) error {
	p, err := loadProject(flags)
	if err != nil {
		return err
	}
	cfg := p.cfg
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(errw, flags.verbose)

	srvCfg, err := serverConfig(cfg, opts)
	if err != nil {
		return err
	}
	srvCfg.Logger = logger

	shell := &shellRenderer{passToClient: srvCfg.PassToClient}
	if cfg.Build.Production && cfg.Build.Manifest != "" {
		manifest, err := assets.Load(cfg.ManifestPath())
		if err != nil {
			return err
		}
		shell.resolver = assets.NewResolver(manifest, cfg.Build.AssetsPrefix)
	}

	var (
		srv       *server.Server
		devServer *dev.Server
	)
	if opts.dev {
		devServer = dev.NewServer(dev.ServerOptions{
			Config:  cfg,
			Store:   p.store,
			Rebuild: p.reload,
			Prepare: func(snap *pageconfig.Snapshot) error { return srv.Prepare(snap) },
			Logger:  logger,
			OnReload: func(version uint64) {
				success(w, "Reloaded page configuration (version %d)", version)
			},
		})
		srvCfg.BodyInject = dev.ClientScript(cfg.Dev.ReloadPath)
	}

	serverOpts := []server.Option{
		server.WithConfig(srvCfg),
		server.WithRenderHook(shell.render),
		server.WithScripts(p.scripts),
		server.WithModulesFunc(moduleRefs),
	}
	if devServer != nil {
		serverOpts = append(serverOpts, server.WithReloadHandler(cfg.Dev.ReloadPath, http.HandlerFunc(devServer.Reload().HandleWebSocket)))
	}
	srv, err = server.New(p.store, nil, serverOpts...)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if devServer != nil {
		go func() {
			if err := devServer.Start(ctx); err != nil {
				logger.Error("dev watcher stopped", "error", err)
			}
		}()
	}

	success(w, "Serving %d pages on %s", len(p.store.Snapshot().Pages()), cfg.URL())
	if opts.dev {
		info(w, "Watching %s", cfg.PagesPath())
	}
	if srvCfg.Metrics != nil {
		info(w, "Metrics at %s/metrics", cfg.URL())
	}
	return srv.Run()
}

// serverConfig maps the project configuration to the HTTP server's.
func serverConfig(cfg *config.Config, opts serveOptions) (*server.ServerConfig, error) {
	sc := server.DefaultServerConfig()
	sc.Address = cfg.Address()
	sc.Origin = cfg.Server.Origin
	sc.Production = cfg.Build.Production && !opts.dev
	sc.IncludeAssetsImportedByServer = cfg.Build.IncludeAssetsImportedByServer
	sc.Tracing = opts.tracing
	if len(cfg.Client.PassToClient) > 0 {
		sc.PassToClient = cfg.Client.PassToClient
	}
	if cfg.Metrics.Enabled {
		sc.Metrics = middleware.NewMetrics(middleware.WithNamespace(cfg.Metrics.Namespace))
	}
	if err := sc.ValidateConfig(); err != nil {
		return nil, err
	}
	return sc, nil
}
