package server

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/middleware"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":3000".
	Address string

	// Origin is the public origin. URLs with another origin are external.
	Origin string

	// Production enables production behavior: server asset imports in
	// client modules, no dev script injection.
	Production bool

	// IncludeAssetsImportedByServer appends the server assets import to
	// client modules in production.
	IncludeAssetsImportedByServer bool

	// PassToClient lists the page context fields serialized for the client.
	// Default: pagecontext.DefaultPassToClient.
	PassToClient []string

	// BodyInject is inserted before </body> of every rendered page, e.g.
	// the dev reload script.
	BodyInject string

	// ModuleCacheSize bounds the generated module cache.
	// Default: virtualmodule.DefaultCacheSize.
	ModuleCacheSize int

	// Metrics records request metrics and enables /metrics. Nil disables.
	Metrics *middleware.Metrics

	// Tracing wraps requests in OpenTelemetry spans.
	Tracing bool

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           ":3000",
		PassToClient:      append([]string(nil), pagecontext.DefaultPassToClient...),
		ShutdownTimeout:   30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Clone returns a copy of the config.
func (c *ServerConfig) Clone() *ServerConfig {
	out := *c
	out.PassToClient = append([]string(nil), c.PassToClient...)
	return &out
}

// ValidateConfig checks the configuration.
func (c *ServerConfig) ValidateConfig() error {
	if c.Address == "" {
		return errors.New("E122").WithDetail("empty listen address")
	}
	if i := strings.LastIndex(c.Address, ":"); i >= 0 {
		if port, err := strconv.Atoi(c.Address[i+1:]); err != nil || port < 0 || port > 65535 {
			return errors.New("E122").WithDetailf("listen address %q", c.Address)
		}
	}
	if c.Origin != "" && !strings.Contains(c.Origin, "://") {
		return errors.New("E120").WithDetailf("origin %q is not an absolute URL", c.Origin)
	}
	return nil
}
