package pageconfig

import (
	"fmt"
	"strings"
)

// Environment is the affinity of a configuration source.
type Environment string

const (
	EnvServerOnly    Environment = "server-only"
	EnvClientOnly    Environment = "client-only"
	EnvSharedRouting Environment = "shared-routing"
	EnvSharedConfig  Environment = "shared-config"
	EnvUniversal     Environment = "universal"
)

// ParseEnvironment converts a textual affinity to an Environment.
// "server-and-client" is accepted as an alias of universal.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(EnvServerOnly):
		return EnvServerOnly, nil
	case string(EnvClientOnly):
		return EnvClientOnly, nil
	case string(EnvSharedRouting):
		return EnvSharedRouting, nil
	case string(EnvSharedConfig):
		return EnvSharedConfig, nil
	case string(EnvUniversal), "server-and-client":
		return EnvUniversal, nil
	}
	return "", fmt.Errorf("unknown environment %q", s)
}

// IsShared reports whether sources with this affinity are resolved before
// code generation and never emitted as loadable code.
func (e Environment) IsShared() bool {
	return e == EnvSharedRouting || e == EnvSharedConfig
}

// defaultEnvironments lists the affinity of well-known config names.
var defaultEnvironments = map[string]Environment{
	"route": EnvSharedRouting,
	"iKnowThePerformanceRisksOfAsyncRouteFunctions": EnvSharedRouting,

	"passToClient":         EnvSharedConfig,
	"prefetchStaticAssets": EnvSharedConfig,
	"isErrorPage":          EnvSharedConfig,
	"clientRouting":        EnvSharedConfig,

	"onRenderHtml":   EnvServerOnly,
	"onBeforeRender": EnvServerOnly,
	"guard":          EnvServerOnly,

	"onRenderClient":        EnvClientOnly,
	"onHydrationEnd":        EnvClientOnly,
	"onPageTransitionStart": EnvClientOnly,
	"onPageTransitionEnd":   EnvClientOnly,
}

// DefaultEnvironment returns the affinity used when a config entry does not
// declare one.
func DefaultEnvironment(configName string) Environment {
	if env, ok := defaultEnvironments[configName]; ok {
		return env
	}
	return EnvUniversal
}

// Side selects the bundle a resolution is made for.
type Side int

const (
	SideServer Side = iota
	SideClient
)

// String returns "server" or "client".
func (s Side) String() string {
	if s == SideClient {
		return "client"
	}
	return "server"
}

// excludes reports whether a source with affinity env is excluded from
// code emitted for this side.
func (s Side) excludes(env Environment) bool {
	if env.IsShared() {
		return true
	}
	if s == SideClient {
		return env == EnvServerOnly
	}
	return env == EnvClientOnly
}

// ConfigSource is one configuration value attached to a page.
type ConfigSource struct {
	// ConfigName is the configuration key (e.g. "Page", "route").
	ConfigName string

	// Env is the environment affinity.
	Env Environment

	// Value is the inline value, if the source is not a code file.
	Value any

	// CodeFilePath references the code module providing the value.
	CodeFilePath string

	// DefinedAt is the location of the config file that declared the source.
	DefinedAt string

	// Depth is the nesting depth of DefinedAt; 0 is the most global.
	Depth int
}

// IsCode reports whether the source references a code file.
func (s ConfigSource) IsCode() bool {
	return s.CodeFilePath != ""
}

// PageConfigData is the resolved configuration of one page.
// It is immutable once part of a Snapshot.
type PageConfigData struct {
	// PageID identifies the page.
	PageID string

	// IsErrorPage marks the page rendered for not-found and error conditions.
	IsErrorPage bool

	// Sources holds one source per config name, in declaration order.
	Sources []ConfigSource

	index map[string]int
}

// NewPageConfigData builds a PageConfigData. Later sources with a name
// already present replace the earlier value in place.
func NewPageConfigData(pageID string, sources []ConfigSource) *PageConfigData {
	d := &PageConfigData{PageID: pageID}
	for _, src := range sources {
		d.set(src)
	}
	if src, ok := d.Source("isErrorPage"); ok {
		if b, ok := src.Value.(bool); ok && b {
			d.IsErrorPage = true
		}
	}
	return d
}

func (d *PageConfigData) set(src ConfigSource) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[src.ConfigName]; ok {
		d.Sources[i] = src
		return
	}
	d.index[src.ConfigName] = len(d.Sources)
	d.Sources = append(d.Sources, src)
}

// Source returns the source for configName.
func (d *PageConfigData) Source(configName string) (ConfigSource, bool) {
	if d.index == nil {
		for _, src := range d.Sources {
			if src.ConfigName == configName {
				return src, true
			}
		}
		return ConfigSource{}, false
	}
	i, ok := d.index[configName]
	if !ok {
		return ConfigSource{}, false
	}
	return d.Sources[i], true
}

// Names returns the config names in declaration order.
func (d *PageConfigData) Names() []string {
	names := make([]string, len(d.Sources))
	for i, src := range d.Sources {
		names[i] = src.ConfigName
	}
	return names
}

// Value returns the inline value of configName, if any.
func (d *PageConfigData) Value(configName string) (any, bool) {
	src, ok := d.Source(configName)
	if !ok || src.IsCode() {
		return nil, false
	}
	return src.Value, true
}
