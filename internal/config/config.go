package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vango-dev/ssrpages/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "ssrpages.json"

	// EnvFileName is the optional dotenv file next to ConfigFileName.
	EnvFileName = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SSRPAGES_"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultPages is the default page configuration file.
	DefaultPages = "pages.yaml"

	// DefaultAssetsPrefix is the URL prefix of built assets.
	DefaultAssetsPrefix = "/assets/"

	// DefaultReloadPath is the dev reload websocket endpoint.
	DefaultReloadPath = "/__ssrpages/reload"
)

// Config represents the complete ssrpages.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Pages is the path of the page configuration file.
	Pages string `json:"pages,omitempty"`

	// Scripts is the directory Lua route files are read from.
	Scripts string `json:"scripts,omitempty"`

	Server  ServerConfig  `json:"server,omitempty"`
	Build   BuildConfig   `json:"build,omitempty"`
	Client  ClientConfig  `json:"client,omitempty"`
	Dev     DevConfig     `json:"dev,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`

	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// Origin is the public origin of the application. URLs with another
	// origin are external.
	Origin string `json:"origin,omitempty"`
}

// BuildConfig contains the settings of a built application.
type BuildConfig struct {
	// Production marks a production build. Viewport prefetching and
	// server asset imports are only active in production.
	Production bool `json:"production,omitempty"`

	// Manifest is the path of the bundle manifest.
	Manifest string `json:"manifest,omitempty"`

	// AssetsPrefix is the URL prefix of built assets.
	AssetsPrefix string `json:"assetsPrefix,omitempty"`

	// AssetsURL is the base URL assets are fetched from over HTTP.
	AssetsURL string `json:"assetsURL,omitempty"`

	// IncludeAssetsImportedByServer appends the server assets import to
	// client modules.
	IncludeAssetsImportedByServer bool `json:"includeAssetsImportedByServer,omitempty"`

	// S3 serves built assets from a bucket instead of AssetsURL.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config locates built assets in S3.
type S3Config struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// ClientConfig contains client-facing settings.
type ClientConfig struct {
	// PassToClient lists the page context fields serialized for the
	// client, in addition to the ones always passed.
	PassToClient []string `json:"passToClient,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Watch lists files and directories whose changes rebuild the page
	// configuration.
	Watch []string `json:"watch,omitempty"`

	// ReloadPath is the websocket endpoint browsers listen on for reloads.
	ReloadPath string `json:"reloadPath,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for ssrpages.json and .env in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path and applies
// the .env file next to it and the process environment.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " at the project root")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}
	cfg.configPath = path

	env, err := readEnv(filepath.Join(filepath.Dir(path), EnvFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readEnv merges the dotenv file at path with the process environment.
// A missing file is not an error.
func readEnv(path string) (map[string]string, error) {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		env, err = godotenv.Read(path)
		if err != nil {
			return nil, errors.New("E120").WithDetail("Failed to read " + path).Wrap(err)
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv applies SSRPAGES_* overrides from env.
func (c *Config) ApplyEnv(env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[EnvPrefix+key]; ok && v != "" {
			*dst = v
		}
	}
	str("HOST", &c.Server.Host)
	str("ORIGIN", &c.Server.Origin)
	str("PAGES", &c.Pages)
	str("ASSETS_URL", &c.Build.AssetsURL)
	str("S3_BUCKET", &c.Build.S3.Bucket)
	str("S3_PREFIX", &c.Build.S3.Prefix)
	str("S3_REGION", &c.Build.S3.Region)

	if v, ok := env[EnvPrefix+"PORT"]; ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("E122").WithDetail(EnvPrefix + "PORT=" + v + " is not a number")
		}
		c.Server.Port = port
	}
	if v, ok := env[EnvPrefix+"PRODUCTION"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("E120").WithDetail(EnvPrefix + "PRODUCTION=" + v + " is not a boolean")
		}
		c.Build.Production = b
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Pages == "" {
		c.Pages = DefaultPages
	}
	if c.Scripts == "" {
		c.Scripts = "."
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Build.AssetsPrefix == "" {
		c.Build.AssetsPrefix = DefaultAssetsPrefix
	}
	if c.Dev.Watch == nil {
		c.Dev.Watch = []string{c.Pages, c.Scripts}
	}
	if c.Dev.ReloadPath == "" {
		c.Dev.ReloadPath = DefaultReloadPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "ssrpages"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if c.Server.Origin != "" && !strings.Contains(c.Server.Origin, "://") {
		return errors.New("E120").
			WithDetail("server.origin " + strconv.Quote(c.Server.Origin) + " is not an absolute URL").
			WithSuggestion(`Use a value like "https://example.com"`)
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the server URL, the origin when one is configured.
func (c *Config) URL() string {
	if c.Server.Origin != "" {
		return strings.TrimSuffix(c.Server.Origin, "/")
	}
	return "http://" + c.Address()
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// PagesPath returns the absolute path of the page configuration file.
func (c *Config) PagesPath() string {
	return c.resolve(c.Pages)
}

// ScriptsPath returns the absolute path of the Lua route directory.
func (c *Config) ScriptsPath() string {
	return c.resolve(c.Scripts)
}

// ManifestPath returns the absolute path of the bundle manifest, or ""
// when none is configured.
func (c *Config) ManifestPath() string {
	return c.resolve(c.Build.Manifest)
}

// WatchPaths returns the absolute paths watched in development.
func (c *Config) WatchPaths() []string {
	out := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		out = append(out, c.resolve(p))
	}
	return out
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing ssrpages.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Create " + ConfigFileName + " at the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
