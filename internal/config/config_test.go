package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/ssrpages/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort || cfg.Server.Host != DefaultHost {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Pages != DefaultPages {
		t.Errorf("Pages = %q", cfg.Pages)
	}
	if cfg.Build.AssetsPrefix != DefaultAssetsPrefix {
		t.Errorf("AssetsPrefix = %q", cfg.Build.AssetsPrefix)
	}
	if cfg.Dev.ReloadPath != DefaultReloadPath {
		t.Errorf("ReloadPath = %q", cfg.Dev.ReloadPath)
	}
	if len(cfg.Dev.Watch) != 2 || cfg.Dev.Watch[0] != DefaultPages {
		t.Errorf("Watch = %v", cfg.Dev.Watch)
	}
	if cfg.Address() != "localhost:3000" || cfg.URL() != "http://localhost:3000" {
		t.Errorf("Address = %q URL = %q", cfg.Address(), cfg.URL())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `{
  "name": "blog",
  "pages": "config/pages.yaml",
  "server": {"port": 8080, "origin": "https://blog.example.com/"},
  "build": {"production": true, "manifest": "dist/manifest.json"},
  "client": {"passToClient": ["title"]}
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "blog" || cfg.Server.Port != 8080 || !cfg.Build.Production {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PagesPath() != filepath.Join(dir, "config/pages.yaml") {
		t.Errorf("PagesPath = %q", cfg.PagesPath())
	}
	if cfg.ManifestPath() != filepath.Join(dir, "dist/manifest.json") {
		t.Errorf("ManifestPath = %q", cfg.ManifestPath())
	}
	if cfg.URL() != "https://blog.example.com" {
		t.Errorf("URL = %q", cfg.URL())
	}
	if cfg.Dir() != dir || cfg.Path() != filepath.Join(dir, ConfigFileName) {
		t.Errorf("Dir = %q Path = %q", cfg.Dir(), cfg.Path())
	}
	if len(cfg.Client.PassToClient) != 1 {
		t.Errorf("PassToClient = %v", cfg.Client.PassToClient)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `{"server": {"port": 8080}}`)
	writeFile(t, dir, EnvFileName, "SSRPAGES_PORT=9000\nSSRPAGES_S3_BUCKET=from-dotenv\nSSRPAGES_PRODUCTION=true\n")
	t.Setenv("SSRPAGES_S3_BUCKET", "from-env")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000 from .env", cfg.Server.Port)
	}
	if cfg.Build.S3.Bucket != "from-env" {
		t.Errorf("Bucket = %q, want the process environment to win", cfg.Build.S3.Bucket)
	}
	if !cfg.Build.Production {
		t.Error("Production not applied")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		env    string
		code   string
	}{
		{name: "missing", code: "E141"},
		{name: "invalid json", config: `{"server":`, code: "E120"},
		{name: "bad port", config: `{"server": {"port": 70000}}`, code: "E122"},
		{name: "bad env port", config: `{}`, env: "SSRPAGES_PORT=http\n", code: "E122"},
		{name: "bad env bool", config: `{}`, env: "SSRPAGES_PRODUCTION=maybe\n", code: "E120"},
		{name: "relative origin", config: `{"server": {"origin": "example.com"}}`, code: "E120"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.config != "" {
				writeFile(t, dir, ConfigFileName, tt.config)
			}
			if tt.env != "" {
				writeFile(t, dir, EnvFileName, tt.env)
			}
			_, err := Load(dir)
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Name = "saved"
	if err := cfg.SaveTo(filepath.Join(dir, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "saved" {
		t.Errorf("Name = %q", loaded.Name)
	}
	if err := New().Save(); err == nil {
		t.Error("Save without a path succeeded")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ConfigFileName, `{}`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot = %q, want %q", got, want)
	}
}
