package main

import (
	"io/fs"
	"log/slog"
	"os"

	"github.com/vango-dev/ssrpages/internal/config"
	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/router"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// project is a loaded ssrpages project.
type project struct {
	cfg     *config.Config
	store   *pageconfig.Store
	scripts fs.FS
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	if flags.dir == "" {
		return config.LoadFromWorkingDir()
	}
	root, err := config.FindProjectRoot(flags.dir)
	if err != nil {
		return nil, err
	}
	return config.Load(root)
}

func loadProject(flags *globalFlags) (*project, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.PagesPath()); os.IsNotExist(err) {
		return nil, errors.New("E280").
			WithDetailf("%s names %s, which does not exist", config.ConfigFileName, cfg.PagesPath()).
			WithSuggestion("Create the file, or point \"pages\" at it")
	}
	snap, err := pageconfig.LoadFile(cfg.PagesPath())
	if err != nil {
		return nil, err
	}
	return &project{
		cfg:     cfg,
		store:   pageconfig.NewStore(snap),
		scripts: os.DirFS(cfg.ScriptsPath()),
	}, nil
}

// reload reads the page configuration again without swapping it in.
func (p *project) reload() (*pageconfig.Snapshot, error) {
	return pageconfig.LoadFile(p.cfg.PagesPath())
}

func (p *project) matcher(logger *slog.Logger) (*router.Matcher, error) {
	return router.New(p.store.Snapshot(),
		router.WithOrigin(p.cfg.Server.Origin),
		router.WithScripts(p.scripts),
		router.WithLogger(logger),
	)
}

// moduleRefs builds the export table the CLI serves with. Code files are
// bundled JavaScript the CLI cannot evaluate, so each one exports its own
// path: the Page config as its default export, so pages assemble, and
// every other config under "codeFilePath", so server hooks fall back to
// the built-in renderer. Route files are left out; only Lua route
// functions can run here.
func moduleRefs(snap *pageconfig.Snapshot) virtualmodule.Modules {
	mods := virtualmodule.Modules{}
	for _, page := range snap.Pages() {
		for _, src := range page.Sources {
			if !src.IsCode() || src.ConfigName == "route" {
				continue
			}
			if src.ConfigName == "Page" {
				mods[src.CodeFilePath] = virtualmodule.Exports{"default": src.CodeFilePath}
				continue
			}
			if _, ok := mods[src.CodeFilePath]; !ok {
				mods[src.CodeFilePath] = virtualmodule.Exports{"codeFilePath": src.CodeFilePath}
			}
		}
	}
	return mods
}
