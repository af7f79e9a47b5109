package virtualmodule

import (
	"context"
	"sync"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
)

// Exports is the export table of one code file, keyed by export name.
type Exports map[string]any

// Modules maps code file paths to their exports.
type Modules map[string]Exports

// CodeFile is one record of a page code module's default export.
type CodeFile struct {
	ConfigName   string  `json:"configName"`
	CodeFilePath string  `json:"codeFilePath"`
	Exports      Exports `json:"-"`
}

// Loader produces the records of one page code module.
type Loader func(ctx context.Context) ([]CodeFile, error)

// Registry maps module ids to loaders. Registration validates the id and
// every code file the loader will return.
type Registry struct {
	mu      sync.RWMutex
	loaders map[ID]Loader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[ID]Loader)}
}

// Register adds loader for id.
func (r *Registry) Register(id ID, loader Loader) error {
	if id.PageID == "" || id.ExtractAssets {
		return errors.New("E203").WithDetailf("cannot register %s", id)
	}
	if loader == nil {
		return errors.New("E203").WithDetailf("nil loader for %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.loaders[id]; dup {
		return errors.New("E203").WithDetailf("%s registered twice", id)
	}
	r.loaders[id] = loader
	return nil
}

// RegisterSnapshot registers a loader for every page and side of snap.
// Each loader returns the code files the generated module would import, in
// the same order, with exports taken from modules. A code file missing
// from modules fails registration with E204.
func (r *Registry) RegisterSnapshot(snap *pageconfig.Snapshot, modules Modules) error {
	for _, page := range snap.Pages() {
		for _, side := range []pageconfig.Side{pageconfig.SideServer, pageconfig.SideClient} {
			files, err := codeFiles(page, side, modules)
			if err != nil {
				return err
			}
			loader := func(ctx context.Context) ([]CodeFile, error) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				out := make([]CodeFile, len(files))
				copy(out, files)
				return out, nil
			}
			if err := r.Register(NewID(page.PageID, side), loader); err != nil {
				return err
			}
		}
	}
	return nil
}

func codeFiles(page *pageconfig.PageConfigData, side pageconfig.Side, modules Modules) ([]CodeFile, error) {
	entries := pageconfig.Resolve(page, side)
	files := make([]CodeFile, 0, len(entries))
	for _, e := range entries {
		exports, ok := modules[e.CodeFilePath]
		if !ok {
			return nil, errors.New("E204").
				WithDetailf("page %s config %s references %s", page.PageID, e.ConfigName, e.CodeFilePath).
				WithSuggestion("Register the file's exports in the module table")
		}
		files = append(files, CodeFile{
			ConfigName:   e.ConfigName,
			CodeFilePath: e.CodeFilePath,
			Exports:      exports,
		})
	}
	return files, nil
}

// Has reports whether id has a loader.
func (r *Registry) Has(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaders[id]
	return ok
}

// Load runs the loader registered for id.
func (r *Registry) Load(ctx context.Context, id ID) ([]CodeFile, error) {
	r.mu.RLock()
	loader, ok := r.loaders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New("E205").WithDetailf("%s", id)
	}
	return loader(ctx)
}
