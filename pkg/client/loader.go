package client

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// ModuleLoader loads the records of a page code module.
// *virtualmodule.Registry implements it.
type ModuleLoader interface {
	Load(ctx context.Context, id virtualmodule.ID) ([]virtualmodule.CodeFile, error)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithAssets fetches each page's built client chunk before its code is
// loaded. Pages the resolver does not know are not fetched.
func WithAssets(resolver assets.Resolver, fetcher assets.Fetcher) LoaderOption {
	return func(l *Loader) {
		l.resolver = resolver
		l.fetcher = fetcher
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// Loader loads the client-side code of pages. Concurrent loads of one page
// share a single underlying load, and completed loads are kept for the
// Loader's lifetime. Failed loads are not kept.
type Loader struct {
	store    *pageconfig.Store
	modules  ModuleLoader
	resolver assets.Resolver
	fetcher  assets.Fetcher
	logger   *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	done  map[string]*pagecontext.LoadedPage
}

// NewLoader creates a loader for the pages of store.
func NewLoader(store *pageconfig.Store, modules ModuleLoader, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:   store,
		modules: modules,
		logger:  slog.Default(),
		done:    make(map[string]*pagecontext.LoadedPage),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ErrorPageID returns the id of the application's error page.
func (l *Loader) ErrorPageID() (string, bool) {
	p, ok := l.store.Snapshot().ErrorPage()
	if !ok {
		return "", false
	}
	return p.PageID, true
}

// Loaded reports whether pageID has been loaded from the current snapshot.
func (l *Loader) Loaded(pageID string) bool {
	key := l.key(l.store.Snapshot(), pageID)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.done[key]
	return ok
}

func (l *Loader) key(snap *pageconfig.Snapshot, pageID string) string {
	return strconv.FormatUint(snap.Version(), 10) + ":" + pageID
}

// LoadPage returns pageID's configuration and client code files.
//
// A load in flight for the same page is awaited and reused. Canceling ctx
// stops waiting; the shared load itself runs to completion.
func (l *Loader) LoadPage(ctx context.Context, pageID string) (*pagecontext.LoadedPage, error) {
	snap := l.store.Snapshot()
	key := l.key(snap, pageID)

	l.mu.Lock()
	if lp, ok := l.done[key]; ok {
		l.mu.Unlock()
		return lp, nil
	}
	l.mu.Unlock()

	ch := l.group.DoChan(key, func() (any, error) {
		l.mu.Lock()
		if lp, ok := l.done[key]; ok {
			l.mu.Unlock()
			return lp, nil
		}
		l.mu.Unlock()

		lp, err := l.load(context.WithoutCancel(ctx), snap, pageID)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.done[key] = lp
		l.mu.Unlock()
		return lp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pagecontext.LoadedPage), nil
	}
}

func (l *Loader) load(ctx context.Context, snap *pageconfig.Snapshot, pageID string) (*pagecontext.LoadedPage, error) {
	cfg, ok := snap.Page(pageID)
	if !ok {
		return nil, errors.New("E202").WithDetailf("page id %q", pageID)
	}
	id := virtualmodule.NewID(pageID, pageconfig.SideClient)

	if l.resolver != nil && l.fetcher != nil {
		if path, ok := l.resolver.Asset(id.String()); ok {
			if _, err := l.fetcher.Fetch(ctx, path); err != nil {
				l.logger.Warn("page asset fetch failed", "page_id", pageID, "asset", path, "error", err)
				return nil, err
			}
		}
	}

	files, err := l.modules.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("page loaded", "page_id", pageID, "code_files", len(files))
	return &pagecontext.LoadedPage{Config: cfg, CodeFiles: files}, nil
}
