package client

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/routepath"
	"github.com/vango-dev/ssrpages/pkg/router"
)

// ErrNavigationSuperseded is returned by a navigation that a newer one
// replaced before it could render.
var ErrNavigationSuperseded = stderrors.New("navigation superseded")

// State is the phase of the current navigation.
type State int

const (
	StateIdle State = iota
	StateMatching
	StateLoading
	StateRendering
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateMatching:
		return "matching"
	case StateLoading:
		return "loading"
	case StateRendering:
		return "rendering"
	default:
		return "idle"
	}
}

// Renderer swaps the rendered page.
type Renderer interface {
	// Render shows the page described by pc.
	Render(ctx context.Context, pc *pagecontext.PageContext) error

	// RenderError shows the error boundary for a failed navigation.
	RenderError(ctx context.Context, url string, err error) error
}

// FullReloader leaves client routing and loads url from the server.
type FullReloader interface {
	Reload(url string)
}

// History records navigations.
type History interface {
	Push(url string)
	Replace(url string)
}

// DataFetcher fetches the server-computed part of a page context.
type DataFetcher interface {
	FetchPageContext(ctx context.Context, url string) (*pagecontext.Serialized, error)
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithReloader sets the full reload fallback.
func WithReloader(r FullReloader) RouterOption {
	return func(rt *Router) { rt.reloader = r }
}

// WithHistory sets the history the router pushes to.
func WithHistory(h History) RouterOption {
	return func(rt *Router) { rt.history = h }
}

// WithDataFetcher fetches server data for every matched navigation.
func WithDataFetcher(f DataFetcher) RouterOption {
	return func(rt *Router) { rt.data = f }
}

// WithOrigin sets the application origin.
func WithOrigin(origin string) RouterOption {
	return func(rt *Router) { rt.origin = origin }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) { rt.logger = logger }
}

// NavigateOptions modify one navigation.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// FromHistory marks back/forward navigations, which must not touch
	// history.
	FromHistory bool
}

// Router performs client-side navigations.
type Router struct {
	session   *Session
	matcher   *router.Matcher
	loader    *Loader
	renderer  Renderer
	assembler *pagecontext.Assembler
	reloader  FullReloader
	history   History
	data      DataFetcher
	origin    string
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64

	// renderMu serializes history updates and renders so that only the
	// latest navigation commits.
	renderMu sync.Mutex
}

// NewRouter creates a router. session and loader are shared with the
// PrefetchController of the same page load.
func NewRouter(session *Session, matcher *router.Matcher, loader *Loader, renderer Renderer, opts ...RouterOption) *Router {
	rt := &Router{
		session:  session,
		matcher:  matcher,
		loader:   loader,
		renderer: renderer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.assembler = pagecontext.NewAssembler(rt.logger)
	return rt
}

// State returns the current navigation phase.
func (rt *Router) State() State {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state
}

// begin starts a navigation and supersedes any other.
func (rt *Router) begin() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.generation++
	rt.state = StateMatching
	return rt.generation
}

// advance moves navigation gen to state. It reports false when gen was
// superseded.
func (rt *Router) advance(gen uint64, state State) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if gen != rt.generation {
		return false
	}
	rt.state = state
	return true
}

// current reports whether gen is still the latest navigation.
func (rt *Router) current(gen uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return gen == rt.generation
}

// Navigate performs a client-side navigation to url.
//
// When client routing is disabled, the URL is reloaded in full and nil is
// returned. A navigation superseded by a newer one returns
// ErrNavigationSuperseded without rendering.
func (rt *Router) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	if routepath.IsExternal(url, rt.origin) {
		return errors.New("E220").WithDetailf("navigate(%q): external URLs cannot be client-routed", url)
	}
	if rt.session.ClientRoutingDisabled() {
		rt.reload(url, "client routing disabled")
		return nil
	}

	gen := rt.begin()
	log := rt.logger.With("nav_id", uuid.NewString(), "url", url)
	log.Debug("navigation started")

	err := rt.navigate(ctx, gen, url, opts, log)
	rt.advance(gen, StateIdle)
	if stderrors.Is(err, ErrNavigationSuperseded) {
		log.Debug("navigation superseded")
	}
	return err
}

func (rt *Router) navigate(ctx context.Context, gen uint64, url string, opts NavigateOptions, log *slog.Logger) error {
	match, err := rt.matcher.Match(ctx, url)
	if err != nil {
		return rt.fail(ctx, gen, url, err, log)
	}

	pageID := ""
	if match != nil {
		pageID = match.PageID
	} else if id, ok := rt.loader.ErrorPageID(); ok {
		pageID = id
	} else {
		if !rt.advance(gen, StateLoading) {
			return ErrNavigationSuperseded
		}
		rt.reload(url, "no page matches and no error page")
		return nil
	}

	if !rt.advance(gen, StateLoading) {
		return ErrNavigationSuperseded
	}
	log = log.With("page_id", pageID)

	page, err := rt.loader.LoadPage(ctx, pageID)
	var data map[string]any
	if err == nil && match != nil && rt.data != nil {
		var s *pagecontext.Serialized
		s, err = rt.data.FetchPageContext(ctx, url)
		if err == nil {
			data = s.Fields
			delete(data, "urlPathname")
		}
	}

	if !rt.advance(gen, StateLoading) {
		return ErrNavigationSuperseded
	}
	if err != nil {
		if assets.IsErrorFetchingStaticAssets(err) {
			log.Warn("stale assets, falling back to full reload", "error", err)
			rt.session.DisableClientRouting(err)
			rt.reload(url, "stale assets")
			return nil
		}
		return rt.fail(ctx, gen, url, err, log)
	}

	pc, err := rt.assembler.Assemble(pagecontext.Input{
		URLOriginal:  url,
		Match:        match,
		Page:         page,
		IsClientSide: true,
		Data:         data,
	})
	if err != nil {
		return err
	}

	if !rt.advance(gen, StateRendering) {
		return ErrNavigationSuperseded
	}
	rt.renderMu.Lock()
	defer rt.renderMu.Unlock()
	if !rt.current(gen) {
		return ErrNavigationSuperseded
	}
	if !opts.FromHistory && rt.history != nil {
		if opts.Replace {
			rt.history.Replace(url)
		} else {
			rt.history.Push(url)
		}
	}
	if err := rt.renderer.Render(ctx, pc); err != nil {
		log.Error("render failed", "error", err)
		return err
	}
	log.Debug("navigation rendered", "is404", pc.IsNotFound())
	return nil
}

// fail shows the error boundary unless gen was superseded.
func (rt *Router) fail(ctx context.Context, gen uint64, url string, err error, log *slog.Logger) error {
	if !rt.advance(gen, StateRendering) {
		return ErrNavigationSuperseded
	}
	rt.renderMu.Lock()
	defer rt.renderMu.Unlock()
	if !rt.current(gen) {
		return ErrNavigationSuperseded
	}
	log.Error("navigation failed", "error", err)
	if rerr := rt.renderer.RenderError(ctx, url, err); rerr != nil {
		log.Error("rendering error boundary failed", "error", rerr)
	}
	return err
}

func (rt *Router) reload(url, reason string) {
	rt.logger.Info("full reload", "url", url, "reason", reason)
	if rt.reloader != nil {
		rt.reloader.Reload(url)
	}
}

// ClickEvent describes a link activation.
type ClickEvent struct {
	Target Element
	Button int
	Ctrl   bool
	Meta   bool
	Shift  bool
	Alt    bool
}

// HandleClick navigates for a link click the router should intercept and
// reports whether it did. Clicks with modifiers, non-primary buttons and
// skipped links are left to the browser.
func (rt *Router) HandleClick(ctx context.Context, ev ClickEvent) (bool, error) {
	if ev.Button != 0 || ev.Ctrl || ev.Meta || ev.Shift || ev.Alt {
		return false, nil
	}
	if ev.Target == nil || skipLink(ev.Target, rt.origin) {
		return false, nil
	}
	href, _ := ev.Target.Attr(attrHref)
	err := rt.Navigate(ctx, href, NavigateOptions{})
	return true, err
}

// HandlePopState navigates for a back/forward history event.
func (rt *Router) HandlePopState(ctx context.Context, url string) error {
	return rt.Navigate(ctx, url, NavigateOptions{FromHistory: true})
}
