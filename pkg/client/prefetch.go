package client

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/routepath"
	"github.com/vango-dev/ssrpages/pkg/router"
)

// Trigger is the user signal that starts a prefetch.
type Trigger string

const (
	TriggerNone     Trigger = ""
	TriggerHover    Trigger = "HOVER"
	TriggerViewport Trigger = "VIEWPORT"
)

// prefetchExport is the page export configuring prefetching.
const prefetchExport = "prefetchStaticAssets"

// ResolveTrigger decides how el is prefetched. The link's
// data-prefetch-static-assets attribute wins over the page's
// prefetchStaticAssets export; without either, links prefetch on hover.
// Outside production, viewport prefetching is downgraded to hover.
func ResolveTrigger(el Element, exports map[string]any, production bool) (Trigger, error) {
	trigger, err := linkTrigger(el)
	if err != nil {
		return TriggerNone, err
	}
	if trigger == nil {
		t, err := pageTrigger(exports)
		if err != nil {
			return TriggerNone, err
		}
		trigger = &t
	}
	if *trigger == TriggerViewport && !production {
		return TriggerHover, nil
	}
	return *trigger, nil
}

func linkTrigger(el Element) (*Trigger, error) {
	v, ok := el.Attr(attrPrefetchAssets)
	if !ok {
		return nil, nil
	}
	var t Trigger
	switch v {
	case "hover":
		t = TriggerHover
	case "viewport":
		t = TriggerViewport
	case "false":
		t = TriggerNone
	default:
		href, _ := el.Attr(attrHref)
		return nil, errors.New("E221").
			WithDetailf("link %q: %s=%q", href, attrPrefetchAssets, v).
			WithSuggestion(`Use "hover", "viewport" or "false"`)
	}
	return &t, nil
}

func pageTrigger(exports map[string]any) (Trigger, error) {
	v, ok := exports[prefetchExport]
	if !ok || v == nil {
		return TriggerHover, nil
	}
	switch val := v.(type) {
	case bool:
		if !val {
			return TriggerNone, nil
		}
		return TriggerHover, nil
	case string:
		switch strings.ToUpper(val) {
		case string(TriggerHover):
			return TriggerHover, nil
		case string(TriggerViewport):
			return TriggerViewport, nil
		}
	case map[string]any:
		if when, ok := val["when"].(string); ok {
			switch Trigger(when) {
			case TriggerHover, TriggerViewport:
				return Trigger(when), nil
			}
		}
	}
	return TriggerNone, errors.New("E221").
		WithDetailf("%s = %#v", prefetchExport, v).
		WithSuggestion(`Use false, "hover", "viewport" or {when: "HOVER" | "VIEWPORT"}`)
}

// PrefetchOption configures a PrefetchController.
type PrefetchOption func(*PrefetchController)

// WithPrefetchOrigin sets the application origin.
func WithPrefetchOrigin(origin string) PrefetchOption {
	return func(p *PrefetchController) { p.origin = origin }
}

// WithProduction marks a production build.
func WithProduction(production bool) PrefetchOption {
	return func(p *PrefetchController) { p.production = production }
}

// WithUnhandledError receives errors of prefetches started by triggers.
func WithUnhandledError(fn func(error)) PrefetchOption {
	return func(p *PrefetchController) { p.onUnhandled = fn }
}

// WithPrefetchLogger sets the logger.
func WithPrefetchLogger(logger *slog.Logger) PrefetchOption {
	return func(p *PrefetchController) { p.logger = logger }
}

// PrefetchController loads pages ahead of navigation.
type PrefetchController struct {
	session     *Session
	matcher     *router.Matcher
	loader      *Loader
	origin      string
	production  bool
	onUnhandled func(error)
	logger      *slog.Logger
}

// NewPrefetchController creates a controller sharing session and loader
// with the Router.
func NewPrefetchController(session *Session, matcher *router.Matcher, loader *Loader, opts ...PrefetchOption) *PrefetchController {
	p := &PrefetchController{
		session: session,
		matcher: matcher,
		loader:  loader,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prefetch loads the page of url unless it was prefetched before.
//
// An external url is a usage error. A stale asset disables client routing
// and is not reported; other load errors are returned.
func (p *PrefetchController) Prefetch(ctx context.Context, url string) error {
	if routepath.IsExternal(url, p.origin) {
		return errors.New("E220").
			WithDetailf("prefetch(%q): external URLs cannot be prefetched", url)
	}
	if !p.session.MarkPrefetched(url) {
		return nil
	}

	match, err := p.matcher.Match(ctx, url)
	if err != nil {
		return err
	}
	if match == nil {
		return nil
	}

	if _, err := p.loader.LoadPage(ctx, match.PageID); err != nil {
		if assets.IsErrorFetchingStaticAssets(err) {
			p.logger.Warn("stale assets, disabling client routing", "url", url, "page_id", match.PageID, "error", err)
			p.session.DisableClientRouting(err)
			return nil
		}
		return err
	}
	p.logger.Debug("prefetched", "url", url, "page_id", match.PageID)
	return nil
}

// AddLinkPrefetchHandlers instruments the links of doc that were not
// instrumented before. The current URL counts as prefetched.
//
// Skipped links, links no page matches and links already prefetched get
// no trigger. An invalid prefetch configuration fails with E221.
func (p *PrefetchController) AddLinkPrefetchHandlers(ctx context.Context, pc *pagecontext.PageContext, doc Document) error {
	p.session.MarkPrefetched(pc.URLOriginal)

	for _, el := range doc.Links() {
		if !p.session.markInstrumented(el) {
			continue
		}
		if skipLink(el, p.origin) {
			continue
		}
		href, _ := el.Attr(attrHref)

		match, err := p.matcher.Match(ctx, href)
		if err != nil {
			p.unhandled(err)
			continue
		}
		if match == nil || p.session.IsPrefetched(href) {
			continue
		}

		trigger, err := ResolveTrigger(el, pc.Exports, p.production)
		if err != nil {
			return err
		}
		p.attach(ctx, doc, el, href, trigger)
	}
	return nil
}

func (p *PrefetchController) attach(ctx context.Context, doc Document, el Element, href string, trigger Trigger) {
	ctx = context.WithoutCancel(ctx)
	fire := func() {
		if err := p.Prefetch(ctx, href); err != nil {
			p.unhandled(err)
		}
	}

	switch trigger {
	case TriggerHover:
		el.AddEventListener("mouseover", fire, ListenerOptions{})
		el.AddEventListener("touchstart", fire, ListenerOptions{Passive: true})
	case TriggerViewport:
		var observer Observer
		observer = doc.NewIntersectionObserver(func(entries []IntersectionEntry) {
			for _, e := range entries {
				if e.IsIntersecting {
					fire()
					observer.Disconnect()
					return
				}
			}
		})
		observer.Observe(el)
	}
}

func (p *PrefetchController) unhandled(err error) {
	if p.onUnhandled != nil {
		p.onUnhandled(err)
		return
	}
	p.logger.Error("prefetch failed", "error", err)
}
