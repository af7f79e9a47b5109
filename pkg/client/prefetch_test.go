package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

const origin = "https://example.com"

func newController(f *fixture, opts ...PrefetchOption) *PrefetchController {
	opts = append([]PrefetchOption{WithPrefetchOrigin(origin)}, opts...)
	return NewPrefetchController(f.session, f.matcher, f.loader, opts...)
}

// staleAssets makes every load of pageID fail on a missing client chunk.
func staleAssets(pageID string) LoaderOption {
	m := assets.NewManifest()
	m.Set(virtualmodule.NewID(pageID, pageconfig.SideClient).String(), "chunk.0123.js")
	fetch := assets.FetcherFunc(func(ctx context.Context, path string) ([]byte, error) {
		return nil, errors.New("E260").WithDetail(path).Wrap(fmt.Errorf("GET %s: %w", path, assets.ErrStaleAsset))
	})
	return WithAssets(assets.NewResolver(m, "/assets/"), fetch)
}

func TestPrefetchTwiceLoadsOnce(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := p.Prefetch(ctx, "/blog/hello"); err != nil {
			t.Fatalf("Prefetch #%d: %v", i+1, err)
		}
	}
	if err := p.Prefetch(ctx, "/blog/hello?utm=x"); err != nil {
		t.Fatal(err)
	}
	if n := f.modules.count("/pages/blog"); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
	if !f.loader.Loaded("/pages/blog") {
		t.Error("page not kept after prefetch")
	}
}

func TestPrefetchConcurrentLoadsOnce(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Prefetch(context.Background(), "/about"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := f.modules.count("/pages/about"); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
}

func TestPrefetchExternalURL(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)

	err := p.Prefetch(context.Background(), "https://other.example/blog/x")
	if !errors.HasCode(err, "E220") {
		t.Fatalf("err = %v, want E220", err)
	}
}

func TestPrefetchUnmatchedURL(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)

	if err := p.Prefetch(context.Background(), "/nowhere/at/all"); err != nil {
		t.Fatal(err)
	}
	if n := f.modules.count("/pages/_error"); n != 0 {
		t.Errorf("error page loaded %d times", n)
	}
}

func TestPrefetchStaleAssetsDisablesRouting(t *testing.T) {
	f := newFixture(t, true, staleAssets("/pages/blog"))
	p := newController(f)

	if err := p.Prefetch(context.Background(), "/blog/hello"); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if !f.session.ClientRoutingDisabled() {
		t.Fatal("client routing still enabled")
	}
	if !assets.IsErrorFetchingStaticAssets(f.session.DisabledCause()) {
		t.Errorf("cause = %v", f.session.DisabledCause())
	}
	if n := f.modules.count("/pages/blog"); n != 0 {
		t.Errorf("module loaded %d times after stale asset", n)
	}
}

func TestPrefetchLoadErrorReturned(t *testing.T) {
	f := newFixture(t, true)
	boom := stderrors.New("boom")
	f.modules.failWith("/pages/about", boom)
	p := newController(f)

	if err := p.Prefetch(context.Background(), "/about"); !stderrors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if f.session.ClientRoutingDisabled() {
		t.Error("ordinary load error disabled client routing")
	}
}

const linksPage = `<html><body>
<a id="blog" href="/blog/hello">Blog</a>
<a id="about" href="/about" data-prefetch-static-assets="viewport">About</a>
<a id="home" href="/">Home</a>
<a id="missing" href="/nowhere/at/all">Missing</a>
<a id="ext" href="https://other.example/">Other</a>
<a id="off" href="/blog/off" data-prefetch-static-assets="false">Off</a>
</body></html>`

func TestAddLinkPrefetchHandlersHover(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)
	doc := parseDoc(t, linksPage)

	if err := p.AddLinkPrefetchHandlers(context.Background(), currentPage("/", nil), doc); err != nil {
		t.Fatal(err)
	}

	blog := findOne(t, doc, "#blog")
	if n, _ := blog.Listeners("mouseover"); n != 1 {
		t.Fatalf("mouseover listeners = %d, want 1", n)
	}
	if n, passive := blog.Listeners("touchstart"); n != 1 || !passive {
		t.Fatalf("touchstart listeners = %d passive=%v", n, passive)
	}
	if n := f.modules.count("/pages/blog"); n != 0 {
		t.Fatalf("loaded before any trigger: %d", n)
	}

	blog.Dispatch("mouseover")
	blog.Dispatch("touchstart")
	blog.Dispatch("mouseover")
	if n := f.modules.count("/pages/blog"); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}

	// Viewport is downgraded to hover outside production.
	about := findOne(t, doc, "#about")
	if n, _ := about.Listeners("mouseover"); n != 1 {
		t.Errorf("about mouseover listeners = %d, want 1", n)
	}
	if doc.Observing(about) != 0 {
		t.Error("about observed outside production")
	}

	for _, id := range []string{"#home", "#missing", "#ext", "#off"} {
		el := findOne(t, doc, id)
		if n, _ := el.Listeners("mouseover"); n != 0 {
			t.Errorf("%s has %d mouseover listeners", id, n)
		}
		if doc.Observing(el) != 0 {
			t.Errorf("%s is observed", id)
		}
	}
}

func TestAddLinkPrefetchHandlersViewportOnce(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f, WithProduction(true))
	doc := parseDoc(t, linksPage)

	if err := p.AddLinkPrefetchHandlers(context.Background(), currentPage("/", nil), doc); err != nil {
		t.Fatal(err)
	}

	about := findOne(t, doc, "#about")
	if n, _ := about.Listeners("mouseover"); n != 0 {
		t.Fatalf("viewport link has %d hover listeners", n)
	}
	if doc.Observing(about) != 1 {
		t.Fatalf("Observing = %d, want 1", doc.Observing(about))
	}

	doc.Intersect(about)
	if n := f.modules.count("/pages/about"); n != 1 {
		t.Fatalf("loads = %d, want 1", n)
	}
	if doc.Observing(about) != 0 {
		t.Error("observer still connected after firing")
	}

	doc.Intersect(about)
	if n := f.modules.count("/pages/about"); n != 1 {
		t.Errorf("loads after second intersection = %d, want 1", n)
	}
}

func TestAddLinkPrefetchHandlersPageExport(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f, WithProduction(true))
	doc := parseDoc(t, `<a id="blog" href="/blog/hello">Blog</a>`)
	pc := currentPage("/", map[string]any{"prefetchStaticAssets": map[string]any{"when": "VIEWPORT"}})

	if err := p.AddLinkPrefetchHandlers(context.Background(), pc, doc); err != nil {
		t.Fatal(err)
	}
	if doc.Observing(findOne(t, doc, "#blog")) != 1 {
		t.Error("link not observed under page-level viewport prefetching")
	}
}

func TestAddLinkPrefetchHandlersInstrumentsOnce(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)
	doc := parseDoc(t, linksPage)
	pc := currentPage("/", nil)

	for i := 0; i < 3; i++ {
		if err := p.AddLinkPrefetchHandlers(context.Background(), pc, doc); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := findOne(t, doc, "#blog").Listeners("mouseover"); n != 1 {
		t.Errorf("mouseover listeners = %d, want 1", n)
	}
}

func TestAddLinkPrefetchHandlersSkipsPrefetched(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)
	if err := p.Prefetch(context.Background(), "/blog/hello"); err != nil {
		t.Fatal(err)
	}
	doc := parseDoc(t, linksPage)

	if err := p.AddLinkPrefetchHandlers(context.Background(), currentPage("/about", nil), doc); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"#blog", "#about"} {
		if n, _ := findOne(t, doc, id).Listeners("mouseover"); n != 0 {
			t.Errorf("%s has %d listeners", id, n)
		}
	}
	if n, _ := findOne(t, doc, "#home").Listeners("mouseover"); n != 1 {
		t.Errorf("#home listeners = %d, want 1", n)
	}
}

func TestAddLinkPrefetchHandlersInvalidAttribute(t *testing.T) {
	f := newFixture(t, true)
	p := newController(f)
	doc := parseDoc(t, `<a href="/about" data-prefetch-static-assets="always">About</a>`)

	err := p.AddLinkPrefetchHandlers(context.Background(), currentPage("/", nil), doc)
	if !errors.HasCode(err, "E221") {
		t.Fatalf("err = %v, want E221", err)
	}
}

func TestTriggerErrorsReachUnhandled(t *testing.T) {
	f := newFixture(t, true)
	boom := stderrors.New("boom")
	f.modules.failWith("/pages/blog", boom)

	var got []error
	p := newController(f, WithUnhandledError(func(err error) { got = append(got, err) }))
	doc := parseDoc(t, linksPage)
	if err := p.AddLinkPrefetchHandlers(context.Background(), currentPage("/", nil), doc); err != nil {
		t.Fatal(err)
	}

	findOne(t, doc, "#blog").Dispatch("mouseover")
	if len(got) != 1 || !stderrors.Is(got[0], boom) {
		t.Errorf("unhandled errors = %v", got)
	}
}

func TestResolveTrigger(t *testing.T) {
	doc := parseDoc(t, `<a id="none" href="/x">x</a>
<a id="hover" href="/x" data-prefetch-static-assets="hover">x</a>
<a id="viewport" href="/x" data-prefetch-static-assets="viewport">x</a>
<a id="false" href="/x" data-prefetch-static-assets="false">x</a>
<a id="bad" href="/x" data-prefetch-static-assets="HOVER">x</a>`)

	tests := []struct {
		name       string
		link       string
		exports    map[string]any
		production bool
		want       Trigger
		wantErr    bool
	}{
		{name: "default", link: "none", want: TriggerHover},
		{name: "link hover", link: "hover", want: TriggerHover},
		{name: "link viewport production", link: "viewport", production: true, want: TriggerViewport},
		{name: "link viewport dev", link: "viewport", want: TriggerHover},
		{name: "link false", link: "false", want: TriggerNone},
		{name: "link wins over page", link: "hover", production: true,
			exports: map[string]any{"prefetchStaticAssets": "viewport"}, want: TriggerHover},
		{name: "link value is case sensitive", link: "bad", wantErr: true},
		{name: "page false", link: "none", exports: map[string]any{"prefetchStaticAssets": false}, want: TriggerNone},
		{name: "page true", link: "none", exports: map[string]any{"prefetchStaticAssets": true}, want: TriggerHover},
		{name: "page nil", link: "none", exports: map[string]any{"prefetchStaticAssets": nil}, want: TriggerHover},
		{name: "page string", link: "none", production: true,
			exports: map[string]any{"prefetchStaticAssets": "viewport"}, want: TriggerViewport},
		{name: "page object", link: "none", production: true,
			exports: map[string]any{"prefetchStaticAssets": map[string]any{"when": "VIEWPORT"}}, want: TriggerViewport},
		{name: "page object dev", link: "none",
			exports: map[string]any{"prefetchStaticAssets": map[string]any{"when": "VIEWPORT"}}, want: TriggerHover},
		{name: "page object bad", link: "none",
			exports: map[string]any{"prefetchStaticAssets": map[string]any{"when": "always"}}, wantErr: true},
		{name: "page number", link: "none", exports: map[string]any{"prefetchStaticAssets": 3}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := findOne(t, doc, "#"+tt.link)
			got, err := ResolveTrigger(el, tt.exports, tt.production)
			if tt.wantErr {
				if !errors.HasCode(err, "E221") {
					t.Fatalf("err = %v, want E221", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("trigger = %q, want %q", got, tt.want)
			}
		})
	}
}
