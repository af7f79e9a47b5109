package client

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/router"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// countingModules counts loads per page and can hold or fail them.
type countingModules struct {
	inner ModuleLoader

	mu      sync.Mutex
	counts  map[string]int
	gates   map[string]chan struct{}
	entered map[string]chan struct{}
	fail    map[string]error
}

func (c *countingModules) Load(ctx context.Context, id virtualmodule.ID) ([]virtualmodule.CodeFile, error) {
	c.mu.Lock()
	c.counts[id.PageID]++
	gate := c.gates[id.PageID]
	entered := c.entered[id.PageID]
	err := c.fail[id.PageID]
	c.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return c.inner.Load(ctx, id)
}

func (c *countingModules) count(pageID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[pageID]
}

// hold blocks loads of pageID until the returned release is called. The
// entered channel receives once a load has started.
func (c *countingModules) hold(pageID string) (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	in := make(chan struct{}, 1)
	c.mu.Lock()
	c.gates[pageID] = gate
	c.entered[pageID] = in
	c.mu.Unlock()
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

func (c *countingModules) failWith(pageID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[pageID] = err
}

type fixture struct {
	store   *pageconfig.Store
	matcher *router.Matcher
	modules *countingModules
	loader  *Loader
	session *Session
}

func testPage(id string, extra ...pageconfig.ConfigSource) *pageconfig.PageConfigData {
	sources := append([]pageconfig.ConfigSource{
		{ConfigName: "Page", Env: pageconfig.EnvUniversal, CodeFilePath: id + "/+Page.go"},
	}, extra...)
	return pageconfig.NewPageConfigData(id, sources)
}

func route(r string) pageconfig.ConfigSource {
	return pageconfig.ConfigSource{ConfigName: "route", Env: pageconfig.EnvSharedRouting, Value: r}
}

func newFixture(t *testing.T, withErrorPage bool, opts ...LoaderOption) *fixture {
	t.Helper()
	pages := []*pageconfig.PageConfigData{
		testPage("/pages/index", route("/")),
		testPage("/pages/blog", route("/blog/:slug")),
		testPage("/pages/about"),
	}
	if withErrorPage {
		pages = append(pages, testPage("/pages/_error",
			pageconfig.ConfigSource{ConfigName: "isErrorPage", Env: pageconfig.EnvSharedConfig, Value: true}))
	}
	snap, err := pageconfig.NewSnapshot(pages)
	if err != nil {
		t.Fatal(err)
	}
	store := pageconfig.NewStore(snap)

	mods := virtualmodule.Modules{}
	for _, p := range pages {
		mods[p.PageID+"/+Page.go"] = virtualmodule.Exports{"default": "component:" + p.PageID}
	}
	reg := virtualmodule.NewRegistry()
	if err := reg.RegisterSnapshot(snap, mods); err != nil {
		t.Fatal(err)
	}

	m, err := router.New(snap, router.WithOrigin("https://example.com"))
	if err != nil {
		t.Fatal(err)
	}

	counting := &countingModules{
		inner:   reg,
		counts:  map[string]int{},
		gates:   map[string]chan struct{}{},
		entered: map[string]chan struct{}{},
		fail:    map[string]error{},
	}
	return &fixture{
		store:   store,
		matcher: m,
		modules: counting,
		loader:  NewLoader(store, counting, opts...),
		session: NewSession(),
	}
}

func parseDoc(t *testing.T, body string) *HTMLDocument {
	t.Helper()
	doc, err := ParseHTML(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func findOne(t *testing.T, doc *HTMLDocument, selector string) *HTMLElement {
	t.Helper()
	els := doc.Find(selector)
	if len(els) != 1 {
		t.Fatalf("%s matched %d elements", selector, len(els))
	}
	return els[0]
}

func currentPage(url string, exports map[string]any) *pagecontext.PageContext {
	if exports == nil {
		exports = map[string]any{}
	}
	return &pagecontext.PageContext{URLOriginal: url, Exports: exports}
}
