package server

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tidwall/gjson"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/middleware"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func code(name, file string) pageconfig.ConfigSource {
	return pageconfig.ConfigSource{ConfigName: name, Env: pageconfig.DefaultEnvironment(name), CodeFilePath: file}
}

func inline(name string, v any) pageconfig.ConfigSource {
	return pageconfig.ConfigSource{ConfigName: name, Env: pageconfig.DefaultEnvironment(name), Value: v}
}

// renderTitle renders the page id and the title field, if any.
func renderTitle(_ context.Context, pc *pagecontext.PageContext) (string, error) {
	title, _ := pc.Get("title")
	s, _ := title.(string)
	return "<html><body><h1>" + pc.PageID + "</h1><p>" + s + "</p></body></html>", nil
}

type testApp struct {
	store   *pageconfig.Store
	server  *Server
	metrics *middleware.Metrics
	reg     *prometheus.Registry
}

func newTestApp(t *testing.T, withErrorPage bool, opts ...Option) *testApp {
	t.Helper()
	pages := []*pageconfig.PageConfigData{
		pageconfig.NewPageConfigData("/pages/index", []pageconfig.ConfigSource{
			code("Page", "/pages/index/+Page.go"),
			inline("route", "/"),
		}),
		pageconfig.NewPageConfigData("/pages/blog", []pageconfig.ConfigSource{
			code("Page", "/pages/blog/+Page.go"),
			code("data", "/pages/blog/+data.go"),
			inline("route", "/blog/:slug"),
			inline("passToClient", []any{"pageProps", "title"}),
		}),
		pageconfig.NewPageConfigData("/pages/broken", []pageconfig.ConfigSource{
			code("Page", "/pages/broken/+Page.go"),
			code("data", "/pages/broken/+data.go"),
			inline("route", "/broken"),
		}),
		pageconfig.NewPageConfigData("/pages/custom", []pageconfig.ConfigSource{
			code("Page", "/pages/custom/+Page.go"),
			code("onRenderHtml", "/pages/custom/+onRenderHtml.go"),
			inline("route", "/custom"),
		}),
	}
	if withErrorPage {
		pages = append(pages, pageconfig.NewPageConfigData("/pages/_error", []pageconfig.ConfigSource{
			code("Page", "/pages/_error/+Page.go"),
			inline("isErrorPage", true),
		}))
	}
	snap, err := pageconfig.NewSnapshot(pages)
	if err != nil {
		t.Fatal(err)
	}
	store := pageconfig.NewStore(snap)

	modules := virtualmodule.Modules{
		"/pages/index/+Page.go":  {"default": "index"},
		"/pages/blog/+Page.go":   {"default": "blog"},
		"/pages/broken/+Page.go": {"default": "broken"},
		"/pages/custom/+Page.go": {"default": "custom"},
		"/pages/_error/+Page.go": {"default": "error"},
		"/pages/blog/+data.go": {"default": DataHook(func(_ context.Context, pc *pagecontext.PageContext) (map[string]any, error) {
			return map[string]any{
				"title":     "Post " + pc.RouteParams["slug"],
				"pageProps": map[string]any{"slug": pc.RouteParams["slug"]},
			}, nil
		})},
		"/pages/broken/+data.go": {"default": DataHook(func(context.Context, *pagecontext.PageContext) (map[string]any, error) {
			return nil, stderrors.New("database unavailable")
		})},
		"/pages/custom/+onRenderHtml.go": {"default": RenderHook(func(context.Context, *pagecontext.PageContext) (string, error) {
			return "<html><body>custom</body></html>", nil
		})},
	}

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))

	cfg := DefaultServerConfig()
	cfg.Origin = "https://example.com"
	cfg.Logger = quietLogger()
	cfg.Metrics = metrics
	cfg.BodyInject = "<script>reload()</script>"

	all := append([]Option{WithConfig(cfg), WithRenderHook(renderTitle)}, opts...)
	srv, err := New(store, modules, all...)
	if err != nil {
		t.Fatal(err)
	}
	return &testApp{store: store, server: srv, metrics: metrics, reg: reg}
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServePage(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.server, "/blog/hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>/pages/blog</h1><p>Post hello</p>") {
		t.Errorf("body = %s", body)
	}
	if !strings.Contains(body, "<script>reload()</script></body>") {
		t.Errorf("body inject missing: %s", body)
	}

	if got := testutil.ToFloat64(app.metrics.RouteMatches().WithLabelValues("matched", "string")); got != 1 {
		t.Errorf("matched routes = %v, want 1", got)
	}
}

func TestServePageNotFound(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.server, "/nowhere")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1>/pages/_error</h1>") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if got := testutil.ToFloat64(app.metrics.RouteMatches().WithLabelValues("not_found", "none")); got != 1 {
		t.Errorf("not found = %v, want 1", got)
	}
}

func TestServePageNotFoundWithoutErrorPage(t *testing.T) {
	app := newTestApp(t, false)

	pc, status, err := app.server.PageContext(context.Background(), "/nowhere")
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d", status)
	}
	if pc.PageID != "" || !pc.IsNotFound() {
		t.Errorf("page = %q, is404 = %v", pc.PageID, pc.IsNotFound())
	}

	rec := get(t, app.server, "/nowhere")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1></h1>") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = get(t, app.server, "/nowhere/index.pageContext.json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !gjson.Get(body, "is404").Bool() {
		t.Errorf("body = %s", body)
	}
}

func TestServePageNotFoundWithoutRenderHook(t *testing.T) {
	app := newTestApp(t, false, WithRenderHook(nil))

	rec := get(t, app.server, "/nowhere")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "E212") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServePageDataHookFailure(t *testing.T) {
	app := newTestApp(t, true)

	pc, status, err := app.server.PageContext(context.Background(), "/broken")
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d", status)
	}
	if pc.PageID != "/pages/_error" || pc.IsNotFound() {
		t.Errorf("page = %s, is404 = %v", pc.PageID, pc.IsNotFound())
	}
	if v, _ := pc.Get("errorWhileRendering"); v != "database unavailable" {
		t.Errorf("errorWhileRendering = %v", v)
	}

	rec := get(t, app.server, "/broken")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestServePageOwnRenderer(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.server, "/custom")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "custom") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServePageContextJSON(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.server, "/blog/hello/index.pageContext.json?ref=feed")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	tests := []struct {
		path string
		want string
	}{
		{"_pageId", "/pages/blog"},
		{"urlOriginal", "/blog/hello?ref=feed"},
		{"routeParams.slug", "hello"},
		{"title", "Post hello"},
		{"pageProps.slug", "hello"},
		{"is404", "false"},
	}
	for _, tt := range tests {
		if got := gjson.Get(body, tt.path).String(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.path, got, tt.want)
		}
	}
	if gjson.Get(body, "urlPathname").Exists() {
		t.Errorf("urlPathname is not in the page's passToClient: %s", body)
	}
}

func TestServePageContextJSONNotFound(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.server, "/nowhere/index.pageContext.json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if gjson.Get(body, "_pageId").String() != "/pages/_error" || !gjson.Get(body, "is404").Bool() {
		t.Errorf("body = %s", body)
	}
}

func TestServeModule(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.server, VirtualPrefix+"virtual:ssrpages:pageCode:client:/pages/blog")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"/pages/blog/+Page.go"`) || !strings.Contains(body, "export default [") {
		t.Errorf("body = %s", body)
	}
	if strings.Contains(body, `configName: "route"`) {
		t.Errorf("shared config emitted: %s", body)
	}
	if got := testutil.ToFloat64(app.metrics.ModulesGenerated().WithLabelValues("client")); got != 1 {
		t.Errorf("client modules = %v, want 1", got)
	}
}

func TestServeModuleAssetsVariant(t *testing.T) {
	app := newTestApp(t, true)

	rec := get(t, app.server, VirtualPrefix+"virtual:ssrpages:pageCode:server:/pages/custom?extractAssets&lang.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "/pages/custom/+onRenderHtml.go") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServeModuleErrors(t *testing.T) {
	app := newTestApp(t, true)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"malformed", VirtualPrefix + "virtual:ssrpages:pageCode:both:/pages/blog", http.StatusBadRequest, "E201"},
		{"missing prefix", VirtualPrefix + "something-else", http.StatusBadRequest, "E201"},
		{"unknown page", VirtualPrefix + "virtual:ssrpages:pageCode:client:/pages/missing", http.StatusNotFound, "E202"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, app.server, tt.target, "Accept", "application/json")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := gjson.Get(rec.Body.String(), "code").String(); got != tt.code {
				t.Errorf("code = %q, want %q (%s)", got, tt.code, rec.Body.String())
			}
		})
	}
}

func TestServeFollowsSnapshotSwap(t *testing.T) {
	app := newTestApp(t, true)

	next, err := pageconfig.NewSnapshot([]*pageconfig.PageConfigData{
		pageconfig.NewPageConfigData("/pages/index", []pageconfig.ConfigSource{
			code("Page", "/pages/index/+Page.go"),
			inline("route", "/home"),
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := app.server.Prepare(next); err != nil {
		t.Fatal(err)
	}
	app.store.Swap(next)

	if rec := get(t, app.server, "/home"); rec.Code != http.StatusOK {
		t.Errorf("/home status = %d", rec.Code)
	}
	if rec := get(t, app.server, "/blog/hello"); rec.Code == http.StatusOK {
		t.Errorf("/blog/hello still served after swap")
	}
	if got := testutil.ToFloat64(app.metrics.SnapshotVersion()); got != float64(next.Version()) {
		t.Errorf("snapshot version gauge = %v, want %d", got, next.Version())
	}
}

func TestPrepareRejectsInvalidSnapshot(t *testing.T) {
	app := newTestApp(t, true)

	bad, err := pageconfig.NewSnapshot([]*pageconfig.PageConfigData{
		pageconfig.NewPageConfigData("/pages/index", []pageconfig.ConfigSource{
			code("Page", "/pages/index/+Page.go"),
			inline("route", "no-leading-slash"),
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := app.server.Prepare(bad); err == nil {
		t.Fatal("Prepare accepted an invalid route")
	}
	if rec := get(t, app.server, "/blog/hello"); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRenderRequiresAssembledContext(t *testing.T) {
	app := newTestApp(t, true)

	_, err := app.server.Render(context.Background(), &pagecontext.PageContext{PageID: "/pages/blog"})
	if !errors.HasCode(err, "E215") {
		t.Errorf("err = %v, want E215", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, true)
	get(t, app.server, "/blog/hello")

	if rec := get(t, app.server, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(app.metrics.Requests().WithLabelValues("page", "2xx")); got != 1 {
		t.Errorf("page requests = %v, want 1", got)
	}
}

func TestReloadHandlerMounted(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})
	app := newTestApp(t, true, WithReloadHandler("/__ssrpages/reload", h))

	rec := get(t, app.server, "/__ssrpages/reload")
	if !called || rec.Code != http.StatusTeapot {
		t.Errorf("reload handler not reached: status %d", rec.Code)
	}
}

func TestInjectBeforeBodyEnd(t *testing.T) {
	tests := []struct {
		html string
		want string
	}{
		{"<html><body>x</body></html>", "<html><body>x<s></body></html>"},
		{"<BODY>x</BODY>", "<BODY>x<s></BODY>"},
		{"fragment", "fragment<s>"},
	}
	for _, tt := range tests {
		if got := injectBeforeBodyEnd(tt.html, "<s>"); got != tt.want {
			t.Errorf("injectBeforeBodyEnd(%q) = %q, want %q", tt.html, got, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("E201"), http.StatusBadRequest},
		{errors.New("E220"), http.StatusBadRequest},
		{errors.New("E202"), http.StatusNotFound},
		{errors.New("E261"), http.StatusBadGateway},
		{errors.New("E212"), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
