package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/ssrpages/internal/errors"
)

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	ok := m.Handler("page")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	missing := m.Handler("page")(http.NotFoundHandler())

	serve(ok, "/")
	serve(ok, "/about")
	serve(missing, "/nope")

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("page", "2xx")); got != 2 {
		t.Errorf("requests_total{2xx} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("page", "4xx")); got != 1 {
		t.Errorf("requests_total{4xx} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.requestDuration); n != 1 {
		t.Errorf("request_duration series = %d, want 1", n)
	}
}

func TestMetricsRecorders(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	m.RecordMatch(true, "string")
	m.RecordMatch(false, "")
	m.RecordModule("client")
	m.RecordError(errors.New("E202"))
	m.RecordError(errors.New("E202"))
	m.RecordError(http.ErrHandlerTimeout)
	m.SetSnapshotVersion(7)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"matched", m.routeMatches.WithLabelValues("matched", "string"), 1},
		{"not found", m.routeMatches.WithLabelValues("not_found", "none"), 1},
		{"module", m.modulesGenerated.WithLabelValues("client"), 1},
		{"E202", m.errorsTotal.WithLabelValues("E202"), 2},
		{"internal", m.errorsTotal.WithLabelValues("internal"), 1},
		{"snapshot", m.snapshotVersion, 7},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordMatch(true, "string")
	m.RecordModule("server")
	m.RecordError(errors.New("E202"))
	m.SetSnapshotVersion(1)
}

func TestTracing(t *testing.T) {
	var extracted bool
	h := Tracing(
		WithTracerName("test"),
		WithIncludeQuery(true),
		WithAttributeExtractor(func(r *http.Request) []attribute.KeyValue {
			extracted = true
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SpanFromContext(r.Context()) == nil {
			t.Error("no span in request context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	w := serve(h, "/blog/x?a=1")
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d", w.Code)
	}
	if !extracted {
		t.Error("attribute extractor not called")
	}
}

func TestTracingFilter(t *testing.T) {
	var extracted bool
	h := Tracing(
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
		WithAttributeExtractor(func(r *http.Request) []attribute.KeyValue {
			extracted = true
			return nil
		}),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve(h, "/healthz")
	if extracted {
		t.Error("filtered request was traced")
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	serve(h, "/broken")
	line := buf.String()
	for _, want := range []string{"level=ERROR", "path=/broken", "status=500"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	h := Recover(slog.New(slog.NewTextHandler(&buf, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := serve(h, "/")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(buf.String(), "handler panic") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}
