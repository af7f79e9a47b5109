// Package middleware provides the HTTP middleware of the page server.
//
// # Prometheus Metrics
//
// Metrics counts requests by kind (page, pageContext, module) and status,
// times them, and records route matching and module generation outcomes:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//	r.With(m.Handler("page")).Get("/*", pages)
//	r.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// Tracing starts a server span per request from the global tracer
// provider. The span travels in the request context, so matching, module
// loading and rendering can add child spans with StartSpan:
//
//	r.Use(middleware.Tracing(middleware.WithTracerName("my-app")))
//
// # Logging and Recovery
//
// RequestLogger logs one structured line per request with log/slog, and
// Recover turns handler panics into 500 responses.
package middleware
