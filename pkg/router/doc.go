// Package router resolves which page a URL belongs to.
//
// Every non-error page contributes one route: a route string from its
// "route" config, a route function (Go or Lua), or, when no route is
// configured, a filesystem route derived from the page id.
//
// # Route Strings
//
//	/                 → literal
//	/blog/:slug       → parameter "slug"
//	/movie/@id        → parameter "id"
//	/docs/*           → catch-all, captured as routeParams["*"]
//
// # Ranking
//
// All routes are evaluated. The matching route with the highest priority
// wins; ties go to the page declared first. Route strings are ranked by
// 10 per static segment plus 5 per parameter plus 1 without a catch-all,
// and literal routes add 1000. Route functions choose their own precedence.
//
// # Usage
//
//	m, err := router.New(store.Snapshot(), router.WithOrigin("https://example.com"))
//	match, err := m.Match(ctx, "/blog/hello-world")
//	if match != nil {
//	    // match.PageID, match.RouteParams["slug"]
//	}
package router
