package pagecontext

import "strings"

// JSONSuffix ends the URL serving a page's serialized context.
const JSONSuffix = "/index.pageContext.json"

// JSONURL returns the URL of the serialized page context of url:
// "/blog/x?a=1" becomes "/blog/x/index.pageContext.json?a=1".
func JSONURL(url string) string {
	path, query, hasQuery := strings.Cut(url, "?")
	path, _, _ = strings.Cut(path, "#")
	if hasQuery {
		query, _, _ = strings.Cut(query, "#")
	}
	out := strings.TrimSuffix(path, "/") + JSONSuffix
	if hasQuery {
		out += "?" + query
	}
	return out
}

// PageURL reverses JSONURL for a request path. It reports false for paths
// not ending in JSONSuffix.
func PageURL(path string) (string, bool) {
	trimmed, ok := strings.CutSuffix(path, JSONSuffix)
	if !ok {
		return "", false
	}
	if trimmed == "" {
		trimmed = "/"
	}
	return trimmed, true
}
