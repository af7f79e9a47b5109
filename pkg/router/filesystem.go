package router

import "strings"

// FilesystemRoute derives a route string from a page id when the page
// declares no route: "/pages/index" is "/", "/pages/about" is "/about".
func FilesystemRoute(pageID string) string {
	var kept []string
	for _, seg := range strings.Split(pageID, "/") {
		switch seg {
		case "", "pages", "src", "index":
			continue
		}
		kept = append(kept, seg)
	}
	return "/" + strings.Join(kept, "/")
}
