package client

import (
	"strings"

	"github.com/vango-dev/ssrpages/pkg/routepath"
)

// Link attributes.
const (
	attrHref           = "href"
	attrTarget         = "target"
	attrDownload       = "download"
	attrRel            = "rel"
	attrSkipLink       = "data-skip-link"
	attrPrefetchAssets = "data-prefetch-static-assets"
)

// skipLink reports whether el must be left to the browser: no href, a hash
// link, an external URL, another target, a download, rel="external", or an
// explicit opt-out.
func skipLink(el Element, origin string) bool {
	href, ok := el.Attr(attrHref)
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	if routepath.IsExternal(href, origin) {
		return true
	}
	if target, ok := el.Attr(attrTarget); ok && target != "" && target != "_self" {
		return true
	}
	if _, ok := el.Attr(attrDownload); ok {
		return true
	}
	if rel, ok := el.Attr(attrRel); ok {
		for _, tok := range strings.Fields(rel) {
			if strings.EqualFold(tok, "external") {
				return true
			}
		}
	}
	if v, ok := el.Attr(attrSkipLink); ok && v == "true" {
		return true
	}
	return false
}
