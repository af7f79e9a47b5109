package main

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/server"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// shellRenderer renders the HTML shell of pages that bring no
// onRenderHtml the CLI can run: the serialized page context and the
// page's client module, which renders the page in the browser.
type shellRenderer struct {
	passToClient []string
	resolver     assets.Resolver
}

func (r *shellRenderer) render(_ context.Context, pc *pagecontext.PageContext) (string, error) {
	data, err := pagecontext.Serialize(pc, server.PassToClient(pc, r.passToClient))
	if err != nil {
		return "", err
	}

	// A 404 without an error page has no page and no client module.
	entry := ""
	if pc.PageID != "" {
		id := virtualmodule.NewID(pc.PageID, pageconfig.SideClient).String()
		entry = server.VirtualPrefix + id
		if r.resolver != nil {
			if built, ok := r.resolver.Asset(id); ok {
				entry = built
			}
		}
	}

	title := pc.PageID
	if title == "" && pc.IsNotFound() {
		title = "Page not found"
	}
	if s, ok := pc.Exports["title"].(string); ok && s != "" {
		title = s
	}
	if v, ok := pc.Get("title"); ok {
		if s, ok := v.(string); ok && s != "" {
			title = s
		}
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n<div id=\"page-view\"></div>\n")
	// A value containing </script> must not close the element.
	fmt.Fprintf(&b, "<script id=\"ssrpages_pageContext\" type=\"application/json\">%s</script>\n",
		strings.ReplaceAll(string(data), "</", "<\\/"))
	if entry != "" {
		fmt.Fprintf(&b, "<script type=\"module\" src=\"%s\"></script>\n", html.EscapeString(entry))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
