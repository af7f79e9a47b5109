package pagecontext

import (
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/routepath"
)

// ExportEntry is one export of one code file, as kept in ExportsAll.
type ExportEntry struct {
	Value        any    `json:"-"`
	ConfigName   string `json:"configName"`
	ExportName   string `json:"exportName"`
	CodeFilePath string `json:"codeFilePath,omitempty"`
}

// PageContext is the canonical record of one request or navigation.
// It is created fresh by an Assembler and never reused.
type PageContext struct {
	URLOriginal string
	// Deprecated: use URLOriginal.
	URL         string
	URLPathname string
	URLParsed   *routepath.Parsed

	// RouteParams holds decoded route parameters; empty, never nil.
	RouteParams map[string]string

	// PageID is empty only when no page was loaded.
	PageID string

	// PageConfigs lists the page's config sources, most global first.
	PageConfigs []pageconfig.ConfigSource

	// Page is the rendering unit, the value of the "Page" export.
	Page any

	// Exports holds the last value of every export.
	Exports map[string]any

	// ExportsAll holds every value of every export, in load order.
	ExportsAll map[string][]ExportEntry

	// Deprecated: use Exports.
	PageExports map[string]any

	// Is404 is nil until decided.
	Is404 *bool

	PageProps map[string]any

	IsClientSide bool

	// Extra holds fields added by hooks or received from the server.
	Extra map[string]any

	assembled bool
}

// Assembled reports whether pc was produced by an Assembler.
func (pc *PageContext) Assembled() bool {
	return pc != nil && pc.assembled
}

// Get returns a top-level field by its serialized name.
func (pc *PageContext) Get(key string) (any, bool) {
	switch key {
	case "urlOriginal":
		return pc.URLOriginal, true
	case "url":
		return pc.URL, true
	case "urlPathname":
		return pc.URLPathname, true
	case "urlParsed":
		return pc.URLParsed, pc.URLParsed != nil
	case "routeParams":
		return pc.RouteParams, true
	case "_pageId", "pageId":
		return pc.PageID, true
	case "is404":
		if pc.Is404 == nil {
			return nil, true
		}
		return *pc.Is404, true
	case "pageProps":
		return pc.PageProps, pc.PageProps != nil
	case "isClientSide":
		return pc.IsClientSide, true
	}
	v, ok := pc.Extra[key]
	return v, ok
}

// Set stores an extra field. Built-in fields are not settable this way.
func (pc *PageContext) Set(key string, value any) {
	if key == "pageProps" {
		if m, ok := value.(map[string]any); ok {
			pc.PageProps = m
			return
		}
	}
	if pc.Extra == nil {
		pc.Extra = make(map[string]any)
	}
	pc.Extra[key] = value
}

// IsNotFound reports whether the context was decided to be a 404.
func (pc *PageContext) IsNotFound() bool {
	return pc.Is404 != nil && *pc.Is404
}
