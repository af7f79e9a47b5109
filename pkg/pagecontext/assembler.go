package pagecontext

import (
	"log/slog"
	"sort"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/routepath"
	"github.com/vango-dev/ssrpages/pkg/router"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// pageExport is the export holding the rendering unit.
const pageExport = "Page"

// LoadedPage is a page's configuration with the code files loaded for one
// side.
type LoadedPage struct {
	Config    *pageconfig.PageConfigData
	CodeFiles []virtualmodule.CodeFile
}

// Input is everything the Assembler needs for one request.
type Input struct {
	// URLOriginal is the URL as received.
	URLOriginal string

	// Match is the route match, nil when no page matched.
	Match *router.Match

	// Page is the loaded page: the matched page, or the error page.
	Page *LoadedPage

	IsClientSide bool

	// RenderingError marks an error page rendered because rendering the
	// matched page failed. Such contexts are not 404s.
	RenderingError bool

	// Data holds fields computed elsewhere (pageProps, hook results,
	// fields received from the server).
	Data map[string]any
}

// Assembler builds PageContexts. The zero value is ready to use.
type Assembler struct {
	Logger *slog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	return &Assembler{Logger: logger}
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Assemble builds and validates a PageContext. Any violated invariant is
// reported as a usage error naming the offending value.
func (a *Assembler) Assemble(in Input) (*PageContext, error) {
	pc := &PageContext{
		URLOriginal:  in.URLOriginal,
		URL:          in.URLOriginal,
		IsClientSide: in.IsClientSide,
	}

	if err := assignURLs(pc); err != nil {
		return nil, err
	}
	if err := assignRouteParams(pc, in.Match); err != nil {
		return nil, err
	}
	if err := assignPage(pc, in); err != nil {
		return nil, err
	}
	if err := checkExports(pc); err != nil {
		return nil, err
	}
	for k, v := range in.Data {
		pc.Set(k, v)
	}

	sortPageConfigs(pc.PageConfigs)

	is404 := in.Match == nil && !in.RenderingError
	pc.Is404 = &is404
	if pc.PageProps == nil {
		pc.PageProps = make(map[string]any)
	}
	pc.PageProps["is404"] = is404

	pc.assembled = true
	a.logger().Debug("page context assembled",
		"url", pc.URLOriginal,
		"page_id", pc.PageID,
		"is404", is404,
		"client_side", pc.IsClientSide)
	return pc, nil
}

func assignURLs(pc *PageContext) error {
	if pc.URLOriginal == "" {
		return errors.New("E210").WithDetail("urlOriginal is empty")
	}
	parsed, err := routepath.Parse(pc.URLOriginal)
	if err != nil {
		return errors.New("E210").WithDetailf("urlOriginal %q cannot be parsed", pc.URLOriginal).Wrap(err)
	}
	pc.URLParsed = parsed
	pc.URLPathname = parsed.Pathname

	if parsed.Href() != pc.URLOriginal {
		return errors.New("E210").
			WithDetailf("urlParsed rebuilds %q, urlOriginal is %q", parsed.Href(), pc.URLOriginal)
	}
	return nil
}

func assignRouteParams(pc *PageContext, m *router.Match) error {
	pc.RouteParams = map[string]string{}
	if m == nil {
		return nil
	}
	if !m.Matched {
		return errors.New("E211").WithDetailf("match for page %s is not a match", m.PageID)
	}
	for k, v := range m.RouteParams {
		if k == "" {
			return errors.New("E211").WithDetailf("page %s: route parameter with an empty name", m.PageID)
		}
		pc.RouteParams[k] = v
	}
	return nil
}

func assignPage(pc *PageContext, in Input) error {
	if in.Page == nil || in.Page.Config == nil {
		if in.Match != nil {
			return errors.New("E212").
				WithDetailf("page %s matched %q but no page was loaded", in.Match.PageID, in.URLOriginal)
		}
		return nil
	}

	cfg := in.Page.Config
	if in.Match != nil {
		if cfg.IsErrorPage && !in.RenderingError {
			return errors.New("E214").
				WithDetailf("error page %s loaded for %q, which matched page %s", cfg.PageID, in.URLOriginal, in.Match.PageID)
		}
		if !cfg.IsErrorPage && cfg.PageID != in.Match.PageID {
			return errors.New("E214").
				WithDetailf("match names page %s, loaded page is %s", in.Match.PageID, cfg.PageID)
		}
	}

	for _, cf := range in.Page.CodeFiles {
		if cf.Exports == nil {
			return errors.New("E213").
				WithDetailf("page %s: code file %s (%s) has no export table", cfg.PageID, cf.CodeFilePath, cf.ConfigName)
		}
	}

	pc.PageID = cfg.PageID
	pc.PageConfigs = append([]pageconfig.ConfigSource(nil), cfg.Sources...)
	collectExports(pc, in.Page)

	page, ok := pc.Exports[pageExport]
	if !ok || page == nil {
		return errors.New("E212").
			WithDetailf("page %s has no %s export (exports: %v)", cfg.PageID, pageExport, sortedKeys(pc.Exports)).
			WithSuggestion("Add a +Page file to the page, or to an ancestor renderer/ directory")
	}
	pc.Page = page
	return nil
}

// collectExports merges inline config values and loaded code files in
// declaration order. A code file's "default" export is filed under the
// config name.
func collectExports(pc *PageContext, lp *LoadedPage) {
	pc.Exports = make(map[string]any)
	pc.ExportsAll = make(map[string][]ExportEntry)
	pc.PageExports = pc.Exports

	byConfig := make(map[string][]virtualmodule.CodeFile, len(lp.CodeFiles))
	for _, cf := range lp.CodeFiles {
		byConfig[cf.ConfigName] = append(byConfig[cf.ConfigName], cf)
	}

	add := func(e ExportEntry) {
		pc.Exports[e.ExportName] = e.Value
		pc.ExportsAll[e.ExportName] = append(pc.ExportsAll[e.ExportName], e)
	}

	for _, src := range lp.Config.Sources {
		if !src.IsCode() {
			if src.Env == pageconfig.EnvSharedRouting {
				continue
			}
			add(ExportEntry{Value: src.Value, ConfigName: src.ConfigName, ExportName: src.ConfigName})
			continue
		}
		for _, cf := range byConfig[src.ConfigName] {
			for _, name := range sortedKeys(cf.Exports) {
				exportName := name
				if name == "default" {
					exportName = cf.ConfigName
				}
				add(ExportEntry{
					Value:        cf.Exports[name],
					ConfigName:   cf.ConfigName,
					ExportName:   exportName,
					CodeFilePath: cf.CodeFilePath,
				})
			}
		}
	}
}

func checkExports(pc *PageContext) error {
	if pc.PageID == "" {
		pc.Exports = map[string]any{}
		pc.ExportsAll = map[string][]ExportEntry{}
		pc.PageExports = pc.Exports
		return nil
	}
	if pc.Exports == nil || pc.ExportsAll == nil || pc.PageExports == nil {
		return errors.New("E213").WithDetailf("page %s", pc.PageID)
	}
	return nil
}

// sortPageConfigs orders sources from most global to most specific,
// keeping declaration order within a depth.
func sortPageConfigs(srcs []pageconfig.ConfigSource) {
	sort.SliceStable(srcs, func(i, j int) bool { return srcs[i].Depth < srcs[j].Depth })
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
