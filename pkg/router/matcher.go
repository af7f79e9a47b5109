package router

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"sort"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/routepath"
)

// routeConfig is the config name holding a page's route definition.
const routeConfig = "route"

// Route is the compiled route definition of one page.
type Route struct {
	PageID  string
	Type    RouteType
	Pattern *Pattern  // string and filesystem routes
	Func    RouteFunc // function routes
}

// String describes the route for listings.
func (r Route) String() string {
	if r.Pattern != nil {
		return r.Pattern.String()
	}
	return "<function>"
}

// ExportLookup returns the exports of a code file, if known.
type ExportLookup func(codeFilePath string) (map[string]any, bool)

// Option configures a Matcher.
type Option func(*Matcher)

// WithOrigin sets the application origin ("https://example.com"). Absolute
// URLs on another origin are never matched.
func WithOrigin(origin string) Option {
	return func(m *Matcher) { m.origin = origin }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// WithScripts sets the file system .lua route files are read from.
func WithScripts(fsys fs.FS) Option {
	return func(m *Matcher) { m.scripts = fsys }
}

// WithExports resolves route code files that are not Lua scripts. The
// file's "default" export must be a route string or a RouteFunc.
func WithExports(lookup ExportLookup) Option {
	return func(m *Matcher) { m.exports = lookup }
}

// Matcher finds the page for a URL.
// A Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	routes  []Route
	origin  string
	logger  *slog.Logger
	scripts fs.FS
	exports ExportLookup
}

// New compiles the routes of every page in snap, in snapshot order.
// Error pages are not routable and are left out.
func New(snap *pageconfig.Snapshot, opts ...Option) (*Matcher, error) {
	m := &Matcher{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}

	for _, page := range snap.Pages() {
		if page.IsErrorPage {
			continue
		}
		r, err := m.compile(page)
		if err != nil {
			return nil, err
		}
		m.routes = append(m.routes, r)
	}
	return m, nil
}

func (m *Matcher) compile(page *pageconfig.PageConfigData) (Route, error) {
	src, ok := page.Source(routeConfig)
	if !ok {
		p, err := ParsePattern(FilesystemRoute(page.PageID))
		if err != nil {
			return Route{}, err
		}
		return Route{PageID: page.PageID, Type: RouteTypeFilesystem, Pattern: p}, nil
	}

	value := src.Value
	if src.IsCode() {
		if path.Ext(src.CodeFilePath) == ".lua" {
			return m.compileLua(page.PageID, src.CodeFilePath)
		}
		exports, found := m.lookupExports(src.CodeFilePath)
		if !found {
			return Route{}, errors.New("E204").
				WithDetailf("route of page %s references %s", page.PageID, src.CodeFilePath)
		}
		value = exports["default"]
	}

	switch v := value.(type) {
	case string:
		p, err := ParsePattern(v)
		if err != nil {
			return Route{}, err
		}
		return Route{PageID: page.PageID, Type: RouteTypeString, Pattern: p}, nil
	case RouteFunc:
		return Route{PageID: page.PageID, Type: RouteTypeFunction, Func: v}, nil
	case func(context.Context, *Request) (FuncResult, error):
		return Route{PageID: page.PageID, Type: RouteTypeFunction, Func: v}, nil
	case func(*Request) bool:
		return Route{PageID: page.PageID, Type: RouteTypeFunction, Func: BoolRoute(v)}, nil
	}
	return Route{}, errors.New("E240").
		WithDetailf("page %s: route must be a string or a function, got %T", page.PageID, value)
}

func (m *Matcher) compileLua(pageID, file string) (Route, error) {
	if m.scripts == nil {
		return Route{}, errors.New("E204").
			WithDetailf("page %s: no script directory configured for %s", pageID, file)
	}
	src, err := fs.ReadFile(m.scripts, scriptPath(file))
	if err != nil {
		return Route{}, errors.New("E204").WithDetailf("page %s", pageID).Wrap(err)
	}
	lr, err := CompileLuaRoute(file, string(src))
	if err != nil {
		return Route{}, err
	}
	return Route{PageID: pageID, Type: RouteTypeFunction, Func: lr.Func()}, nil
}

func (m *Matcher) lookupExports(file string) (map[string]any, bool) {
	if m.exports == nil {
		return nil, false
	}
	return m.exports(file)
}

// scriptPath turns a code file path into an fs.FS path.
func scriptPath(file string) string {
	p := path.Clean("/" + file)
	return p[1:]
}

// Routes returns the compiled routes in declaration order.
func (m *Matcher) Routes() []Route {
	return m.routes
}

// Match returns the best match for rawURL, or nil when no page matches.
//
// The candidate with the highest priority wins; on equal priority the
// route declared first wins. External URLs are never matched.
func (m *Matcher) Match(ctx context.Context, rawURL string) (*Match, error) {
	candidates, err := m.candidates(ctx, rawURL, true)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	return &candidates[0], nil
}

// MatchAll returns every matching candidate, best first.
func (m *Matcher) MatchAll(ctx context.Context, rawURL string) ([]Match, error) {
	return m.candidates(ctx, rawURL, false)
}

func (m *Matcher) candidates(ctx context.Context, rawURL string, bestOnly bool) ([]Match, error) {
	if routepath.IsExternal(rawURL, m.origin) {
		m.logger.Debug("external url not matched", "url", rawURL)
		return nil, nil
	}

	rel := routepath.StripOrigin(rawURL, m.origin)
	parsed, err := routepath.Parse(rel)
	if err != nil {
		m.logger.Debug("url not routable", "url", rawURL, "error", err)
		return nil, nil
	}
	canon, err := routepath.CanonicalizePath(rel)
	if err != nil {
		return nil, nil
	}
	segs := routepath.Segments(canon.Path)
	req := &Request{URLOriginal: rawURL, URLPathname: parsed.Pathname, URLParsed: parsed}

	var out []Match
	for _, r := range m.routes {
		cand, err := r.match(ctx, segs, req)
		if err != nil {
			return nil, err
		}
		if !cand.Matched {
			continue
		}
		if bestOnly {
			if len(out) == 0 {
				out = append(out, cand)
			} else if cand.Priority > out[0].Priority {
				out[0] = cand
			}
			continue
		}
		out = append(out, cand)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })

	if len(out) > 0 {
		m.logger.Debug("route matched", "url", rawURL, "page_id", out[0].PageID, "priority", out[0].Priority)
	}
	return out, nil
}

func (r Route) match(ctx context.Context, segs []string, req *Request) (Match, error) {
	if r.Func != nil {
		res, err := r.Func(ctx, req)
		if err != nil {
			if errors.HasCode(err, "E241") || errors.HasCode(err, "E242") {
				return Match{}, err
			}
			return Match{}, errors.New("E241").WithDetailf("page %s", r.PageID).Wrap(err)
		}
		if !res.Match {
			return Match{PageID: r.PageID}, nil
		}
		params := res.RouteParams
		if params == nil {
			params = map[string]string{}
		}
		return Match{
			PageID:      r.PageID,
			Matched:     true,
			Priority:    res.Precedence,
			RouteParams: params,
			RouteType:   r.Type,
		}, nil
	}

	params, ok := r.Pattern.Match(segs)
	if !ok {
		return Match{PageID: r.PageID}, nil
	}
	return Match{
		PageID:      r.PageID,
		Matched:     true,
		Priority:    r.Pattern.Priority(),
		RouteParams: params,
		RouteType:   r.Type,
		RouteString: r.Pattern.String(),
	}, nil
}
