package router

import (
	"strings"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/routepath"
)

type segmentKind int

const (
	segStatic segmentKind = iota
	segParam
	segCatchAll
)

// CatchAllParam is the route parameter holding the remainder matched by "*".
const CatchAllParam = "*"

type segment struct {
	kind  segmentKind
	value string // literal text or parameter name
}

// Pattern is a compiled route string such as "/blog/:slug" or "/docs/*".
type Pattern struct {
	raw      string
	segments []segment
	static   int
	params   int
	catchAll bool
}

// ParsePattern compiles a route string.
//
// Segments starting with ":" or "@" are parameters, a final "*" captures the
// remaining path. Everything else must match literally.
func ParsePattern(route string) (*Pattern, error) {
	if !strings.HasPrefix(route, "/") {
		return nil, errors.New("E240").
			WithDetailf("route %q does not start with /", route).
			WithSuggestion("Write routes as absolute paths, e.g. \"/blog/:slug\"")
	}

	p := &Pattern{raw: route}
	seen := make(map[string]bool)
	raw := routepath.Segments(route)
	for i, s := range raw {
		switch {
		case s == "*":
			if i != len(raw)-1 {
				return nil, errors.New("E240").WithDetailf("route %q: * must be the last segment", route)
			}
			p.segments = append(p.segments, segment{kind: segCatchAll, value: CatchAllParam})
			p.catchAll = true
		case strings.HasPrefix(s, ":") || strings.HasPrefix(s, "@"):
			name := s[1:]
			if name == "" {
				return nil, errors.New("E240").WithDetailf("route %q: parameter without a name", route)
			}
			if seen[name] {
				return nil, errors.New("E240").WithDetailf("route %q: parameter %q used twice", route, name)
			}
			seen[name] = true
			p.segments = append(p.segments, segment{kind: segParam, value: name})
			p.params++
		default:
			p.segments = append(p.segments, segment{kind: segStatic, value: s})
			p.static++
		}
	}
	return p, nil
}

// String returns the route string the pattern was compiled from.
func (p *Pattern) String() string {
	return p.raw
}

// IsLiteral reports whether the pattern has no parameters.
func (p *Pattern) IsLiteral() bool {
	return p.params == 0 && !p.catchAll
}

// Priority ranks the pattern: static segments weigh more than parameters,
// and a catch-all ranks below an otherwise equal pattern without one.
// Literal routes outrank every parameterized route.
func (p *Pattern) Priority() int {
	prio := 10*p.static + 5*p.params
	if !p.catchAll {
		prio++
	}
	if p.IsLiteral() {
		prio += 1000
	}
	return prio
}

// Match tests the raw segments of a canonical path against the pattern and
// returns the decoded route parameters.
func (p *Pattern) Match(segs []string) (map[string]string, bool) {
	params := make(map[string]string, p.params+1)
	for i, seg := range p.segments {
		switch seg.kind {
		case segCatchAll:
			rest, err := routepath.DecodeSegment(strings.Join(segs[min(i, len(segs)):], "/"), true)
			if err != nil {
				return nil, false
			}
			params[seg.value] = rest
			return params, true
		case segParam:
			if i >= len(segs) {
				return nil, false
			}
			v, err := routepath.DecodeSegment(segs[i], false)
			if err != nil || v == "" {
				return nil, false
			}
			params[seg.value] = v
		default:
			if i >= len(segs) {
				return nil, false
			}
			v, err := routepath.DecodeSegment(segs[i], true)
			if err != nil || v != seg.value {
				return nil, false
			}
		}
	}
	if len(segs) != len(p.segments) {
		return nil, false
	}
	return params, true
}
