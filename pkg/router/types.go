package router

import (
	"context"

	"github.com/vango-dev/ssrpages/pkg/routepath"
)

// RouteType tells how a page's route was defined.
type RouteType string

const (
	RouteTypeString     RouteType = "string"
	RouteTypeFilesystem RouteType = "filesystem"
	RouteTypeFunction   RouteType = "function"
)

// Match is the result of matching one URL against one page's route.
type Match struct {
	// PageID is the matched page.
	PageID string `json:"pageId"`

	// Matched is false for discarded candidates.
	Matched bool `json:"matched"`

	// Priority ranks candidates; higher wins.
	Priority int `json:"priority"`

	// RouteParams maps parameter names to decoded values. Never nil when
	// Matched is true.
	RouteParams map[string]string `json:"routeParams"`

	// RouteType is how the route was defined.
	RouteType RouteType `json:"routeType"`

	// RouteString is the route pattern, empty for route functions.
	RouteString string `json:"routeString,omitempty"`
}

// Request is what a route function sees of the URL being matched.
type Request struct {
	URLOriginal string
	URLPathname string
	URLParsed   *routepath.Parsed
}

// FuncResult is the outcome of a route function.
type FuncResult struct {
	Match       bool
	Precedence  int
	RouteParams map[string]string
}

// RouteFunc is a custom route matcher. Returning an error aborts matching.
type RouteFunc func(ctx context.Context, req *Request) (FuncResult, error)

// BoolRoute adapts a predicate to a RouteFunc with precedence 0.
func BoolRoute(fn func(req *Request) bool) RouteFunc {
	return func(_ context.Context, req *Request) (FuncResult, error) {
		return FuncResult{Match: fn(req)}, nil
	}
}
