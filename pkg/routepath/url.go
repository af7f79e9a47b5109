package routepath

import (
	"net/url"
	"strings"
)

// Parsed is the structured form of a request URL.
type Parsed struct {
	// Origin is "scheme://host", empty for relative URLs.
	Origin string `json:"origin"`

	// Pathname is the canonical, percent-decoded pathname.
	Pathname string `json:"pathname"`

	// PathnameOriginal is the pathname as received.
	PathnameOriginal string `json:"pathnameOriginal"`

	// Search holds the last value of every query parameter.
	Search map[string]string `json:"search"`

	// SearchAll holds every value of every query parameter.
	SearchAll map[string][]string `json:"searchAll"`

	// SearchOriginal is the raw query including "?", or empty.
	SearchOriginal string `json:"searchOriginal"`

	// Hash is the decoded fragment.
	Hash string `json:"hash"`

	// HashOriginal is the raw fragment including "#", or empty.
	HashOriginal string `json:"hashOriginal"`
}

// Href rebuilds the URL from its original parts.
func (p *Parsed) Href() string {
	return p.Origin + p.PathnameOriginal + p.SearchOriginal + p.HashOriginal
}

// Parse splits urlOriginal into its structured parts. Absolute URLs keep
// their origin; relative URLs must start with "/".
func Parse(urlOriginal string) (*Parsed, error) {
	origin, rest, err := splitOrigin(urlOriginal)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(rest, "/") {
		if rest != "" && !strings.HasPrefix(rest, "?") && !strings.HasPrefix(rest, "#") {
			return nil, ErrInvalidPath
		}
	}

	canon, err := CanonicalizePath(rest)
	if err != nil {
		return nil, err
	}

	pathname, err := url.PathUnescape(canon.Path)
	if err != nil {
		return nil, ErrInvalidPercentEscape
	}

	beforeHash, _, hasHash := strings.Cut(rest, "#")
	pathOriginal, _, hasQuery := strings.Cut(beforeHash, "?")

	parsed := &Parsed{
		Origin:           origin,
		Pathname:         pathname,
		PathnameOriginal: pathOriginal,
		Search:           map[string]string{},
		SearchAll:        map[string][]string{},
	}
	if hasQuery {
		parsed.SearchOriginal = "?" + canon.Query
		// Malformed pairs are dropped; the rest stay usable.
		values, _ := url.ParseQuery(canon.Query)
		for k, vs := range values {
			parsed.SearchAll[k] = vs
			if len(vs) > 0 {
				parsed.Search[k] = vs[len(vs)-1]
			}
		}
	}
	if hasHash {
		parsed.HashOriginal = "#" + canon.Hash
		if h, err := url.PathUnescape(canon.Hash); err == nil {
			parsed.Hash = h
		} else {
			parsed.Hash = canon.Hash
		}
	}
	return parsed, nil
}

// splitOrigin separates "scheme://authority" from the rest of an absolute
// URL. The origin is returned as written.
func splitOrigin(raw string) (origin, rest string, err error) {
	start := 0
	switch {
	case strings.HasPrefix(raw, "//"):
		start = 2
	case hasScheme(raw):
		start = strings.Index(raw, "://") + 3
	default:
		return "", raw, nil
	}
	end := len(raw)
	if i := strings.IndexAny(raw[start:], "/?#"); i >= 0 {
		end = start + i
	}
	if end == start {
		return "", "", ErrInvalidPath
	}
	if start > 2 {
		if _, err := url.Parse(raw[:end]); err != nil {
			return "", "", ErrInvalidPath
		}
	}
	return raw[:end], raw[end:], nil
}

func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return false
	}
	for _, c := range raw[:i] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

// IsExternal reports whether raw points to a different origin than origin.
// Protocol-relative URLs and non-http schemes (mailto:, tel:) are external.
// An empty origin treats every absolute URL as external.
func IsExternal(raw, origin string) bool {
	if strings.HasPrefix(raw, "//") {
		return true
	}
	if i := strings.Index(raw, ":"); i > 0 && !strings.ContainsAny(raw[:i], "/?#") {
		if !hasScheme(raw) {
			return true
		}
		o, _, err := splitOrigin(raw)
		if err != nil {
			return true
		}
		return origin == "" || !strings.EqualFold(o, origin)
	}
	return false
}

// StripOrigin returns raw without its origin when it matches origin.
func StripOrigin(raw, origin string) string {
	if origin != "" && len(raw) >= len(origin) && strings.EqualFold(raw[:len(origin)], origin) {
		rest := raw[len(origin):]
		if rest == "" {
			return "/"
		}
		if strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "?") || strings.HasPrefix(rest, "#") {
			return rest
		}
	}
	return raw
}
