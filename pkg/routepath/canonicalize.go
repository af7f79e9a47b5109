// Package routepath normalizes and parses the URLs handed to the router.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Canonical is a canonicalized pathname with its query and hash split off.
type Canonical struct {
	// Path is the canonicalized pathname.
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Hash is the fragment (without leading "#").
	Hash string

	// Changed indicates the pathname was modified.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in non-catch-all segment")
)

// CanonicalizePath normalizes a URL pathname:
//   - trailing slash removed (except for root "/")
//   - repeated slashes collapsed
//   - "." segments removed and ".." segments resolved
//
// Backslashes, NUL bytes, malformed percent-escapes and ".." escaping the
// root are rejected. Query and hash are preserved but not canonicalized.
func CanonicalizePath(input string) (Canonical, error) {
	rest, hash, _ := strings.Cut(input, "#")
	p, query, _ := strings.Cut(rest, "?")
	if p == "" {
		return Canonical{Path: "/", Query: query, Hash: hash, Changed: input != "/"}, nil
	}

	if strings.Contains(p, "\\") {
		return Canonical{}, ErrBackslashInPath
	}
	if strings.Contains(p, "\x00") || strings.Contains(strings.ToUpper(p), "%00") {
		return Canonical{}, ErrNullByteInPath
	}
	if strings.Contains(p, "%") {
		if err := validatePercentEscapes(p); err != nil {
			return Canonical{}, err
		}
	}

	segments := make([]string, 0, strings.Count(p, "/")+1)
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return Canonical{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	canon := "/" + strings.Join(segments, "/")
	return Canonical{
		Path:    canon,
		Query:   query,
		Hash:    hash,
		Changed: canon != p,
	}, nil
}

// validatePercentEscapes checks that every "%" starts a %XX hex escape.
func validatePercentEscapes(p string) error {
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+2 >= len(p) || !isHexDigit(p[i+1]) || !isHexDigit(p[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DecodeSegment decodes a single path segment. Outside catch-all segments a
// decoded "/" is rejected, since it would let one parameter span segments.
func DecodeSegment(segment string, isCatchAll bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !isCatchAll && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// Segments splits a canonical path into its raw segments.
// The root path has no segments.
func Segments(canonPath string) []string {
	p := strings.Trim(canonPath, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
