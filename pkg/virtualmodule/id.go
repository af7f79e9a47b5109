package virtualmodule

import (
	"strings"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
)

const (
	// Prefix starts every page code module id.
	Prefix = "virtual:ssrpages:pageCode:"

	// AssetsQuery marks the asset-discovery variant of a server module.
	AssetsQuery = "?extractAssets&lang.js"

	// nullByte is prepended by bundlers to resolved virtual ids.
	nullByte = "\x00"

	expectedShape = Prefix + "(client|server):<pageId>[" + AssetsQuery + "]"
)

// ID identifies one page code module.
type ID struct {
	PageID        string
	ClientSide    bool
	ExtractAssets bool
}

// NewID returns the id of pageID's module for side.
func NewID(pageID string, side pageconfig.Side) ID {
	return ID{PageID: pageID, ClientSide: side == pageconfig.SideClient}
}

// Side returns the side the module is built for.
func (id ID) Side() pageconfig.Side {
	if id.ClientSide {
		return pageconfig.SideClient
	}
	return pageconfig.SideServer
}

// String encodes the id.
func (id ID) String() string {
	s := Prefix + id.Side().String() + ":" + id.PageID
	if id.ExtractAssets {
		s += AssetsQuery
	}
	return s
}

// AssetsVariant returns the asset-discovery variant of id.
func (id ID) AssetsVariant() ID {
	id.ExtractAssets = true
	return id
}

// IsVirtual reports whether s looks like a page code module id.
// It does not validate the rest of the id.
func IsVirtual(s string) bool {
	return strings.HasPrefix(strings.TrimPrefix(s, nullByte), Prefix)
}

// Parse decodes a page code module id. Malformed ids fail with E201
// carrying the offending id and the expected shape.
func Parse(s string) (ID, error) {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(s, nullByte), Prefix)
	if !ok {
		return ID{}, malformed(s, "missing prefix "+Prefix)
	}

	var id ID
	if r, found := strings.CutSuffix(rest, AssetsQuery); found {
		rest = r
		id.ExtractAssets = true
	}
	if strings.Contains(rest, "?") {
		return ID{}, malformed(s, "unexpected query")
	}

	side, pageID, found := strings.Cut(rest, ":")
	if !found {
		return ID{}, malformed(s, "missing side")
	}
	switch side {
	case "client":
		id.ClientSide = true
	case "server":
	default:
		return ID{}, malformed(s, "side must be client or server, got "+side)
	}
	if pageID == "" {
		return ID{}, malformed(s, "empty page id")
	}
	id.PageID = pageID
	return id, nil
}

func malformed(id, reason string) *errors.SSRError {
	return errors.New("E201").
		WithDetailf("%q: %s", id, reason).
		WithSuggestion("Expected " + expectedShape)
}
