package pagecontext

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// alwaysPassed are serialized whatever passToClient says.
var alwaysPassed = []string{"_pageId", "is404", "routeParams", "urlOriginal"}

// DefaultPassToClient is used when a page declares no passToClient.
var DefaultPassToClient = []string{"pageProps", "urlPathname"}

// Serialize encodes the fields of pc the browser needs: alwaysPassed plus
// passToClient. Keys are written in sorted order; unknown keys are skipped.
func Serialize(pc *PageContext, passToClient []string) ([]byte, error) {
	if !pc.Assembled() {
		return nil, errors.New("E215").WithDetail("serializing a page context that was not assembled")
	}

	seen := make(map[string]bool, len(alwaysPassed)+len(passToClient))
	keys := make([]string, 0, len(alwaysPassed)+len(passToClient))
	for _, k := range append(append([]string(nil), alwaysPassed...), passToClient...) {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{}")
	for _, k := range keys {
		v, ok := pc.Get(k)
		if !ok {
			continue
		}
		var err error
		out, err = sjson.SetBytes(out, escapeKey(k), v)
		if err != nil {
			return nil, errors.New("E213").WithDetailf("page %s: field %q is not serializable", pc.PageID, k).Wrap(err)
		}
	}
	return out, nil
}

// escapeKey turns a field name into a literal sjson path.
func escapeKey(k string) string {
	var b strings.Builder
	for i := 0; i < len(k); i++ {
		switch k[i] {
		case '.', '*', '?', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(k[i])
	}
	return b.String()
}

// Serialized is a page context as received by the browser.
type Serialized struct {
	PageID      string
	Is404       *bool
	RouteParams map[string]string
	URLOriginal string

	// Fields holds every other key, pageProps included.
	Fields map[string]any
}

// ParseSerialized decodes the output of Serialize.
func ParseSerialized(data []byte) (*Serialized, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("E261").WithDetail("page context is not valid JSON")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, errors.New("E261").WithDetailf("page context is a %s, want an object", res.Type)
	}

	s := &Serialized{
		RouteParams: map[string]string{},
		Fields:      map[string]any{},
	}
	res.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "_pageId":
			s.PageID = value.String()
		case "is404":
			if value.Type != gjson.Null {
				b := value.Bool()
				s.Is404 = &b
			}
		case "routeParams":
			value.ForEach(func(k, v gjson.Result) bool {
				s.RouteParams[k.String()] = v.String()
				return true
			})
		case "urlOriginal":
			s.URLOriginal = value.String()
		default:
			s.Fields[key.String()] = value.Value()
		}
		return true
	})
	return s, nil
}
