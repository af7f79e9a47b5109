package pageconfig

import (
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// configDocument is the on-disk form of a page configuration tree.
//
//	configFiles:
//	  - location: /renderer
//	    configs:
//	      onRenderHtml: { code: /renderer/+onRenderHtml.js }
//	      passToClient: { value: [pageProps] }
//	  - location: /pages/blog
//	    configs:
//	      Page: { code: /pages/blog/+Page.jsx }
//	      route: /blog/:slug
type configDocument struct {
	ConfigFiles []configFileDocument `yaml:"configFiles"`
}

type configFileDocument struct {
	Location string    `yaml:"location"`
	Configs  yaml.Node `yaml:"configs"`
}

type configEntryDocument struct {
	Code  string    `yaml:"code"`
	Value yaml.Node `yaml:"value"`
	Env   string    `yaml:"env"`
}

// configFile is one parsed config file with its sources in declaration order.
type configFile struct {
	location string
	scope    string
	depth    int
	order    int
	sources  []ConfigSource
}

// LoadFile reads a YAML page configuration and performs the override pass.
func LoadFile(filename string) (*Snapshot, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New("E230").WithDetail(filename).Wrap(err)
	}
	snap, err := Parse(data)
	if err != nil {
		return nil, errors.New("E230").WithDetail(filename).Wrap(err)
	}
	return snap, nil
}

// Parse decodes a YAML page configuration and performs the override pass:
// config files apply to every page below their scope, deeper files override
// shallower ones, and the result is one flat source list per page.
func Parse(data []byte) (*Snapshot, error) {
	var doc configDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("E230").Wrap(err).
			WithSuggestion("Check that the page configuration is valid YAML")
	}

	files := make([]*configFile, 0, len(doc.ConfigFiles))
	for i, fd := range doc.ConfigFiles {
		f, err := parseConfigFile(fd, i)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	pageIDs := discoverPages(files)
	pages := make([]*PageConfigData, 0, len(pageIDs))
	for _, pageID := range pageIDs {
		pages = append(pages, mergePage(pageID, files))
	}
	return NewSnapshot(pages)
}

func parseConfigFile(fd configFileDocument, order int) (*configFile, error) {
	loc := strings.TrimSpace(fd.Location)
	if !strings.HasPrefix(loc, "/") {
		return nil, errors.New("E231").
			WithDetailf("location %q must be an absolute path like /pages/index", fd.Location)
	}
	loc = path.Clean(loc)

	scope := loc
	if path.Base(loc) == "renderer" {
		scope = path.Dir(loc)
	}

	f := &configFile{
		location: loc,
		scope:    scope,
		depth:    segmentCount(scope),
		order:    order,
	}

	if fd.Configs.Kind == 0 {
		return f, nil
	}
	if fd.Configs.Kind != yaml.MappingNode {
		return nil, errors.New("E231").WithDetailf("configs of %s must be a mapping", loc)
	}

	// Content alternates key, value in declaration order.
	for i := 0; i+1 < len(fd.Configs.Content); i += 2 {
		name := fd.Configs.Content[i].Value
		src, err := parseSource(name, fd.Configs.Content[i+1], loc)
		if err != nil {
			return nil, err
		}
		src.Depth = f.depth
		f.sources = append(f.sources, src)
	}
	return f, nil
}

func parseSource(name string, node *yaml.Node, loc string) (ConfigSource, error) {
	src := ConfigSource{
		ConfigName: name,
		Env:        DefaultEnvironment(name),
		DefinedAt:  loc,
	}

	if !isStructuredEntry(node) {
		var v any
		if err := node.Decode(&v); err != nil {
			return src, errors.New("E231").WithDetailf("%s in %s", name, loc).Wrap(err)
		}
		src.Value = v
		return src, nil
	}

	var ed configEntryDocument
	if err := node.Decode(&ed); err != nil {
		return src, errors.New("E231").WithDetailf("%s in %s", name, loc).Wrap(err)
	}
	if ed.Env != "" {
		env, err := ParseEnvironment(ed.Env)
		if err != nil {
			return src, errors.New("E232").
				WithDetailf("%s in %s declares env %q", name, loc, ed.Env).
				WithSuggestion("Use server-only, client-only, shared-routing, shared-config or universal")
		}
		src.Env = env
	}

	hasValue := ed.Value.Kind != 0
	switch {
	case ed.Code != "" && hasValue:
		return src, errors.New("E231").WithDetailf("%s in %s sets both code and value", name, loc)
	case ed.Code != "":
		src.CodeFilePath = ed.Code
	case hasValue:
		var v any
		if err := ed.Value.Decode(&v); err != nil {
			return src, errors.New("E231").WithDetailf("%s in %s", name, loc).Wrap(err)
		}
		src.Value = v
	default:
		return src, errors.New("E231").WithDetailf("%s in %s sets neither code nor value", name, loc)
	}
	return src, nil
}

// isStructuredEntry reports whether node uses the {code, value, env} form.
func isStructuredEntry(node *yaml.Node) bool {
	if node.Kind != yaml.MappingNode || len(node.Content) == 0 {
		return false
	}
	for i := 0; i < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "code", "value", "env":
		default:
			return false
		}
	}
	for i := 0; i < len(node.Content); i += 2 {
		if k := node.Content[i].Value; k == "code" || k == "value" {
			return true
		}
	}
	return false
}

// discoverPages returns the sorted ids of locations that define a page.
func discoverPages(files []*configFile) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, f := range files {
		if f.scope != f.location {
			continue
		}
		isPage := strings.HasPrefix(path.Base(f.location), "_error")
		for _, src := range f.sources {
			if src.ConfigName == "Page" || src.ConfigName == "isErrorPage" {
				isPage = true
			}
		}
		if isPage && !seen[f.location] {
			seen[f.location] = true
			ids = append(ids, f.location)
		}
	}
	sort.Strings(ids)
	return ids
}

// mergePage flattens every config file applying to pageID, shallow first.
func mergePage(pageID string, files []*configFile) *PageConfigData {
	applicable := make([]*configFile, 0, len(files))
	for _, f := range files {
		if appliesTo(f.scope, pageID) {
			applicable = append(applicable, f)
		}
	}
	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].depth < applicable[j].depth
	})

	var sources []ConfigSource
	for _, f := range applicable {
		sources = append(sources, f.sources...)
	}
	data := NewPageConfigData(pageID, sources)
	if strings.HasPrefix(path.Base(pageID), "_error") {
		data.IsErrorPage = true
	}
	return data
}

func appliesTo(scope, pageID string) bool {
	if scope == "/" || scope == pageID {
		return true
	}
	return strings.HasPrefix(pageID, scope+"/")
}

func segmentCount(p string) int {
	p = strings.Trim(p, "/")
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}
