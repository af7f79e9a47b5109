package virtualmodule

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
)

// DefaultCacheSize bounds the number of generated sources kept in memory.
const DefaultCacheSize = 512

type cacheKey struct {
	id      ID
	version uint64
	opts    Options
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithOptions sets the generation variants.
func WithOptions(opts Options) GeneratorOption {
	return func(g *Generator) { g.opts = opts }
}

// WithCacheSize sets the number of cached sources.
func WithCacheSize(n int) GeneratorOption {
	return func(g *Generator) { g.cacheSize = n }
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// Generator answers bundler requests for page code modules from the
// current snapshot of a Store.
type Generator struct {
	store     *pageconfig.Store
	opts      Options
	cacheSize int
	cache     *lru.Cache[cacheKey, string]
	logger    *slog.Logger
}

// NewGenerator creates a generator reading from store.
func NewGenerator(store *pageconfig.Store, opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{
		store:     store,
		cacheSize: DefaultCacheSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	cache, err := lru.New[cacheKey, string](g.cacheSize)
	if err != nil {
		return nil, err
	}
	g.cache = cache
	return g, nil
}

// Generate returns the source of the module named by rawID.
//
// The asset-discovery variant of a server module has the same source as
// the server module; rewriting its imports is left to the bundler.
func (g *Generator) Generate(rawID string) (string, error) {
	id, err := Parse(rawID)
	if err != nil {
		return "", err
	}
	return g.GenerateID(id)
}

// GenerateID is Generate for an already parsed id.
func (g *Generator) GenerateID(id ID) (string, error) {
	snap := g.store.Snapshot()
	key := cacheKey{id: id, version: snap.Version(), opts: g.opts}
	if src, ok := g.cache.Get(key); ok {
		return src, nil
	}

	page, ok := snap.Page(id.PageID)
	if !ok {
		return "", errors.New("E202").
			WithDetailf("virtual module %s names page %q, which is not in the configuration", id, id.PageID)
	}

	src := GenerateSource(page, id.ClientSide, g.opts)
	g.cache.Add(key, src)
	g.logger.Debug("generated virtual module",
		"id", id.String(),
		"page_id", id.PageID,
		"side", id.Side().String(),
		"snapshot", snap.Version(),
		"bytes", len(src))
	return src, nil
}

// Purge drops every cached source.
func (g *Generator) Purge() {
	g.cache.Purge()
}
