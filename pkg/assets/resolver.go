package assets

// Resolver maps asset sources to the paths a Fetcher understands.
type Resolver interface {
	// Asset returns the path of source and whether it names a built asset.
	// Development resolvers report false: nothing is fetched ahead of time.
	Asset(source string) (string, bool)
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver resolves through m, prepending prefix ("/assets/").
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{
		manifest: m,
		prefix:   prefix,
	}
}

func (r *manifestResolver) Asset(source string) (string, bool) {
	resolved, ok := r.manifest.Lookup(source)
	if !ok {
		return "", false
	}
	return r.prefix + resolved, true
}

type passthrough struct{}

// NewPassthroughResolver resolves nothing. Use it in development, where
// modules are served unbundled.
func NewPassthroughResolver() Resolver {
	return passthrough{}
}

func (passthrough) Asset(string) (string, bool) {
	return "", false
}
