package dev

import (
	"path/filepath"

	"github.com/vango-dev/ssrpages/internal/config"
)

// CollectWatchPaths returns a normalized list of watch paths for the project:
// the page configuration, the route scripts, the bundle manifest and any
// entries in dev.watch.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := []string{
		cfg.PagesPath(),
		cfg.ScriptsPath(),
		cfg.ManifestPath(),
	}
	paths = append(paths, cfg.WatchPaths()...)

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}
