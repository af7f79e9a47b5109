package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	ChangePageConfig ChangeType = iota
	ChangeRouteScript
	ChangeOther
)

// Change represents a detected file change.
type Change struct {
	Path string
	Type ChangeType
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the files and directories to watch. Directories are
	// watched recursively.
	Paths []string

	// Ignore patterns to skip (globs).
	Ignore []string

	// Debounce is the quiet period before changes are reported.
	Debounce time.Duration

	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher reports batches of file changes.
type Watcher struct {
	config WatcherConfig
	fsw    *fsnotify.Watcher
	files  map[string]bool
	roots  []string
	logger *slog.Logger
}

// NewWatcher creates a watcher for config.Paths. Paths that do not exist
// yet are skipped.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		config: config,
		fsw:    fsw,
		files:  make(map[string]bool),
		logger: logger,
	}

	for _, p := range config.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			logger.Warn("watch path missing", "path", abs)
			continue
		}
		if info.IsDir() {
			w.roots = append(w.roots, abs)
			if err := w.addTree(abs); err != nil {
				fsw.Close()
				return nil, err
			}
			continue
		}
		// Editors replace files on save; watch the directory.
		w.files[abs] = true
		if err := fsw.Add(filepath.Dir(abs)); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// relevant reports whether p is a watched file or lies under a watched
// directory.
func (w *Watcher) relevant(p string) bool {
	if w.files[p] {
		return true
	}
	for _, root := range w.roots {
		if isWithinDir(p, root) {
			return !w.shouldIgnore(p)
		}
	}
	return false
}

// Run reports changes to onChange until ctx is done. Changes arriving
// within the debounce window are batched, one entry per path.
func (w *Watcher) Run(ctx context.Context, onChange func([]Change)) error {
	defer w.fsw.Close()

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("watch new directory failed", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			pending[ev.Name] = classifyChange(ev.Name)
			timer.Reset(w.config.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changes := make([]Change, 0, len(pending))
			for p, t := range pending {
				changes = append(changes, Change{Path: p, Type: t})
			}
			sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
			pending = make(map[string]ChangeType)
			onChange(changes)
		}
	}
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}
		if strings.ContainsAny(pattern, "*?[") {
			if strings.Contains(pattern, "/") {
				if matched, _ := path.Match(pattern, normalized); matched {
					return true
				}
			} else if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}
		for _, seg := range strings.Split(normalized, "/") {
			if seg == pattern {
				return true
			}
		}
	}
	return false
}

// classifyChange determines the type of change based on file extension.
func classifyChange(p string) ChangeType {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		return ChangePageConfig
	case ".lua":
		return ChangeRouteScript
	default:
		return ChangeOther
	}
}

func isWithinDir(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
