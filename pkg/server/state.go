package server

import (
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/router"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// appState is everything derived from one snapshot.
type appState struct {
	snap     *pageconfig.Snapshot
	matcher  *router.Matcher
	registry *virtualmodule.Registry
}

func (s *Server) build(snap *pageconfig.Snapshot) (*appState, error) {
	modules := s.modules
	if s.modulesFor != nil {
		modules = s.modulesFor(snap)
	}
	lookup := func(codeFilePath string) (map[string]any, bool) {
		e, ok := modules[codeFilePath]
		return e, ok
	}

	opts := []router.Option{
		router.WithOrigin(s.config.Origin),
		router.WithLogger(s.logger),
		router.WithExports(lookup),
	}
	if s.scripts != nil {
		opts = append(opts, router.WithScripts(s.scripts))
	}
	m, err := router.New(snap, opts...)
	if err != nil {
		return nil, err
	}

	reg := virtualmodule.NewRegistry()
	if err := reg.RegisterSnapshot(snap, modules); err != nil {
		return nil, err
	}
	return &appState{snap: snap, matcher: m, registry: reg}, nil
}

// Prepare builds the route table and module registry of snap before it is
// swapped into the store, so an invalid configuration is reported while
// the current one keeps serving.
func (s *Server) Prepare(snap *pageconfig.Snapshot) error {
	st, err := s.build(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.prepared = map[*pageconfig.Snapshot]*appState{snap: st}
	s.mu.Unlock()
	return nil
}

// current returns the state of the store's current snapshot.
func (s *Server) current() (*appState, error) {
	snap := s.store.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil && s.state.snap == snap {
		return s.state, nil
	}
	if st, ok := s.prepared[snap]; ok {
		delete(s.prepared, snap)
		s.state = st
		s.config.Metrics.SetSnapshotVersion(snap.Version())
		return st, nil
	}

	st, err := s.build(snap)
	if err != nil {
		return nil, err
	}
	s.state = st
	s.config.Metrics.SetSnapshotVersion(snap.Version())
	return st, nil
}
