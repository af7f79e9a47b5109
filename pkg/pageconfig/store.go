package pageconfig

import (
	"sync/atomic"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// Snapshot is an immutable set of resolved page configurations.
type Snapshot struct {
	pages   []*PageConfigData
	byID    map[string]*PageConfigData
	version uint64
}

// NewSnapshot builds a snapshot. Page order is kept as given and is the
// declaration order used for route tie-breaking.
func NewSnapshot(pages []*PageConfigData) (*Snapshot, error) {
	s := &Snapshot{
		pages: make([]*PageConfigData, 0, len(pages)),
		byID:  make(map[string]*PageConfigData, len(pages)),
	}
	for _, p := range pages {
		if p == nil || p.PageID == "" {
			return nil, errors.New("E231").WithDetail("page without a page id")
		}
		if _, dup := s.byID[p.PageID]; dup {
			return nil, errors.New("E233").WithDetailf("page id %q declared twice", p.PageID)
		}
		s.byID[p.PageID] = p
		s.pages = append(s.pages, p)
	}
	return s, nil
}

// Pages returns the pages in declaration order.
func (s *Snapshot) Pages() []*PageConfigData {
	return s.pages
}

// Page returns the configuration of pageID.
func (s *Snapshot) Page(pageID string) (*PageConfigData, bool) {
	p, ok := s.byID[pageID]
	return p, ok
}

// ErrorPage returns the error page, if the application defines one.
func (s *Snapshot) ErrorPage() (*PageConfigData, bool) {
	for _, p := range s.pages {
		if p.IsErrorPage {
			return p, true
		}
	}
	return nil, false
}

// Version identifies the snapshot within its Store.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Resolve returns the loadable entries of pageID for one side.
func (s *Snapshot) Resolve(pageID string, side Side) ([]Entry, error) {
	p, ok := s.byID[pageID]
	if !ok {
		return nil, errors.New("E202").
			WithDetailf("page id %q is not in the configuration (%d pages known)", pageID, len(s.pages)).
			WithSuggestion("Check the page id, or reload the configuration")
	}
	return Resolve(p, side), nil
}

// Store holds the current Snapshot. Replacement is atomic and wholesale.
type Store struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewStore creates a store holding snap.
func NewStore(snap *Snapshot) *Store {
	st := &Store{}
	if snap == nil {
		snap = &Snapshot{byID: map[string]*PageConfigData{}}
	}
	st.Swap(snap)
	return st
}

// Snapshot returns the current snapshot.
func (st *Store) Snapshot() *Snapshot {
	return st.current.Load()
}

// Swap installs snap as the current snapshot and returns its version.
// snap must not be shared with another store.
func (st *Store) Swap(snap *Snapshot) uint64 {
	snap.version = st.version.Add(1)
	st.current.Store(snap)
	return snap.version
}
