package client

import (
	"sync"

	"github.com/vango-dev/ssrpages/pkg/routepath"
)

// Session is the client state of one full page load.
// It is safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	prefetched   map[string]struct{}
	instrumented map[Element]struct{}
	disabled     bool
	disabledErr  error
}

// NewSession starts an empty session.
func NewSession() *Session {
	return &Session{
		prefetched:   make(map[string]struct{}),
		instrumented: make(map[Element]struct{}),
	}
}

// prefetchKey identifies a URL in the prefetch record by its pathname.
func prefetchKey(url string) string {
	if p, err := routepath.Parse(url); err == nil {
		return p.Pathname
	}
	return url
}

// MarkPrefetched adds url to the prefetch record. It reports false when the
// URL was already present; the check and the insert are one step.
func (s *Session) MarkPrefetched(url string) bool {
	key := prefetchKey(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefetched[key]; ok {
		return false
	}
	s.prefetched[key] = struct{}{}
	return true
}

// IsPrefetched reports whether url is in the prefetch record.
func (s *Session) IsPrefetched(url string) bool {
	key := prefetchKey(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.prefetched[key]
	return ok
}

// markInstrumented records el and reports whether it was new.
func (s *Session) markInstrumented(el Element) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instrumented[el]; ok {
		return false
	}
	s.instrumented[el] = struct{}{}
	return true
}

// DisableClientRouting turns client-side routing off for the rest of the
// session. The first cause is kept.
func (s *Session) DisableClientRouting(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.disabled {
		s.disabled = true
		s.disabledErr = cause
	}
}

// ClientRoutingDisabled reports whether navigations must reload in full.
func (s *Session) ClientRoutingDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// DisabledCause returns the error that disabled client routing.
func (s *Session) DisabledCause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabledErr
}
