package search

import (
	"sort"
	"strings"
	"sync"
)

// EvidenceSet tracks URLs already surfaced. It only grows until Reset.
// Safe for concurrent use, so one set can be shared between runs.
type EvidenceSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewEvidenceSet returns an empty set.
func NewEvidenceSet() *EvidenceSet {
	return &EvidenceSet{seen: make(map[string]struct{})}
}

// Accept registers url and reports whether it was new. URLs are trimmed;
// an empty URL is never accepted.
func (s *EvidenceSet) Accept(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Seen reports whether url has been accepted.
func (s *EvidenceSet) Seen(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[strings.TrimSpace(url)]
	return ok
}

// Load seeds the set, e.g. from persisted sources.
func (s *EvidenceSet) Load(urls []string) {
	for _, u := range urls {
		s.Accept(u)
	}
}

// Reset clears all seen state.
func (s *EvidenceSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
}

// Len returns the number of seen URLs.
func (s *EvidenceSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Sources returns the seen URLs sorted.
func (s *EvidenceSet) Sources() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.seen))
	for u := range s.seen {
		out = append(out, u)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}
