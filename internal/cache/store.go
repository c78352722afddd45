package cache

import (
	"sync"

	"chatwindow/internal/domain"
)

// Store holds the current page window. All mutation runs through Apply so
// that each inbound event's read-modify-write of the full page completes
// before the next one starts; ReplacePage is the atomic commit point.
type Store struct {
	mu     sync.RWMutex
	page   *domain.MessagePage
	loaded bool
}

func NewStore() *Store {
	return &Store{}
}

// GetPage returns a copy of the current page and whether one has been loaded.
// Readers never observe a half-applied merge.
func (s *Store) GetPage() (domain.MessagePage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return domain.MessagePage{}, false
	}
	return s.page.Clone(), true
}

// ReplacePage swaps the whole window.
func (s *Store) ReplacePage(page domain.MessagePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := page.Clone()
	s.page = &p
	s.loaded = true
}

// Apply runs fn against the current page under the write lock and commits the
// result. fn receives a copy; partial state never leaks to readers. When no
// page is loaded yet fn receives an empty page.
func (s *Store) Apply(fn func(domain.MessagePage) domain.MessagePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur domain.MessagePage
	if s.loaded {
		cur = s.page.Clone()
	}
	next := fn(cur)
	s.page = &next
	s.loaded = true
}

// Merge applies an incoming page through MergePage under the store lock.
func (s *Store) Merge(incoming domain.MessagePage, dir Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := MergePage(s.page, incoming, dir)
	s.page = &next
	s.loaded = true
}
