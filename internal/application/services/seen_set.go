package services

import "sync"

// SeenSet is the session-scoped deduplication ledger for notification
// events. Keys are never evicted: the set is bounded by one day's real
// patient volume and dies with the session. A fresh session (scope switch,
// reconnect with a new synchronizer) always starts empty.
type SeenSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewSeenSet creates an empty seen-set.
func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

// MarkSeen records a key and reports whether it was seen before.
func (s *SeenSet) MarkSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return true
	}
	s.keys[key] = struct{}{}
	return false
}

// Seen reports whether a key was already recorded.
func (s *SeenSet) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Len returns the number of recorded keys.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
