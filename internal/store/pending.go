package store

import (
	"sync"
	"time"

	"tgrelay/internal/models"
)

// PendingStore holds entries awaiting a decision. It lives only in memory:
// a restart drops every entry and later decisions on them report "expired".
type PendingStore struct {
	mu      sync.Mutex
	entries map[models.Reference]*models.PendingEntry
	now     func() time.Time
}

func NewPendingStore() *PendingStore {
	return &PendingStore{
		entries: make(map[models.Reference]*models.PendingEntry),
		now:     time.Now,
	}
}

// Create inserts or overwrites the entry for ref
func (s *PendingStore) Create(ref models.Reference, entry *models.PendingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Reference = ref
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.entries[ref] = entry
}

func (s *PendingStore) Get(ref models.Reference) (*models.PendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[ref]
	return entry, ok
}

// Remove is a no-op for unknown references
func (s *PendingStore) Remove(ref models.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, ref)
}

// Take removes and returns the entry in one step. Only one caller can ever
// win a given reference, which is what keeps delivery at-most-once.
func (s *PendingStore) Take(ref models.Reference) (*models.PendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[ref]
	if ok {
		delete(s.entries, ref)
	}
	return entry, ok
}

func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// ExpireOlderThan drops entries created before now-ttl and returns them
func (s *PendingStore) ExpireOlderThan(ttl time.Duration) []*models.PendingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	var expired []*models.PendingEntry
	for ref, entry := range s.entries {
		if entry.CreatedAt.Before(cutoff) {
			expired = append(expired, entry)
			delete(s.entries, ref)
		}
	}
	return expired
}

// CountOlderThan reports how many entries were created before now-age
func (s *PendingStore) CountOlderThan(age time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-age)
	count := 0
	for _, entry := range s.entries {
		if entry.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count
}
