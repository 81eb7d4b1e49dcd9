package learned

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

// MemoryStore keeps learned corrections in memory, for tests and
// ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[fingerprint.Fingerprint]corrections.LearnedEntry
}

// NewMemoryStore creates an empty in-memory learned store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[fingerprint.Fingerprint]corrections.LearnedEntry),
	}
}

func (s *MemoryStore) Lookup(ctx context.Context, fp fingerprint.Fingerprint) (corrections.LearnedEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[fp]
	return entry, ok, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, entry corrections.LearnedEntry) error {
	s.mu.Lock()
	s.entries[fingerprint.Fingerprint(entry.Fingerprint)] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Retract(ctx context.Context, fp fingerprint.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[fp]; ok {
		entry.State = corrections.StateRetracted
		entry.UpdatedAt = time.Now()
		s.entries[fp] = entry
	}
	return nil
}

func (s *MemoryStore) All(ctx context.Context) ([]corrections.LearnedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]corrections.LearnedEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
