package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

// MemoryStore implements an in-memory store with TTL expiry and LRU
// eviction once a capacity bound is configured.
type MemoryStore struct {
	config    Config
	mu        sync.RWMutex
	entries   map[fingerprint.Fingerprint]*memoryEntry
	lruList   *lruList
	stats     Stats
	closeChan chan struct{}
	cleanupWG sync.WaitGroup
}

type memoryEntry struct {
	entry   Entry
	element *lruElement
}

// LRU list implementation.
type lruElement struct {
	fp   fingerprint.Fingerprint
	prev *lruElement
	next *lruElement
}

type lruList struct {
	head *lruElement
	tail *lruElement
	size int
}

func newLRUList() *lruList {
	head := &lruElement{}
	tail := &lruElement{}
	head.next = tail
	tail.prev = head
	return &lruList{head: head, tail: tail}
}

func (l *lruList) moveToFront(elem *lruElement) {
	if elem.prev == l.head {
		return // Already at front
	}
	// Remove from current position
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	// Insert at front
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
}

func (l *lruList) pushFront(fp fingerprint.Fingerprint) *lruElement {
	elem := &lruElement{fp: fp}
	elem.prev = l.head
	elem.next = l.head.next
	l.head.next.prev = elem
	l.head.next = elem
	l.size++
	return elem
}

func (l *lruList) removeElement(elem *lruElement) {
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	l.size--
}

func (l *lruList) back() *lruElement {
	if l.tail.prev == l.head {
		return nil
	}
	return l.tail.prev
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(config Config) *MemoryStore {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}

	store := &MemoryStore{
		config:    config,
		entries:   make(map[fingerprint.Fingerprint]*memoryEntry),
		lruList:   newLRUList(),
		closeChan: make(chan struct{}),
		stats: Stats{
			MaxEntries: int64(config.MaxEntries),
		},
	}

	// Start cleanup routine
	store.cleanupWG.Add(1)
	go store.cleanupRoutine()

	return store
}

func (s *MemoryStore) Get(ctx context.Context, fp fingerprint.Fingerprint) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, exists := s.entries[fp]
	if !exists {
		atomic.AddInt64(&s.stats.Misses, 1)
		return Entry{}, false, nil
	}

	// Lazy expiry on read
	if me.entry.Expired(time.Now()) {
		delete(s.entries, fp)
		s.lruList.removeElement(me.element)
		atomic.AddInt64(&s.stats.Entries, -1)
		atomic.AddInt64(&s.stats.Misses, 1)
		return Entry{}, false, nil
	}

	// Move to front of LRU list
	s.lruList.moveToFront(me.element)

	atomic.AddInt64(&s.stats.Hits, 1)
	s.stats.LastAccess = time.Now() // Safe: protected by s.mu.Lock

	return me.entry, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, fp fingerprint.Fingerprint, c corrections.Correction, ttl time.Duration) (Entry, error) {
	now := time.Now()
	if ttl == 0 {
		ttl = s.config.DefaultTTL
	}

	entry := Entry{
		Fingerprint: fp,
		Correction:  c,
		CreatedAt:   now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.entries[fp]; exists {
		// Replace wholesale, never mutate in place
		existing.entry = entry
		s.lruList.moveToFront(existing.element)
	} else {
		// Evict if the capacity bound would be exceeded
		if s.config.MaxEntries > 0 && len(s.entries) >= s.config.MaxEntries {
			s.evictLRU()
		}

		element := s.lruList.pushFront(fp)
		s.entries[fp] = &memoryEntry{entry: entry, element: element}
		atomic.AddInt64(&s.stats.Entries, 1)
	}

	atomic.AddInt64(&s.stats.Sets, 1)
	s.stats.LastAccess = now // Safe: protected by s.mu.Lock

	return entry, nil
}

func (s *MemoryStore) Delete(ctx context.Context, fp fingerprint.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if me, exists := s.entries[fp]; exists {
		delete(s.entries, fp)
		s.lruList.removeElement(me.element)
		atomic.AddInt64(&s.stats.Entries, -1)
		atomic.AddInt64(&s.stats.Deletes, 1)
	}

	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[fingerprint.Fingerprint]*memoryEntry)
	s.lruList = newLRUList()

	atomic.StoreInt64(&s.stats.Hits, 0)
	atomic.StoreInt64(&s.stats.Misses, 0)
	atomic.StoreInt64(&s.stats.Sets, 0)
	atomic.StoreInt64(&s.stats.Deletes, 0)
	atomic.StoreInt64(&s.stats.Entries, 0)

	return nil
}

func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	lastAccess := s.stats.LastAccess
	s.mu.RUnlock()

	return Stats{
		Hits:       atomic.LoadInt64(&s.stats.Hits),
		Misses:     atomic.LoadInt64(&s.stats.Misses),
		Sets:       atomic.LoadInt64(&s.stats.Sets),
		Deletes:    atomic.LoadInt64(&s.stats.Deletes),
		Entries:    atomic.LoadInt64(&s.stats.Entries),
		MaxEntries: int64(s.config.MaxEntries),
		LastAccess: lastAccess,
	}
}

func (s *MemoryStore) Close() error {
	close(s.closeChan)
	s.cleanupWG.Wait()
	return nil
}

// evictLRU removes the least-recently-used entry. Caller holds s.mu.
func (s *MemoryStore) evictLRU() {
	elem := s.lruList.back()
	if elem == nil {
		return
	}
	if _, exists := s.entries[elem.fp]; exists {
		delete(s.entries, elem.fp)
		s.lruList.removeElement(elem)
		atomic.AddInt64(&s.stats.Entries, -1)
	}
}

func (s *MemoryStore) cleanupRoutine() {
	defer s.cleanupWG.Done()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeChan:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

func (s *MemoryStore) cleanupExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []fingerprint.Fingerprint
	for fp, me := range s.entries {
		if me.entry.Expired(now) {
			expired = append(expired, fp)
		}
	}

	for _, fp := range expired {
		if me, exists := s.entries[fp]; exists {
			delete(s.entries, fp)
			s.lruList.removeElement(me.element)
			atomic.AddInt64(&s.stats.Entries, -1)
		}
	}
}
