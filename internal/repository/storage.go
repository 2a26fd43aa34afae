package repository

import (
	"sync"
	"time"
)

// MemoryOption customizes a MemoryStorage
type MemoryOption func(*MemoryStorage)

// WithMemoryTTL expires values ttl after their last write. Zero keeps them forever.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStorage) {
		s.ttl = ttl
	}
}

// WithMaxEntries bounds the number of keys; the oldest write is evicted first.
// Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStorage) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithMemoryClock overrides time.Now
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStorage) {
		s.now = now
	}
}

type memoryEntry struct {
	value    string
	storedAt time.Time
}

// MemoryStorage is a process-local key/value store with optional TTL and size bound
type MemoryStorage struct {
	mu         sync.Mutex
	values     map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryStorage creates an empty store
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{
		values: make(map[string]memoryEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key
func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	if s.expired(entry, s.now()) {
		delete(s.values, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, exists := s.values[key]; !exists && s.maxEntries > 0 && len(s.values) >= s.maxEntries {
		s.sweep(now)
		for len(s.values) >= s.maxEntries {
			s.evictOldest()
		}
	}
	s.values[key] = memoryEntry{value: value, storedAt: now}
	return nil
}

// Remove deletes key
func (s *MemoryStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Len returns the number of keys held, expired ones included until swept
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *MemoryStorage) expired(entry memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.storedAt) > s.ttl
}

func (s *MemoryStorage) sweep(now time.Time) {
	for key, entry := range s.values {
		if s.expired(entry, now) {
			delete(s.values, key)
		}
	}
}

func (s *MemoryStorage) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, entry := range s.values {
		if !found || entry.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, entry.storedAt, true
		}
	}
	if found {
		delete(s.values, oldestKey)
	}
}
