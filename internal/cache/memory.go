package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultLRUSize = 1024

// InMemoryStore is a bounded LRU with per-entry expiry. Safe for concurrent use.
type InMemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	createdAt time.Time
	ttl       time.Duration
}

// NewInMemoryStore creates a store holding at most size entries (default 1024).
func NewInMemoryStore(size int) (*InMemoryStore, error) {
	if size <= 0 {
		size = defaultLRUSize
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &InMemoryStore{entries: entries, now: time.Now}, nil
}

// Get implements Store.
func (s *InMemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if s.now().Sub(entry.createdAt) > entry.ttl {
		s.entries.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Store. The value is copied.
func (s *InMemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	s.entries.Add(key, memoryEntry{value: buf, createdAt: s.now(), ttl: ttl})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *InMemoryStore) Len() int {
	return s.entries.Len()
}
