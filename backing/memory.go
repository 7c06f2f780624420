package backing

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. An optional byte quota bounds the sum
// of key and value lengths, failing writes with ErrQuotaExceeded the way a
// browser-resident store fails when its origin quota is exhausted.
type MemoryStore struct {
	id       string
	maxBytes int

	data  map[string]string
	usage int
	mu    sync.RWMutex
}

// NewMemoryStore creates a MemoryStore identified by id. maxBytes of 0 means
// no quota.
func NewMemoryStore(id string, maxBytes int) *MemoryStore {
	if id == "" {
		id = "memory"
	}
	return &MemoryStore{
		id:       id,
		maxBytes: maxBytes,
		data:     make(map[string]string),
	}
}

func (s *MemoryStore) ID() string {
	return s.id
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.data[key]
	return raw, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, key, raw string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.usage + len(key) + len(raw)
	if old, ok := s.data[key]; ok {
		next -= len(key) + len(old)
	}
	if s.maxBytes > 0 && next > s.maxBytes {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, key)
	}

	s.data[key] = raw
	s.usage = next
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[key]; ok {
		delete(s.data, key)
		s.usage -= len(key) + len(old)
	}
	return nil
}

// Usage returns the current quota consumption in bytes.
func (s *MemoryStore) Usage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage
}
