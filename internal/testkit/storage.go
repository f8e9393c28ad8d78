package testkit

import (
	"sync"
	"time"
)

// Storage is an in-memory fiber.Storage for sharing limiter state in tests.
type Storage struct {
	mu      sync.Mutex
	entries map[string]storageEntry
}

type storageEntry struct {
	val     []byte
	expires time.Time
}

func NewStorage() *Storage {
	return &Storage{entries: make(map[string]storageEntry)}
}

func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || (!e.expires.IsZero() && time.Now().After(e.expires)) {
		return nil, nil
	}
	return e.val, nil
}

func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := storageEntry{val: append([]byte(nil), val...)}
	if exp > 0 {
		e.expires = time.Now().Add(exp)
	}
	s.entries[key] = e
	return nil
}

func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Storage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]storageEntry)
	return nil
}

func (s *Storage) Close() error { return nil }

// Keys lists the stored keys.
func (s *Storage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}
