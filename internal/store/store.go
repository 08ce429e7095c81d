package store

import (
	"fmt"
	"sync"

	"checkoutfeed/internal/purchase"
)

// Store abstracts the purchase sink backend. Insert is first-write-wins by
// record ID: inserting an ID that already exists is skipped and reported via
// applied=false, which is how duplicate notifications are suppressed.
type Store interface {
	Insert(id string, rec purchase.Record) (applied bool, err error)
	Get(id string) (purchase.Record, bool)
	Range(fn func(id string, rec purchase.Record) error) error
	LoadAll(all map[string]purchase.Record)
}

// MemoryStore is a simple thread-safe map store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]purchase.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]purchase.Record)}
}

// LoadAll replaces the store contents with the provided archive dump.
func (s *MemoryStore) LoadAll(all map[string]purchase.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]purchase.Record, len(all))
	for k, v := range all {
		s.data[k] = v
	}
}

func (s *MemoryStore) Insert(id string, rec purchase.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; ok {
		return false, nil
	}
	s.data[id] = rec
	return true, nil
}

func (s *MemoryStore) Get(id string) (purchase.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[id]
	return rec, ok
}

func (s *MemoryStore) Range(fn func(id string, rec purchase.Record) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.data {
		if err := fn(k, v); err != nil {
			return fmt.Errorf("range callback failed: %w", err)
		}
	}
	return nil
}
