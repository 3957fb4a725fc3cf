package memory

import (
	"context"
	"sort"
	"sync"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

var _ domain.KeyValueStore = (*KVStore)(nil)

// KVStore is a process-local domain.KeyValueStore. It is the default backend for
// development and the store used by tests.
type KVStore struct {
	mu    sync.RWMutex
	items map[string]string

	// SetHook, when non-nil, runs before every Set and can veto it with an error.
	// Tests use it to simulate quota or availability failures.
	SetHook func(key, value string) error
}

// NewKVStore creates an empty in-memory store.
func NewKVStore() *KVStore {
	return &KVStore{items: make(map[string]string)}
}

func (s *KVStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (s *KVStore) Set(_ context.Context, key, value string) error {
	if s.SetHook != nil {
		if err := s.SetHook(key, value); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *KVStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Keys returns all keys in lexical order.
func (s *KVStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *KVStore) Ping(context.Context) error {
	return nil
}

// Len reports the number of stored keys.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
