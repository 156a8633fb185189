package repository

import (
	"context"
	"sync"
)

// MemoryKeyValueStore はプロセス内のmapに保持するKeyValueStore。
// SESSION_STORE=memory とテストで使用する。
type MemoryKeyValueStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryKeyValueStore はMemoryKeyValueStoreを生成する。
func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{entries: make(map[string]string)}
}

func (s *MemoryKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryKeyValueStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *MemoryKeyValueStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

var _ KeyValueStore = (*MemoryKeyValueStore)(nil)
