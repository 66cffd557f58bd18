package objectstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// InMemoryStore is a Store keeping object bodies in process memory.
// Used by tests and local single-machine runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		buckets: make(map[string]map[string][]byte),
	}
}

func (s *InMemoryStore) Put(ctx context.Context, bucket, key, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	s.PutBytes(bucket, key, data)
	return nil
}

// PutBytes stores an object body directly, bypassing the filesystem.
// Tests use it to stand in for frames written by remote workers.
func (s *InMemoryStore) PutBytes(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, exists := s.buckets[bucket]
	if !exists {
		objects = make(map[string][]byte)
		s.buckets[bucket] = objects
	}
	objects[key] = append([]byte(nil), data...)
}

func (s *InMemoryStore) Get(ctx context.Context, bucket, key, localPath string) error {
	s.mu.RLock()
	data, exists := s.buckets[bucket][key]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("object %s/%s not found", bucket, key)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	return nil
}

// GetBytes returns an object body directly, or nil if absent.
func (s *InMemoryStore) GetBytes(bucket, key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, exists := s.buckets[bucket][key]
	if !exists {
		return nil
	}
	return append([]byte(nil), data...)
}

func (s *InMemoryStore) List(ctx context.Context, bucket, prefix string) ([]string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, len(keys), nil
}
