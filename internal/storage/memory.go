package storage

import (
	"context"
	"sync"
)

// InMemoryObjectStore keeps artifacts in process memory. It backs unit tests
// and local runs; it intentionally favors clarity over performance.
type InMemoryObjectStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string][]byte
	types   map[string]string
}

func NewInMemoryObjectStore(bucket string) *InMemoryObjectStore {
	return &InMemoryObjectStore{
		bucket:  bucket,
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *InMemoryObjectStore) Put(_ context.Context, path string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[path] = cp
	s.types[path] = contentType
	return "mem://" + s.bucket + "/" + path, nil
}

func (s *InMemoryObjectStore) Exists(_ context.Context, bucket string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bucket == s.bucket, nil
}

func (s *InMemoryObjectStore) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucket == "" {
		s.bucket = bucket
	}
	if bucket != s.bucket {
		return ErrBucketMissing
	}
	return nil
}

// Get returns a stored object; tests use it to assert uploaded content.
func (s *InMemoryObjectStore) Get(path string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, "", false
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, s.types[path], true
}

// Len reports the number of stored objects.
func (s *InMemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
