package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStore keeps objects in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	opts    Options
}

func NewMemoryStore(opts Options) *MemoryStore {
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "http://localhost/objects"
	}
	return &MemoryStore{objects: make(map[string][]byte), opts: opts}
}

func (s *MemoryStore) Put(ctx context.Context, objectPath string, r io.Reader) (PutResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return PutResult{}, errUpload(err)
	}
	if err := ctx.Err(); err != nil {
		return PutResult{}, errUpload(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectPath]; ok && !s.opts.AllowOverwrite {
		return PutResult{}, errExists(objectPath)
	}
	s.objects[objectPath] = buf.Bytes()

	return PutResult{Path: objectPath, URL: s.URL(objectPath), Size: int64(buf.Len())}, nil
}

func (s *MemoryStore) Get(_ context.Context, objectPath string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectPath]
	if !ok {
		return nil, errNotFound(objectPath)
	}
	return bytes.Clone(data), nil
}

func (s *MemoryStore) Exists(_ context.Context, objectPath string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[objectPath]
	return ok, nil
}

func (s *MemoryStore) URL(objectPath string) string {
	return PublicURL(s.opts.PublicBaseURL, s.opts.Bucket, objectPath)
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ Store = (*MemoryStore)(nil)
