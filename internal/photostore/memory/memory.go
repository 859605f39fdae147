package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vbonduro/mediscan/internal/photostore"
)

type photo struct {
	data     []byte
	mimeType string
}

// MemoryPhotoStore keeps photos in process memory. Nothing is written to
// disk, and everything is lost on restart.
type MemoryPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]photo
}

func NewMemoryPhotoStore() *MemoryPhotoStore {
	return &MemoryPhotoStore{photos: make(map[string]photo)}
}

func (s *MemoryPhotoStore) Save(ctx context.Context, key, mimeType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}
	s.mu.Lock()
	s.photos[key] = photo{data: data, mimeType: mimeType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryPhotoStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	p, ok := s.photos[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(p.data)), p.mimeType, nil
}

func (s *MemoryPhotoStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.photos[key]; !ok {
		return photostore.ErrNotFound
	}
	delete(s.photos, key)
	return nil
}

func (s *MemoryPhotoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}
