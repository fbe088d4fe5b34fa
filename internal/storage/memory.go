package storage

import (
	"sync"

	"github.com/gofrs/uuid"
)

// MemoryStorage is the in-memory stand-in used by tests and the cleanup
// sweep's unit tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

func (s *MemoryStorage) Put(data []byte, name, mimeType string) (string, error) {
	fileID := uuid.Must(uuid.NewV4()).String()
	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[fileID] = copied
	return fileID, nil
}

func (s *MemoryStorage) Get(fileID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[fileID]
	if !ok {
		return nil, ErrFileNotFound
	}
	return data, nil
}

func (s *MemoryStorage) Delete(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, fileID)
	return nil
}

// Len reports the number of stored blobs.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
