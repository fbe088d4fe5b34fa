package storage

import (
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
)

// FilesystemStorage keeps each blob in a flat directory under a uuid name.
// The uuid is the opaque file id handed back to callers.
type FilesystemStorage struct {
	root string
}

func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemStorage{root: root}, nil
}

func (s *FilesystemStorage) path(fileID string) string {
	return filepath.Join(s.root, filepath.Base(fileID))
}

func (s *FilesystemStorage) Put(data []byte, name, mimeType string) (string, error) {
	fileID := uuid.Must(uuid.NewV4()).String()
	if err := os.WriteFile(s.path(fileID), data, 0o644); err != nil {
		return "", err
	}
	return fileID, nil
}

func (s *FilesystemStorage) Get(fileID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *FilesystemStorage) Delete(fileID string) error {
	err := os.Remove(s.path(fileID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
