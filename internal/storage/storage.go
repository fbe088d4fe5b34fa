// Package storage abstracts the external object-storage service holding
// attachment bytes. The core only needs put/get/delete by opaque file id.
package storage

import "errors"

var ErrFileNotFound = errors.New("file not found")

type ObjectStorage interface {
	Put(data []byte, name, mimeType string) (fileID string, err error)
	Get(fileID string) ([]byte, error)
	Delete(fileID string) error
}
