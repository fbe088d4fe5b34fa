package storage

import (
	"bytes"
	"testing"
)

func TestMemoryStorageRoundtrip(t *testing.T) {
	store := NewMemoryStorage()

	data := []byte("design-v2.pdf contents")
	fileID, err := store.Put(data, "design-v2.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if fileID == "" {
		t.Fatal("Expected non-empty file id")
	}

	got, err := store.Get(fileID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %q, got %q", data, got)
	}

	if err := store.Delete(fileID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(fileID); err != ErrFileNotFound {
		t.Errorf("Expected ErrFileNotFound after delete, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d entries", store.Len())
	}
}

func TestMemoryStorageGetMissing(t *testing.T) {
	store := NewMemoryStorage()
	if _, err := store.Get("no-such-id"); err != ErrFileNotFound {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
	if err := store.Delete("no-such-id"); err != nil {
		t.Errorf("Expected delete of missing blob to be a no-op, got %v", err)
	}
}

func TestMemoryStorageCopiesData(t *testing.T) {
	store := NewMemoryStorage()

	data := []byte("original")
	fileID, _ := store.Put(data, "f.txt", "text/plain")
	data[0] = 'X'

	got, err := store.Get(fileID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("Stored blob aliases caller buffer: got %q", got)
	}
}

func TestFilesystemStorageRoundtrip(t *testing.T) {
	store, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage failed: %v", err)
	}

	data := []byte{0x89, 0x50, 0x4e, 0x47} // png magic
	fileID, err := store.Put(data, "screenshot.png", "image/png")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(fileID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %v, got %v", data, got)
	}

	if err := store.Delete(fileID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(fileID); err != ErrFileNotFound {
		t.Errorf("Expected ErrFileNotFound after delete, got %v", err)
	}
}

func TestFilesystemStorageDistinctIDs(t *testing.T) {
	store, err := NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage failed: %v", err)
	}

	a, _ := store.Put([]byte("a"), "same-name.txt", "text/plain")
	b, _ := store.Put([]byte("b"), "same-name.txt", "text/plain")
	if a == b {
		t.Error("Expected distinct file ids for repeated names")
	}
}
