// Package storage persists opaque blobs under fixed keys. Every write replaces
// the whole blob for its key.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Adapter reads and writes whole blobs by key. Read returns nil, nil when
// nothing has been stored under key yet.
type Adapter interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// FileStore keeps one file per key inside Dir.
type FileStore struct {
	Dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

func (s *FileStore) Read(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the blob atomically: the data goes to a temp file in the
// same directory which is then renamed over the target.
func (s *FileStore) Write(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	f, err := os.CreateTemp(s.Dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-memory Adapter. It records every write so tests can
// check write-through ordering.
type MemoryStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	writes []Write
	// FailWrites makes Write return this error without storing anything.
	FailWrites error
}

// Write is one recorded call to MemoryStore.Write.
type Write struct {
	Key  string
	Data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Read(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	cp := append([]byte(nil), data...)
	m.blobs[key] = cp
	m.writes = append(m.writes, Write{Key: key, Data: cp})
	return nil
}

// Writes returns every successful write in call order.
func (m *MemoryStore) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}
