package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryObjects is an ObjectStore held in process memory, for tests.
type MemoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{objects: make(map[string][]byte)}
}

func (m *MemoryObjects) PutFile(ctx context.Context, prefix, name, key string, file io.ReadSeeker) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	objectKey := ObjectKey(prefix, name, key)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = data
	return objectKey, nil
}

func (m *MemoryObjects) GetFile(ctx context.Context, key string, maxSize int64) ([]byte, error) {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("failed to get file %s: not found", key)
	}
	return readLimited(bytes.NewReader(data), maxSize)
}

func (m *MemoryObjects) DeleteFile(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Len reports the number of stored objects.
func (m *MemoryObjects) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
