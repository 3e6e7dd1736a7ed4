package blob

import (
	"context"
	"io"
	"sync"
)

// Memory keeps blobs in a map. Test driver.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// FailNext makes the next Put return an error, for exercising upload
	// failure paths.
	FailNext error
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.blobs[key] = data
	return "memory://" + key, nil
}

// Get returns a stored blob, for assertions.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	return b, ok
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
