package pipeline

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"
)

// MemoryWriter keeps written files in memory.
type MemoryWriter struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// WriteFile stores a copy of data under path.
func (m *MemoryWriter) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = slices.Clone(data)
	return nil
}

// File returns the content written to path.
func (m *MemoryWriter) File(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	return data, ok
}

// ReadFile implements FileReader. Missing paths report fs.ErrNotExist.
func (m *MemoryWriter) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return slices.Clone(data), nil
}

// Paths lists the written paths in sorted order.
func (m *MemoryWriter) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.files))
}

// Len returns the number of files written.
func (m *MemoryWriter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

var (
	_ Writer     = (*MemoryWriter)(nil)
	_ FileReader = (*MemoryWriter)(nil)
)
