package objectstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jgoldverg/splitfile/pkg/store"
)

// MemoryBackend keeps objects in a map. It copies on every Get and Put so
// callers never share buffers with it.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

// NewMemoryStore is shorthand for New(NewMemoryBackend()).
func NewMemoryStore() (*Store, *MemoryBackend) {
	b := NewMemoryBackend()
	return New(b), b
}

func (m *MemoryBackend) Get(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("memory: %s: %w", name, store.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) Put(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = append([]byte{}, data...)
	return nil
}

func (m *MemoryBackend) Size(name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	if !ok {
		return 0, fmt.Errorf("memory: %s: %w", name, store.ErrNotExist)
	}
	return int64(len(data)), nil
}

func (m *MemoryBackend) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return fmt.Errorf("memory: %s: %w", name, store.ErrNotExist)
	}
	delete(m.objects, name)
	return nil
}

// Names lists stored objects in sorted order.
func (m *MemoryBackend) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
