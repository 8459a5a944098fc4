// Package params implements the key/value store that holds runtime
// settings such as the acceleration personality. Values are strings;
// interpretation is left to the reader.
package params

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// AccelPersonalityKey holds the personality ordinal as a decimal string.
const AccelPersonalityKey = "AccelPersonality"

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("unknown params backend")

// Getter reads a value. The boolean is false when the key is absent.
// Read failures are logged by the implementation and reported as absent.
type Getter interface {
	Get(key string) (string, bool)
}

// Store is a readable and writable params store.
type Store interface {
	Getter
	Put(key, value string) error
	Remove(key string) error
	Keys() ([]string, error)
	Close() error
}

// Open returns the store for backend rooted at path. The path is ignored
// by the memory backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return OpenSQLStore(path)
	default:
		return nil, fmt.Errorf("%w %q (want %s, %s or %s)", ErrUnknownBackend, backend, BackendMemory, BackendFile, BackendSQLite)
	}
}

// MemoryStore keeps params in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Put(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
