// ABOUTME: In-memory Store implementation for tests and development servers
// ABOUTME: Allows the entity layer and HTTP API to run without SQLite

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool

	// failWith, when set, is returned by every operation. Tests use it to
	// exercise storage failure paths.
	failWith error
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

// FailWith makes every subsequent operation return a StorageError wrapping
// err. Passing nil restores normal behavior.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryStore) check(op, key string) error {
	if m.failWith != nil {
		return &StorageError{Op: op, Key: key, Err: m.failWith}
	}
	if m.closed {
		return &StorageError{Op: op, Key: key, Err: errClosed}
	}
	return nil
}

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check("get", key); err != nil {
		return nil, err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

// Put stores a copy of value under key.
func (m *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("put", key); err != nil {
		return err
	}
	m.values[key] = cloneBytes(value)
	return nil
}

// PutIfAbsent stores value only when key is unused.
func (m *MemoryStore) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("put-if-absent", key); err != nil {
		return false, err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = cloneBytes(value)
	return true, nil
}

// Delete removes key.
func (m *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("delete", key); err != nil {
		return false, err
	}
	if _, ok := m.values[key]; !ok {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

// ListKeys returns matching keys sorted in byte order.
func (m *MemoryStore) ListKeys(ctx context.Context, prefix string, opts ListOptions) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check("list", prefix); err != nil {
		return nil, err
	}

	var keys []string
	for k := range m.values {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if opts.After != "" && k <= opts.After {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}
	return keys, nil
}

// Ping reports whether the store is still open.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check("ping", "")
}

// Close marks the store closed. Later operations fail.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
