// ABOUTME: In-memory Store implementation for tests and the "memory" driver
// ABOUTME: Can be told to fail writes to simulate a full storage quota

package kv

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrQuotaExceeded is returned by a MemoryStore whose writes were disabled
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string]string
	failWrites bool
	writes     int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value for key.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.writes++
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites {
		return ErrQuotaExceeded
	}
	delete(m.data, key)
	m.writes++
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// FailWrites makes every subsequent Set and Remove fail with ErrQuotaExceeded.
func (m *MemoryStore) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// Writes returns how many successful Set/Remove calls the store has served.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Keys returns all keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
