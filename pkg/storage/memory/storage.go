// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-softu2f.
//
// go-softu2f is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package memory provides an in-memory implementation of the storage.Backend
// interface. It is used for ephemeral virtual tokens and for tests.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-softu2f/pkg/storage"
)

// Storage is an in-memory implementation of storage.Backend.
// Thread-safe using a read-write mutex.
type Storage struct {
	data   map[string][]byte
	mu     sync.RWMutex
	closed bool
}

// New creates a new in-memory storage backend.
func New() *Storage {
	return &Storage{
		data: make(map[string][]byte),
	}
}

// Get retrieves the value for the given key.
func (m *Storage) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, storage.ErrClosed
	}

	value, exists := m.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy to prevent modification
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Put stores the value for the given key.
func (m *Storage) Put(key string, value []byte, opts *storage.Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storage.ErrClosed
	}
	if key == "" {
		return storage.ErrInvalidKey
	}

	// Store a copy to prevent modification
	data := make([]byte, len(value))
	copy(data, value)
	m.data[key] = data
	return nil
}

// Delete removes the key and its value from storage.
func (m *Storage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storage.ErrClosed
	}

	if _, exists := m.data[key]; !exists {
		return storage.ErrNotFound
	}

	delete(m.data, key)
	return nil
}

// List returns all keys with the given prefix in sorted order.
func (m *Storage) List(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, storage.ErrClosed
	}

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists checks if a key exists in storage.
func (m *Storage) Exists(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, storage.ErrClosed
	}

	_, exists := m.data[key]
	return exists, nil
}

// Close releases the backing map. Subsequent operations return ErrClosed.
func (m *Storage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	m.closed = true
	return nil
}

var _ storage.Backend = (*Storage)(nil)
