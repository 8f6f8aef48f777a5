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

// Package keystore provides implementations of the u2f.KeyStore interface:
// an in-memory store for ephemeral tokens and tests, and a sealed store
// that encrypts credential records at rest over a storage.Backend.
package keystore

import (
	"sort"
	"sync"

	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

// Memory is an in-memory u2f.KeyStore. Credentials do not survive the
// process; it backs ephemeral virtual tokens and tests.
// Thread-safe using a read-write mutex.
type Memory struct {
	records map[recordKey]*u2f.ApplicationKey
	mu      sync.RWMutex
	closed  bool
}

// recordKey indexes records by the exact (application, handle) pair, so a
// handle registered under one application can never be located through
// another.
type recordKey struct {
	application u2f.AppID
	handle      u2f.KeyHandle
}

// NewMemory creates a new in-memory key store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[recordKey]*u2f.ApplicationKey),
	}
}

// Put stores a new credential record.
// Returns u2f.ErrDuplicateHandle if the (application, handle) pair exists.
func (m *Memory) Put(key *u2f.ApplicationKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return u2f.ErrStoreClosed
	}

	rk := recordKey{application: key.Application, handle: key.Handle}
	if _, exists := m.records[rk]; exists {
		return u2f.ErrDuplicateHandle
	}

	m.records[rk] = key
	return nil
}

// Get returns the record matching both application and handle exactly.
func (m *Memory) Get(application u2f.AppID, handle u2f.KeyHandle) (*u2f.ApplicationKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, u2f.ErrStoreClosed
	}

	record, exists := m.records[recordKey{application: application, handle: handle}]
	if !exists {
		return nil, u2f.ErrKeyNotFound
	}
	return record, nil
}

// List returns all records registered for the application, ordered by
// handle.
func (m *Memory) List(application u2f.AppID) ([]*u2f.ApplicationKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, u2f.ErrStoreClosed
	}

	records := make([]*u2f.ApplicationKey, 0)
	for rk, record := range m.records {
		if rk.application == application {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Handle.String() < records[j].Handle.String()
	})
	return records, nil
}

// Delete removes the record for (application, handle).
func (m *Memory) Delete(application u2f.AppID, handle u2f.KeyHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return u2f.ErrStoreClosed
	}

	rk := recordKey{application: application, handle: handle}
	if _, exists := m.records[rk]; !exists {
		return u2f.ErrKeyNotFound
	}
	delete(m.records, rk)
	return nil
}

// Close releases the backing map. Subsequent operations return
// u2f.ErrStoreClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = nil
	m.closed = true
	return nil
}

var _ u2f.KeyStore = (*Memory)(nil)
