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

// Package counter implements the token's signature counter: a single
// monotonically increasing value, global to the token instance, included in
// every authentication signature so relying parties can detect cloned
// authenticators. The persistent implementation durably writes the
// incremented value before returning it; an authentication whose counter
// was not persisted must never be signed.
package counter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/jeremyhahn/go-softu2f/pkg/storage"
)

// storageKeyCounter is the storage key the persistent counter lives under.
const storageKeyCounter = "counter/signature"

var (
	// ErrPersistence is returned when the incremented counter value could
	// not be durably written. The counter value involved must not be used.
	ErrPersistence = errors.New("counter: failed to persist counter value")

	// ErrCorruptState is returned when the persisted counter state cannot
	// be decoded.
	ErrCorruptState = errors.New("counter: corrupt persisted state")

	// ErrExhausted is returned when the 32-bit counter space is used up.
	ErrExhausted = errors.New("counter: counter space exhausted")
)

// Memory is an in-memory counter for ephemeral tokens and tests. Values do
// not survive the process.
type Memory struct {
	mu    sync.Mutex
	value uint32
}

// NewMemory creates an in-memory counter starting at zero; the first Next
// call returns 1.
func NewMemory() *Memory {
	return &Memory{}
}

// Next atomically increments and returns the counter.
func (m *Memory) Next() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.value == ^uint32(0) {
		return 0, ErrExhausted
	}
	m.value++
	return m.value, nil
}

// Persistent is a counter backed by a storage.Backend. Next reads the
// current value, persists the incremented value, and only then returns it;
// two concurrent calls never observe the same value.
type Persistent struct {
	backend storage.Backend
	mu      sync.Mutex

	// loaded guards the initial read so a fresh store starts at zero.
	loaded bool
	value  uint32
}

// NewPersistent creates a counter persisted through the given backend.
func NewPersistent(backend storage.Backend) (*Persistent, error) {
	if backend == nil {
		return nil, fmt.Errorf("counter: storage backend is required")
	}
	return &Persistent{backend: backend}, nil
}

// Next atomically advances the counter, persisting the new value before
// returning it. On persistence failure the in-memory value is left
// unchanged and the error is surfaced.
func (p *Persistent) Next() (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		if err := p.load(); err != nil {
			return 0, err
		}
	}

	if p.value == ^uint32(0) {
		return 0, ErrExhausted
	}
	next := p.value + 1

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], next)
	if err := p.backend.Put(storageKeyCounter, buf[:], nil); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	p.value = next
	return next, nil
}

// load reads the persisted counter state, treating a missing record as a
// fresh counter.
func (p *Persistent) load() error {
	raw, err := p.backend.Get(storageKeyCounter)
	if errors.Is(err, storage.ErrNotFound) {
		p.value = 0
		p.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("counter: failed to read persisted state: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("%w: expected 4 bytes, got %d", ErrCorruptState, len(raw))
	}

	p.value = binary.BigEndian.Uint32(raw)
	p.loaded = true
	return nil
}
