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

// Package file provides a file-based implementation of the storage.Backend
// interface. Values are stored one file per key beneath a root directory and
// writes are synced to disk before returning, matching the durability the
// registration and counter flows require.
package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-softu2f/pkg/storage"
)

const (
	// Directory permissions (owner rwx only)
	defaultDirPerms = 0700

	// Default file permissions (owner rw only); everything in a token
	// store is secret or integrity-sensitive.
	defaultFilePerms = 0600
)

// Storage is a file-based implementation of storage.Backend.
// It stores key-value pairs as files in a directory hierarchy and is
// thread-safe.
type Storage struct {
	mu      sync.RWMutex
	rootDir string
}

// New creates a new file storage instance rooted at rootDir.
// The root directory is created with 0700 permissions if it doesn't exist.
func New(rootDir string) (*Storage, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file storage: root directory cannot be empty")
	}

	if err := os.MkdirAll(rootDir, defaultDirPerms); err != nil {
		return nil, fmt.Errorf("file storage: failed to create root directory: %w", err)
	}

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to resolve root directory: %w", err)
	}

	return &Storage{
		rootDir: abs,
	}, nil
}

// Get retrieves the value for the given key.
// Returns storage.ErrNotFound if the key does not exist.
func (f *Storage) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	filePath, err := f.keyToPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("file storage: failed to read key %q: %w", key, err)
	}

	return data, nil
}

// Put stores the value for the given key. The value is written to a
// temporary file first and renamed into place so a crashed write never
// leaves a truncated record behind.
func (f *Storage) Put(key string, value []byte, opts *storage.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	filePath, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, defaultDirPerms); err != nil {
		return fmt.Errorf("file storage: failed to create directory for key %q: %w", key, err)
	}

	perms := fs.FileMode(defaultFilePerms)
	if opts != nil && opts.Permissions != 0 {
		perms = opts.Permissions
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("file storage: failed to create temp file for key %q: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file storage: failed to write key %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file storage: failed to sync key %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file storage: failed to close temp file for key %q: %w", key, err)
	}
	if err := os.Chmod(tmpName, perms); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file storage: failed to set permissions for key %q: %w", key, err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file storage: failed to commit key %q: %w", key, err)
	}

	return nil
}

// Delete removes the key and its value from storage.
// Returns storage.ErrNotFound if the key does not exist.
func (f *Storage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	filePath, err := f.keyToPath(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("file storage: failed to stat key %q: %w", key, err)
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("file storage: failed to delete key %q: %w", key, err)
	}

	return nil
}

// List returns all keys with the given prefix in sorted order.
func (f *Storage) List(prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0)

	err := filepath.WalkDir(f.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(f.rootDir, path)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to list keys: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Exists checks if a key exists in storage.
func (f *Storage) Exists(key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	filePath, err := f.keyToPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("file storage: failed to stat key %q: %w", key, err)
	}
	return true, nil
}

// Close is a no-op for file storage; files are synced on every Put.
func (f *Storage) Close() error {
	return nil
}

// keyToPath maps a storage key to a path under the root directory,
// rejecting keys that would escape it.
func (f *Storage) keyToPath(key string) (string, error) {
	if key == "" {
		return "", storage.ErrInvalidKey
	}

	path := filepath.Join(f.rootDir, filepath.FromSlash(key))
	cleaned := filepath.Clean(path)
	if cleaned != f.rootDir && !strings.HasPrefix(cleaned, f.rootDir+string(filepath.Separator)) {
		return "", storage.ErrInvalidKey
	}
	return cleaned, nil
}

var _ storage.Backend = (*Storage)(nil)
