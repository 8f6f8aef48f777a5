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

package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jeremyhahn/go-softu2f/pkg/storage"
	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
	"golang.org/x/crypto/scrypt"
)

// Storage key layout for sealed stores.
const (
	// storagePrefixKeys is the prefix for credential records. Records live
	// at keys/<application-hex>/<handle-hex>, so cross-application
	// isolation holds by construction of the storage key.
	storagePrefixKeys = "keys/"

	// storageKeySalt is the key for the scrypt salt.
	storageKeySalt = "config/salt"

	// scrypt parameters for key derivation
	scryptN = 32768
	scryptR = 8
	scryptP = 1

	saltSize   = 32
	sealKeyLen = 32
)

var (
	// ErrInvalidPassphrase is returned when a sealed record cannot be
	// decrypted with the configured passphrase.
	ErrInvalidPassphrase = errors.New("keystore: invalid passphrase")

	// ErrCorruptRecord is returned when a stored record fails to decode.
	ErrCorruptRecord = errors.New("keystore: corrupt credential record")
)

// sealedRecord is the serialized form of a credential record. The private
// key is SEC1 encoded before sealing; the whole document is what gets
// encrypted at rest.
type sealedRecord struct {
	Application string `json:"application"`
	Handle      string `json:"handle"`
	PrivateKey  []byte `json:"private_key"`
}

// Sealed is a u2f.KeyStore that persists credential records through a
// storage.Backend, encrypting each record at rest with AES-GCM under a
// scrypt-derived key. With an empty passphrase records are stored
// unsealed, which is acceptable only for tests.
type Sealed struct {
	backend storage.Backend
	mu      sync.Mutex
	closed  bool

	// Cached encryption key derived from the passphrase
	sealKey []byte
}

// NewSealed creates a sealed key store over the given backend. The scrypt
// salt is loaded from the backend or generated and persisted on first use.
func NewSealed(backend storage.Backend, passphrase string) (*Sealed, error) {
	if backend == nil {
		return nil, fmt.Errorf("keystore: storage backend is required")
	}

	s := &Sealed{backend: backend}

	if passphrase != "" {
		if err := s.initSealKey(passphrase); err != nil {
			return nil, fmt.Errorf("keystore: failed to initialize sealing key: %w", err)
		}
	}

	return s, nil
}

// initSealKey derives the sealing key from the passphrase, loading an
// existing salt or generating a new one.
func (s *Sealed) initSealKey(passphrase string) error {
	salt, err := s.backend.Get(storageKeySalt)
	if errors.Is(err, storage.ErrNotFound) {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := s.backend.Put(storageKeySalt, salt, nil); err != nil {
			return fmt.Errorf("failed to store salt: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to load salt: %w", err)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, sealKeyLen)
	if err != nil {
		return fmt.Errorf("failed to derive sealing key: %w", err)
	}

	s.sealKey = key
	return nil
}

// Put durably persists a new credential record.
// Returns u2f.ErrDuplicateHandle if the (application, handle) pair exists.
func (s *Sealed) Put(key *u2f.ApplicationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return u2f.ErrStoreClosed
	}

	storageKey := recordStorageKey(key.Application, key.Handle)
	exists, err := s.backend.Exists(storageKey)
	if err != nil {
		return fmt.Errorf("keystore: failed to check for existing record: %w", err)
	}
	if exists {
		return u2f.ErrDuplicateHandle
	}

	der, err := x509.MarshalECPrivateKey(key.PrivateKey())
	if err != nil {
		return fmt.Errorf("keystore: failed to encode private key: %w", err)
	}

	plaintext, err := json.Marshal(&sealedRecord{
		Application: key.Application.String(),
		Handle:      key.Handle.String(),
		PrivateKey:  der,
	})
	if err != nil {
		return fmt.Errorf("keystore: failed to encode record: %w", err)
	}

	value, err := s.seal(plaintext)
	if err != nil {
		return fmt.Errorf("keystore: failed to seal record: %w", err)
	}

	if err := s.backend.Put(storageKey, value, nil); err != nil {
		return fmt.Errorf("keystore: failed to persist record: %w", err)
	}
	return nil
}

// Get returns the record matching both application and handle exactly.
func (s *Sealed) Get(application u2f.AppID, handle u2f.KeyHandle) (*u2f.ApplicationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, u2f.ErrStoreClosed
	}
	return s.get(application, handle)
}

func (s *Sealed) get(application u2f.AppID, handle u2f.KeyHandle) (*u2f.ApplicationKey, error) {
	value, err := s.backend.Get(recordStorageKey(application, handle))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, u2f.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: failed to read record: %w", err)
	}

	plaintext, err := s.unseal(value)
	if err != nil {
		return nil, err
	}

	var record sealedRecord
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	// The storage key already encodes the binding; the stored fields must
	// agree with it.
	if record.Application != application.String() || record.Handle != handle.String() {
		return nil, fmt.Errorf("%w: record binding mismatch", ErrCorruptRecord)
	}

	privateKey, err := x509.ParseECPrivateKey(record.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	return u2f.NewApplicationKey(application, handle, privateKey), nil
}

// List returns all records registered for the application, ordered by
// handle.
func (s *Sealed) List(application u2f.AppID) ([]*u2f.ApplicationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, u2f.ErrStoreClosed
	}

	prefix := storagePrefixKeys + application.String() + "/"
	keys, err := s.backend.List(prefix)
	if err != nil {
		return nil, fmt.Errorf("keystore: failed to list records: %w", err)
	}

	records := make([]*u2f.ApplicationKey, 0, len(keys))
	for _, storageKey := range keys {
		handle, err := handleFromStorageKey(storageKey, prefix)
		if err != nil {
			return nil, err
		}
		record, err := s.get(application, handle)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes the record for (application, handle).
func (s *Sealed) Delete(application u2f.AppID, handle u2f.KeyHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return u2f.ErrStoreClosed
	}

	err := s.backend.Delete(recordStorageKey(application, handle))
	if errors.Is(err, storage.ErrNotFound) {
		return u2f.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("keystore: failed to delete record: %w", err)
	}
	return nil
}

// Close wipes the cached sealing key and closes the backend.
func (s *Sealed) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for i := range s.sealKey {
		s.sealKey[i] = 0
	}
	s.sealKey = nil

	return s.backend.Close()
}

// seal encrypts plaintext with AES-GCM under the derived key. The nonce is
// prepended to the ciphertext. Without a passphrase the plaintext is stored
// as-is.
func (s *Sealed) seal(plaintext []byte) ([]byte, error) {
	if s.sealKey == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(s.sealKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// unseal decrypts a sealed record.
func (s *Sealed) unseal(value []byte) ([]byte, error) {
	if s.sealKey == nil {
		return value, nil
	}

	block, err := aes.NewCipher(s.sealKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(value) < gcm.NonceSize() {
		return nil, ErrCorruptRecord
	}

	plaintext, err := gcm.Open(nil, value[:gcm.NonceSize()], value[gcm.NonceSize():], nil)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	return plaintext, nil
}

// recordStorageKey maps a credential binding to its storage key.
func recordStorageKey(application u2f.AppID, handle u2f.KeyHandle) string {
	return storagePrefixKeys + application.String() + "/" + handle.String()
}

// handleFromStorageKey recovers the key handle from a storage key listed
// under the application prefix.
func handleFromStorageKey(storageKey, prefix string) (u2f.KeyHandle, error) {
	var handle u2f.KeyHandle

	raw, err := hex.DecodeString(storageKey[len(prefix):])
	if err != nil || len(raw) != u2f.KeyHandleSize {
		return handle, fmt.Errorf("%w: bad storage key %q", ErrCorruptRecord, storageKey)
	}
	copy(handle[:], raw)
	return handle, nil
}

var _ u2f.KeyStore = (*Sealed)(nil)
