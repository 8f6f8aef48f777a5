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

package u2f

// KeyStore is the persistence contract the registration and authentication
// flows consume. Implementations must be thread-safe: two concurrent Puts
// for the same (application, handle) must not both succeed.
type KeyStore interface {
	// Put durably persists a new credential record. Returns
	// ErrDuplicateHandle if a record for (Application, Handle) already
	// exists. Put is all-or-nothing; a failed Put leaves no partial state.
	Put(key *ApplicationKey) error

	// Get returns the record matching both application and handle exactly.
	// Returns ErrKeyNotFound otherwise, including when the handle is
	// registered under a different application.
	Get(application AppID, handle KeyHandle) (*ApplicationKey, error)

	// List returns all records registered for the application. Order is
	// unspecified but stable within a single call.
	List(application AppID) ([]*ApplicationKey, error)

	// Delete removes the record for (application, handle).
	// Returns ErrKeyNotFound if no such record exists.
	Delete(application AppID, handle KeyHandle) error

	// Close releases any resources held by the store.
	Close() error
}

// AttestationSigner wraps the device's long-lived attestation key. It signs
// registration responses only; authentication responses are signed with the
// per-application key.
type AttestationSigner interface {
	// SignAttestation signs data with the attestation private key and
	// returns an ASN.1 DER encoded ECDSA signature over its SHA-256 digest.
	SignAttestation(data []byte) ([]byte, error)

	// Certificate returns the DER encoded attestation certificate.
	Certificate() []byte
}

// CounterSource is the monotonically increasing signature counter.
// Implementations must be durable and atomic: the same value is never
// returned twice for the lifetime of the underlying store, even across
// process restarts, and the incremented value is persisted before Next
// returns it.
type CounterSource interface {
	Next() (uint32, error)
}
