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

import "errors"

var (
	// ErrUnknownKeyHandle is returned when an authentication request names
	// a key handle that is not registered for the presenting application.
	// This is the expected outcome for foreign, stale, or cross-application
	// handles and does not reveal whether the handle exists under a
	// different application.
	ErrUnknownKeyHandle = errors.New("u2f: unknown key handle")

	// ErrUserPresenceRequired is returned for check-only authentication
	// requests naming a registered key handle. Per the U2F control byte
	// semantics this is a positive probe result, not a failure.
	ErrUserPresenceRequired = errors.New("u2f: user presence required")

	// ErrExhaustedHandleSpace is returned when key handle generation keeps
	// colliding with stored handles. With 32 bytes of entropy per handle
	// this is practically unreachable and indicates a broken entropy
	// source or storage backend.
	ErrExhaustedHandleSpace = errors.New("u2f: exhausted key handle space")

	// ErrKeyNotFound is returned by a KeyStore when no record matches both
	// the application and the key handle exactly.
	ErrKeyNotFound = errors.New("u2f: key not found")

	// ErrDuplicateHandle is returned by a KeyStore when a record already
	// exists for the (application, handle) pair being stored.
	ErrDuplicateHandle = errors.New("u2f: duplicate key handle")

	// ErrStoreClosed is returned by a KeyStore after Close.
	ErrStoreClosed = errors.New("u2f: key store is closed")

	// ErrInvalidRequest is returned by the facade for requests it cannot
	// dispatch.
	ErrInvalidRequest = errors.New("u2f: invalid request")
)
