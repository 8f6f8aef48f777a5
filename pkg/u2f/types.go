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

// Package u2f implements the cryptographic core of a software U2F
// authenticator: credential registration, authentication with a previously
// registered credential, and the data model binding key material to the
// relying application that registered it.
//
// The package is transport-agnostic. A framing layer (HID, CLI, tests)
// delivers parsed requests to the Token facade and serializes whatever
// response or typed error comes back. Persistence, attestation signing and
// the signature counter are injected through the KeyStore,
// AttestationSigner and CounterSource interfaces.
package u2f

import (
	"crypto/ecdsa"
	"encoding/hex"
	"log/slog"
)

const (
	// AppIDSize is the size of an application parameter: the SHA-256 hash
	// of the relying party's identity.
	AppIDSize = 32

	// ChallengeSize is the size of a challenge parameter.
	ChallengeSize = 32

	// KeyHandleSize is the size of key handles issued by this token.
	KeyHandleSize = 32

	// PublicKeySize is the size of an uncompressed P-256 public key point.
	PublicKeySize = 65

	// Version is the protocol version string returned by the version query.
	Version = "U2F_V2"

	// UserPresenceAsserted is the user presence byte included in
	// authentication responses. Presence verification happens outside this
	// core; the byte is passed through to the relying party.
	UserPresenceAsserted byte = 0x01
)

// AppID is the application parameter binding a credential to a single
// relying application. It is opaque to the token and compared only for
// exact equality.
type AppID [AppIDSize]byte

// String returns the hex encoding of the application parameter.
func (a AppID) String() string {
	return hex.EncodeToString(a[:])
}

// Challenge is the challenge parameter supplied by the caller on every
// register and authenticate operation.
type Challenge [ChallengeSize]byte

// KeyHandle is the opaque reference returned at registration time and
// presented at authentication time to select a credential. It is
// attacker-visible and carries no secrecy requirement; its only property is
// that it locates the matching key record for the presenting application.
type KeyHandle [KeyHandleSize]byte

// String returns the hex encoding of the key handle.
func (h KeyHandle) String() string {
	return hex.EncodeToString(h[:])
}

// ApplicationKey is the persisted credential record: a per-application
// private key, the handle naming it, and the application it is bound to.
// A record is created exactly once by a successful registration and is
// read-only for the rest of its lifetime; authentication never mutates it.
type ApplicationKey struct {
	Application AppID
	Handle      KeyHandle

	// key is deliberately unexported. It is never serialized into
	// responses and never logged; stores access it through PrivateKey.
	key *ecdsa.PrivateKey
}

// NewApplicationKey creates a credential record binding key to application
// under handle.
func NewApplicationKey(application AppID, handle KeyHandle, key *ecdsa.PrivateKey) *ApplicationKey {
	return &ApplicationKey{
		Application: application,
		Handle:      handle,
		key:         key,
	}
}

// PrivateKey returns the per-application signing key.
func (k *ApplicationKey) PrivateKey() *ecdsa.PrivateKey {
	return k.key
}

// LogValue implements slog.LogValuer. Key material is redacted; only the
// binding is logged.
func (k *ApplicationKey) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("application", k.Application.String()),
		slog.String("handle", k.Handle.String()),
	)
}
