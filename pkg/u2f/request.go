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

// RequestType identifies the operation a parsed request asks for.
type RequestType uint8

const (
	// RequestTypeRegister asks the token to create a new credential.
	RequestTypeRegister RequestType = iota + 1

	// RequestTypeAuthenticate asks the token to sign a challenge with a
	// previously registered credential.
	RequestTypeAuthenticate

	// RequestTypeVersion asks for the protocol version string.
	RequestTypeVersion
)

// String returns the operation name for logging and metrics labels.
func (t RequestType) String() string {
	switch t {
	case RequestTypeRegister:
		return "register"
	case RequestTypeAuthenticate:
		return "authenticate"
	case RequestTypeVersion:
		return "version"
	default:
		return "unknown"
	}
}

// Request is a parsed command delivered by the transport layer as a single
// complete unit. Exactly one of the operation structs is set, matching Type.
type Request struct {
	Type         RequestType
	Register     *RegisterRequest
	Authenticate *AuthenticateRequest
}

// RegisterRequest carries the parameters of a registration operation.
type RegisterRequest struct {
	Application AppID
	Challenge   Challenge
}

// RegisterResponse is the result of a successful registration.
type RegisterResponse struct {
	// PublicKey is the uncompressed P-256 public point of the newly
	// generated per-application key.
	PublicKey []byte

	// KeyHandle names the stored credential.
	KeyHandle KeyHandle

	// Certificate is the DER encoded attestation certificate.
	Certificate []byte

	// Signature is the attestation signature over the registration
	// payload, verifiable against the attestation certificate.
	Signature []byte
}

// AuthenticateRequest carries the parameters of an authentication operation.
type AuthenticateRequest struct {
	Application AppID
	KeyHandle   KeyHandle
	Challenge   Challenge

	// CheckOnly asks the token to report whether the key handle is
	// registered for the application without producing a signature or
	// advancing the counter.
	CheckOnly bool
}

// AuthenticateResponse is the result of a successful authentication.
type AuthenticateResponse struct {
	UserPresence byte
	Counter      uint32

	// Signature is signed with the credential's private key, never the
	// attestation key.
	Signature []byte
}

// VersionResponse is the result of a version query.
type VersionResponse struct {
	Version string
}

// Response holds the outcome of a dispatched request. Exactly one field is
// set, matching the request type.
type Response struct {
	Register     *RegisterResponse
	Authenticate *AuthenticateResponse
	Version      *VersionResponse
}
