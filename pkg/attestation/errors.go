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

package attestation

import "errors"

var (
	// ErrSigningUnavailable is returned when the attestation key material
	// is missing or failed to load. This is fatal for the registration
	// flow; the token must refuse registrations until resolved.
	ErrSigningUnavailable = errors.New("attestation: signing unavailable")

	// ErrCertificateInvalid is returned when the attestation certificate
	// is malformed or does not match the attestation key.
	ErrCertificateInvalid = errors.New("attestation: invalid certificate")
)
