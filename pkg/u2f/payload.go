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

import (
	"bytes"
	"encoding/binary"
)

// registrationReservedByte is the fixed prefix of the signed registration
// payload, per the U2F raw message format.
const registrationReservedByte byte = 0x00

// RegistrationPayload returns the byte string the attestation signature in
// a registration response covers. Relying parties rebuild this payload to
// verify the response against the attestation certificate.
func RegistrationPayload(application AppID, challenge Challenge, handle KeyHandle, publicKey []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(registrationReservedByte)
	buf.Write(application[:])
	buf.Write(challenge[:])
	buf.Write(handle[:])
	buf.Write(publicKey)
	return buf.Bytes()
}

// AuthenticationPayload returns the byte string an authentication signature
// covers: the application parameter, the user presence byte, the big-endian
// counter, and the challenge parameter, in that order.
func AuthenticationPayload(application AppID, userPresence byte, counter uint32, challenge Challenge) []byte {
	var buf bytes.Buffer
	buf.Write(application[:])
	buf.WriteByte(userPresence)
	_ = binary.Write(&buf, binary.BigEndian, counter)
	buf.Write(challenge[:])
	return buf.Bytes()
}
