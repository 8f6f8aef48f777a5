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

package protocol

import (
	"bytes"
	"encoding/binary"

	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

// EncodeRegisterResponse serializes a registration response per the U2F raw
// message format: a reserved byte, the credential public key, the
// length-prefixed key handle, the attestation certificate, and the
// attestation signature. The status word is not included; the transport
// appends it via AppendStatus.
func EncodeRegisterResponse(resp *u2f.RegisterResponse) []byte {
	var buf bytes.Buffer
	buf.WriteByte(registerReservedByte)
	buf.Write(resp.PublicKey)
	buf.WriteByte(byte(len(resp.KeyHandle)))
	buf.Write(resp.KeyHandle[:])
	buf.Write(resp.Certificate)
	buf.Write(resp.Signature)
	return buf.Bytes()
}

// EncodeAuthenticateResponse serializes an authentication response: the
// user presence byte, the big-endian counter, and the signature.
func EncodeAuthenticateResponse(resp *u2f.AuthenticateResponse) []byte {
	var buf bytes.Buffer
	buf.WriteByte(resp.UserPresence)
	_ = binary.Write(&buf, binary.BigEndian, resp.Counter)
	buf.Write(resp.Signature)
	return buf.Bytes()
}

// EncodeVersionResponse serializes a version response.
func EncodeVersionResponse(resp *u2f.VersionResponse) []byte {
	return []byte(resp.Version)
}

// AppendStatus appends the big-endian status word to a response body,
// producing the complete response APDU.
func AppendStatus(body []byte, status uint16) []byte {
	out := make([]byte, len(body)+2)
	copy(out, body)
	binary.BigEndian.PutUint16(out[len(body):], status)
	return out
}

// StatusResponse returns a response APDU carrying only a status word.
func StatusResponse(status uint16) []byte {
	return AppendStatus(nil, status)
}
