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
	"testing"

	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

func TestEncodeRegisterResponse(t *testing.T) {
	publicKey := make([]byte, u2f.PublicKeySize)
	publicKey[0] = 0x04
	certificate := []byte{0x30, 0x82, 0x01, 0x02}
	signature := []byte{0x30, 0x44, 0x02, 0x20}
	handle := fill(0x03)

	resp := &u2f.RegisterResponse{
		PublicKey:   publicKey,
		KeyHandle:   handle,
		Certificate: certificate,
		Signature:   signature,
	}

	encoded := EncodeRegisterResponse(resp)

	if encoded[0] != registerReservedByte {
		t.Errorf("reserved byte = 0x%02x, want 0x%02x", encoded[0], registerReservedByte)
	}
	offset := 1
	if !bytes.Equal(encoded[offset:offset+u2f.PublicKeySize], publicKey) {
		t.Error("public key mismatch")
	}
	offset += u2f.PublicKeySize
	if encoded[offset] != u2f.KeyHandleSize {
		t.Errorf("handle length = %d, want %d", encoded[offset], u2f.KeyHandleSize)
	}
	offset++
	if !bytes.Equal(encoded[offset:offset+u2f.KeyHandleSize], handle[:]) {
		t.Error("key handle mismatch")
	}
	offset += u2f.KeyHandleSize
	if !bytes.Equal(encoded[offset:offset+len(certificate)], certificate) {
		t.Error("certificate mismatch")
	}
	offset += len(certificate)
	if !bytes.Equal(encoded[offset:], signature) {
		t.Error("signature mismatch")
	}
}

func TestEncodeAuthenticateResponse(t *testing.T) {
	signature := []byte{0x30, 0x44, 0x02, 0x20}
	resp := &u2f.AuthenticateResponse{
		UserPresence: u2f.UserPresenceAsserted,
		Counter:      0x01020304,
		Signature:    signature,
	}

	encoded := EncodeAuthenticateResponse(resp)

	if encoded[0] != u2f.UserPresenceAsserted {
		t.Errorf("user presence byte = 0x%02x, want 0x%02x", encoded[0], u2f.UserPresenceAsserted)
	}
	if counter := binary.BigEndian.Uint32(encoded[1:5]); counter != 0x01020304 {
		t.Errorf("counter = 0x%08x, want 0x01020304", counter)
	}
	if !bytes.Equal(encoded[5:], signature) {
		t.Error("signature mismatch")
	}
}

func TestEncodeVersionResponse(t *testing.T) {
	encoded := EncodeVersionResponse(&u2f.VersionResponse{Version: u2f.Version})
	if string(encoded) != "U2F_V2" {
		t.Errorf("version = %q, want U2F_V2", encoded)
	}
}

func TestAppendStatus(t *testing.T) {
	frame := AppendStatus([]byte{0xAA, 0xBB}, SWNoError)
	want := []byte{0xAA, 0xBB, 0x90, 0x00}
	if !bytes.Equal(frame, want) {
		t.Errorf("AppendStatus = %x, want %x", frame, want)
	}
}

func TestStatusResponse(t *testing.T) {
	tests := []struct {
		status uint16
		want   []byte
	}{
		{SWNoError, []byte{0x90, 0x00}},
		{SWConditionsNotSatisfied, []byte{0x69, 0x85}},
		{SWWrongData, []byte{0x6A, 0x80}},
		{SWWrongLength, []byte{0x67, 0x00}},
		{SWClaNotSupported, []byte{0x6E, 0x00}},
		{SWInsNotSupported, []byte{0x6D, 0x00}},
		{SWMemoryFailure, []byte{0x65, 0x81}},
	}

	for _, tt := range tests {
		if got := StatusResponse(tt.status); !bytes.Equal(got, tt.want) {
			t.Errorf("StatusResponse(0x%04x) = %x, want %x", tt.status, got, tt.want)
		}
	}
}
