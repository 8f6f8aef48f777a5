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

// Package protocol implements the U2F raw message format: decoding of
// command APDUs into parsed requests, encoding of responses, and the ISO
// 7816 status words the transport appends to every reply. It contains no
// HID or USB framing; transports deliver whole command buffers and receive
// whole response buffers.
package protocol

// U2F command instruction bytes.
const (
	// CmdRegister is the U2F_REGISTER instruction.
	CmdRegister byte = 0x01

	// CmdAuthenticate is the U2F_AUTHENTICATE instruction.
	CmdAuthenticate byte = 0x02

	// CmdVersion is the U2F_VERSION instruction.
	CmdVersion byte = 0x03
)

// Authentication control byte values (P1 of a U2F_AUTHENTICATE APDU).
const (
	// CtrlCheckOnly asks whether the key handle is registered without
	// signing.
	CtrlCheckOnly byte = 0x07

	// CtrlEnforceUserPresenceAndSign requires a user presence check
	// before signing.
	CtrlEnforceUserPresenceAndSign byte = 0x03

	// CtrlDontEnforceUserPresenceAndSign signs without a user presence
	// check.
	CtrlDontEnforceUserPresenceAndSign byte = 0x08
)

// ISO 7816-4 status words returned in the trailing two bytes of every
// response APDU.
const (
	// SWNoError indicates successful execution.
	SWNoError uint16 = 0x9000

	// SWConditionsNotSatisfied indicates user presence is required, or
	// acknowledges a check-only probe of a registered key handle.
	SWConditionsNotSatisfied uint16 = 0x6985

	// SWWrongData indicates an unknown key handle or malformed request
	// data.
	SWWrongData uint16 = 0x6A80

	// SWWrongLength indicates a request of invalid length.
	SWWrongLength uint16 = 0x6700

	// SWClaNotSupported indicates an unsupported class byte.
	SWClaNotSupported uint16 = 0x6E00

	// SWInsNotSupported indicates an unsupported instruction byte.
	SWInsNotSupported uint16 = 0x6D00

	// SWMemoryFailure indicates a persistence failure while handling the
	// request.
	SWMemoryFailure uint16 = 0x6581
)

// registerReservedByte is the fixed first byte of a registration response.
const registerReservedByte byte = 0x05

// minRequestLength is the shortest well-formed command APDU this package
// accepts: CLA, INS, P1, P2 and a 3-byte extended length.
const minRequestLength = 7
