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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

var (
	// ErrRequestTooShort is returned for command buffers shorter than a
	// minimal APDU.
	ErrRequestTooShort = errors.New("protocol: request too short")

	// ErrWrongLength is returned when a request body does not match the
	// length its command requires.
	ErrWrongLength = errors.New("protocol: wrong request length")

	// ErrClassNotSupported is returned for a non-zero class byte.
	ErrClassNotSupported = errors.New("protocol: class not supported")

	// ErrInstructionNotSupported is returned for unknown instructions.
	ErrInstructionNotSupported = errors.New("protocol: instruction not supported")

	// ErrInvalidControlByte is returned for unknown authentication
	// control values.
	ErrInvalidControlByte = errors.New("protocol: invalid control byte")
)

// DecodeRequest parses a complete command APDU into a u2f.Request. The
// expected layout is CLA INS P1 P2 followed by a 3-byte extended length and
// the request data.
func DecodeRequest(raw []byte) (*u2f.Request, error) {
	if len(raw) < minRequestLength {
		return nil, ErrRequestTooShort
	}

	cla := raw[0]
	ins := raw[1]
	p1 := raw[2]
	size := (int(raw[4]) << 16) | (int(raw[5]) << 8) | int(raw[6])
	data := raw[minRequestLength:]

	if cla != 0 {
		return nil, fmt.Errorf("%w: 0x%02x", ErrClassNotSupported, cla)
	}
	if len(data) < size {
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrWrongLength, size, len(data))
	}
	data = data[:size]

	switch ins {
	case CmdRegister:
		return decodeRegister(data)
	case CmdAuthenticate:
		return decodeAuthenticate(p1, data)
	case CmdVersion:
		if len(data) != 0 {
			return nil, fmt.Errorf("%w: version request carries data", ErrWrongLength)
		}
		return &u2f.Request{Type: u2f.RequestTypeVersion}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrInstructionNotSupported, ins)
	}
}

// decodeRegister parses the body of a U2F_REGISTER request: a challenge
// parameter followed by an application parameter.
func decodeRegister(data []byte) (*u2f.Request, error) {
	if len(data) != u2f.ChallengeSize+u2f.AppIDSize {
		return nil, fmt.Errorf("%w: register body is %d bytes", ErrWrongLength, len(data))
	}

	register := &u2f.RegisterRequest{}
	copy(register.Challenge[:], data[:u2f.ChallengeSize])
	copy(register.Application[:], data[u2f.ChallengeSize:])

	return &u2f.Request{
		Type:     u2f.RequestTypeRegister,
		Register: register,
	}, nil
}

// decodeAuthenticate parses the body of a U2F_AUTHENTICATE request: a
// challenge parameter, an application parameter, and a length-prefixed key
// handle. The control byte arrives as P1.
func decodeAuthenticate(ctrl byte, data []byte) (*u2f.Request, error) {
	switch ctrl {
	case CtrlCheckOnly, CtrlEnforceUserPresenceAndSign, CtrlDontEnforceUserPresenceAndSign:
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidControlByte, ctrl)
	}

	header := u2f.ChallengeSize + u2f.AppIDSize + 1
	if len(data) < header {
		return nil, fmt.Errorf("%w: authenticate body is %d bytes", ErrWrongLength, len(data))
	}

	auth := &u2f.AuthenticateRequest{
		CheckOnly: ctrl == CtrlCheckOnly,
	}
	copy(auth.Challenge[:], data[:u2f.ChallengeSize])
	copy(auth.Application[:], data[u2f.ChallengeSize:u2f.ChallengeSize+u2f.AppIDSize])

	handleLen := int(data[header-1])
	if handleLen != u2f.KeyHandleSize || len(data) != header+handleLen {
		// Handles issued by other tokens are legitimate requests that
		// simply cannot match a record here.
		return nil, u2f.ErrUnknownKeyHandle
	}
	copy(auth.KeyHandle[:], data[header:])

	return &u2f.Request{
		Type:         u2f.RequestTypeAuthenticate,
		Authenticate: auth,
	}, nil
}
