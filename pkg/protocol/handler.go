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
	"context"
	"errors"
	"log/slog"

	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

// Responder is the capability a transport consumes: it accepts a whole
// command buffer and returns a whole response buffer. Device plumbing (HID
// report chunking, kernel handles) stays on the transport side of this
// interface.
type Responder interface {
	HandleMessage(ctx context.Context, frame []byte) []byte
}

// Handler adapts a u2f.Token to the Responder capability, translating core
// errors into U2F status words. Every call produces a response buffer; the
// token stays usable after any per-request failure.
type Handler struct {
	token  *u2f.Token
	logger *slog.Logger
}

// NewHandler creates a Handler around the given token.
func NewHandler(token *u2f.Token, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		token:  token,
		logger: logger,
	}
}

// HandleMessage decodes a command APDU, dispatches it to the token, and
// encodes the outcome. Implements Responder.
func (h *Handler) HandleMessage(ctx context.Context, frame []byte) []byte {
	req, err := DecodeRequest(frame)
	if err != nil {
		return StatusResponse(statusForError(err))
	}

	resp, err := h.token.Dispatch(ctx, req)
	if err != nil {
		return StatusResponse(statusForError(err))
	}

	switch {
	case resp.Register != nil:
		return AppendStatus(EncodeRegisterResponse(resp.Register), SWNoError)
	case resp.Authenticate != nil:
		return AppendStatus(EncodeAuthenticateResponse(resp.Authenticate), SWNoError)
	case resp.Version != nil:
		return AppendStatus(EncodeVersionResponse(resp.Version), SWNoError)
	default:
		h.logger.Error("token returned an empty response", "request_type", req.Type.String())
		return StatusResponse(SWMemoryFailure)
	}
}

// statusForError maps decode and core errors to status words. Resource
// failures (storage, counter persistence) deliberately map to a memory
// failure status rather than wrong-data so relying parties retry instead of
// discarding the credential.
func statusForError(err error) uint16 {
	switch {
	case errors.Is(err, u2f.ErrUnknownKeyHandle):
		return SWWrongData
	case errors.Is(err, u2f.ErrUserPresenceRequired):
		return SWConditionsNotSatisfied
	case errors.Is(err, ErrClassNotSupported):
		return SWClaNotSupported
	case errors.Is(err, ErrInstructionNotSupported):
		return SWInsNotSupported
	case errors.Is(err, ErrRequestTooShort), errors.Is(err, ErrWrongLength):
		return SWWrongLength
	case errors.Is(err, ErrInvalidControlByte), errors.Is(err, u2f.ErrInvalidRequest):
		return SWWrongData
	default:
		return SWMemoryFailure
	}
}

var _ Responder = (*Handler)(nil)
