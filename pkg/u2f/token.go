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
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeremyhahn/go-softu2f/pkg/correlation"
	"github.com/jeremyhahn/go-softu2f/pkg/metrics"
)

// maxHandleAttempts bounds key handle regeneration on store conflicts.
// A collision between two 32-byte random handles is practically
// unreachable; the bound exists so a broken entropy source or storage
// backend fails loudly instead of looping.
const maxHandleAttempts = 5

// Config contains the collaborators a Token is assembled from.
type Config struct {
	// KeyStore persists per-application credential records.
	KeyStore KeyStore

	// Attestation signs registration responses and exposes the device
	// attestation certificate.
	Attestation AttestationSigner

	// Counter is the durable signature counter.
	Counter CounterSource

	// Logger receives operation logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks that all required collaborators are present.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("u2f: config is nil")
	}
	if c.KeyStore == nil {
		return fmt.Errorf("u2f: config requires a key store")
	}
	if c.Attestation == nil {
		return fmt.Errorf("u2f: config requires an attestation signer")
	}
	if c.Counter == nil {
		return fmt.Errorf("u2f: config requires a counter source")
	}
	return nil
}

// Token is the authenticator facade. It dispatches parsed requests to the
// registration and authentication flows and answers version queries. It
// performs no cryptography of its own beyond the flows and holds no mutable
// state; all shared state lives behind the injected collaborators.
type Token struct {
	store       KeyStore
	attestation AttestationSigner
	counter     CounterSource
	logger      *slog.Logger
}

// NewToken assembles a token from the configured collaborators.
func NewToken(config *Config) (*Token, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Token{
		store:       config.KeyStore,
		attestation: config.Attestation,
		counter:     config.Counter,
		logger:      logger,
	}, nil
}

// Dispatch routes a parsed request to the operation it names. It is the
// single entry point the transport layer calls.
func (t *Token) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	ctx, correlationID := correlation.EnsureCorrelationID(ctx)
	op := req.Type.String()
	start := time.Now()

	resp, err := t.dispatch(ctx, req)

	metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		metrics.RecordOperation(op, metrics.StatusError)
		t.logger.Warn("token operation failed",
			"operation", op,
			"correlation_id", correlationID,
			"error", err)
		return nil, err
	}

	metrics.RecordOperation(op, metrics.StatusSuccess)
	t.logger.Debug("token operation completed",
		"operation", op,
		"correlation_id", correlationID,
		"duration", time.Since(start))
	return resp, nil
}

func (t *Token) dispatch(ctx context.Context, req *Request) (*Response, error) {
	switch req.Type {
	case RequestTypeRegister:
		if req.Register == nil {
			return nil, ErrInvalidRequest
		}
		resp, err := t.Register(ctx, req.Register)
		if err != nil {
			return nil, err
		}
		return &Response{Register: resp}, nil

	case RequestTypeAuthenticate:
		if req.Authenticate == nil {
			return nil, ErrInvalidRequest
		}
		resp, err := t.Authenticate(ctx, req.Authenticate)
		if err != nil {
			return nil, err
		}
		return &Response{Authenticate: resp}, nil

	case RequestTypeVersion:
		resp := t.Version()
		return &Response{Version: &resp}, nil

	default:
		return nil, fmt.Errorf("%w: request type %d", ErrInvalidRequest, req.Type)
	}
}

// Register creates a fresh P-256 credential bound to the requesting
// application, persists it, and returns the attestation-signed registration
// response. No response is produced unless the record was durably stored:
// the attestation signature is computed before the store write, and the
// write is the last failable step.
func (t *Token) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		metrics.RecordError(req.Type().String(), "key_generation")
		return nil, fmt.Errorf("u2f: failed to generate credential key: %w", err)
	}

	publicKey := marshalPublicKey(&privateKey.PublicKey)

	for attempt := 0; attempt < maxHandleAttempts; attempt++ {
		var handle KeyHandle
		if _, err := rand.Read(handle[:]); err != nil {
			return nil, fmt.Errorf("u2f: failed to generate key handle: %w", err)
		}

		payload := RegistrationPayload(req.Application, req.Challenge, handle, publicKey)
		signature, err := t.attestation.SignAttestation(payload)
		if err != nil {
			metrics.RecordError(req.Type().String(), "attestation_signing")
			return nil, fmt.Errorf("u2f: failed to sign registration: %w", err)
		}

		err = t.store.Put(NewApplicationKey(req.Application, handle, privateKey))
		if errors.Is(err, ErrDuplicateHandle) {
			// Regenerate the handle and try again.
			continue
		}
		if err != nil {
			metrics.RecordError(req.Type().String(), "store_put")
			return nil, fmt.Errorf("u2f: failed to persist credential: %w", err)
		}

		t.logger.Info("registered credential",
			"application", req.Application.String(),
			"handle", handle.String(),
			"correlation_id", correlation.GetCorrelationID(ctx))

		return &RegisterResponse{
			PublicKey:   publicKey,
			KeyHandle:   handle,
			Certificate: t.attestation.Certificate(),
			Signature:   signature,
		}, nil
	}

	return nil, ErrExhaustedHandleSpace
}

// Authenticate locates the credential named by (application, key handle),
// advances the signature counter, and signs the challenge with the
// credential's private key. A lookup miss reports ErrUnknownKeyHandle
// without advancing the counter; a counter persistence failure aborts
// before any signature is produced.
func (t *Token) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthenticateResponse, error) {
	record, err := t.store.Get(req.Application, req.KeyHandle)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			metrics.RecordError(req.Type().String(), "unknown_key_handle")
			return nil, ErrUnknownKeyHandle
		}
		metrics.RecordError(req.Type().String(), "store_get")
		return nil, fmt.Errorf("u2f: failed to look up credential: %w", err)
	}

	if req.CheckOnly {
		// The handle is registered here; per the control byte semantics
		// the probe answer is "present, user presence required".
		return nil, ErrUserPresenceRequired
	}

	counter, err := t.counter.Next()
	if err != nil {
		metrics.RecordError(req.Type().String(), "counter_persistence")
		return nil, fmt.Errorf("u2f: failed to advance signature counter: %w", err)
	}
	metrics.SetSignatureCounter(counter)

	payload := AuthenticationPayload(req.Application, UserPresenceAsserted, counter, req.Challenge)
	digest := sha256.Sum256(payload)

	signature, err := ecdsa.SignASN1(rand.Reader, record.PrivateKey(), digest[:])
	if err != nil {
		metrics.RecordError(req.Type().String(), "signing")
		return nil, fmt.Errorf("u2f: failed to sign challenge: %w", err)
	}

	t.logger.Info("authenticated credential",
		"application", req.Application.String(),
		"handle", req.KeyHandle.String(),
		"counter", counter,
		"correlation_id", correlation.GetCorrelationID(ctx))

	return &AuthenticateResponse{
		UserPresence: UserPresenceAsserted,
		Counter:      counter,
		Signature:    signature,
	}, nil
}

// Version returns the static protocol version string.
func (t *Token) Version() VersionResponse {
	return VersionResponse{Version: Version}
}

// marshalPublicKey encodes an ECDSA public key as an uncompressed point.
func marshalPublicKey(pub *ecdsa.PublicKey) []byte {
	ecdhPub, err := pub.ECDH()
	if err != nil {
		// P-256 keys generated by this package always convert.
		panic("u2f: invalid P-256 public key: " + err.Error())
	}
	return ecdhPub.Bytes()
}

// Type returns the request type for metrics labels.
func (r *RegisterRequest) Type() RequestType { return RequestTypeRegister }

// Type returns the request type for metrics labels.
func (r *AuthenticateRequest) Type() RequestType { return RequestTypeAuthenticate }
