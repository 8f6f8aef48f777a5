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

package u2f_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-softu2f/pkg/attestation"
	"github.com/jeremyhahn/go-softu2f/pkg/counter"
	"github.com/jeremyhahn/go-softu2f/pkg/keystore"
	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

func newTestToken(t *testing.T) (*u2f.Token, *attestation.Attestor, *keystore.Memory, *counter.Memory) {
	t.Helper()

	attestor, err := attestation.GenerateSelfSigned()
	require.NoError(t, err)

	store := keystore.NewMemory()
	counterSource := counter.NewMemory()

	token, err := u2f.NewToken(&u2f.Config{
		KeyStore:    store,
		Attestation: attestor,
		Counter:     counterSource,
	})
	require.NoError(t, err)

	return token, attestor, store, counterSource
}

func appID(name string) u2f.AppID {
	return sha256.Sum256([]byte(name))
}

func challenge(name string) u2f.Challenge {
	return sha256.Sum256([]byte(name))
}

func parsePublicKey(t *testing.T, raw []byte) *ecdsa.PublicKey {
	t.Helper()

	require.Len(t, raw, u2f.PublicKeySize)
	x, y := elliptic.Unmarshal(elliptic.P256(), raw)
	require.NotNil(t, x, "public key must be a valid uncompressed point")
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
}

func TestNewToken(t *testing.T) {
	attestor, err := attestation.GenerateSelfSigned()
	require.NoError(t, err)

	tests := []struct {
		name    string
		config  *u2f.Config
		wantErr bool
	}{
		{
			name: "complete config",
			config: &u2f.Config{
				KeyStore:    keystore.NewMemory(),
				Attestation: attestor,
				Counter:     counter.NewMemory(),
			},
		},
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name: "missing key store",
			config: &u2f.Config{
				Attestation: attestor,
				Counter:     counter.NewMemory(),
			},
			wantErr: true,
		},
		{
			name: "missing attestation",
			config: &u2f.Config{
				KeyStore: keystore.NewMemory(),
				Counter:  counter.NewMemory(),
			},
			wantErr: true,
		},
		{
			name: "missing counter",
			config: &u2f.Config{
				KeyStore:    keystore.NewMemory(),
				Attestation: attestor,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := u2f.NewToken(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, token)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, token)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		token, attestor, _, _ := newTestToken(t)
		app := appID("https://example.com")
		ch := challenge("C1")

		resp, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   ch,
		})
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Len(t, resp.PublicKey, u2f.PublicKeySize)
		assert.Equal(t, attestor.Certificate(), resp.Certificate)

		// The attestation signature covers
		// 0x00 || app || challenge || handle || public key and verifies
		// against the attestation certificate's key.
		payload := u2f.RegistrationPayload(app, ch, resp.KeyHandle, resp.PublicKey)
		digest := sha256.Sum256(payload)
		assert.True(t, ecdsa.VerifyASN1(attestor.PublicKey(), digest[:], resp.Signature),
			"attestation signature must verify against the attestation key")

		// And not against the newly generated credential key.
		credentialPub := parsePublicKey(t, resp.PublicKey)
		assert.False(t, ecdsa.VerifyASN1(credentialPub, digest[:], resp.Signature),
			"attestation signature must not verify against the credential key")
	})

	t.Run("handles are unique per application", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)
		app := appID("https://example.com")

		seen := make(map[u2f.KeyHandle]bool)
		for i := 0; i < 32; i++ {
			resp, err := token.Register(context.Background(), &u2f.RegisterRequest{
				Application: app,
				Challenge:   challenge("C"),
			})
			require.NoError(t, err)
			assert.False(t, seen[resp.KeyHandle], "handle issued twice")
			seen[resp.KeyHandle] = true
		}
	})

	t.Run("fail-closed on store failure", func(t *testing.T) {
		attestor, err := attestation.GenerateSelfSigned()
		require.NoError(t, err)

		failing := &failingStore{putErr: errors.New("disk full")}
		token, err := u2f.NewToken(&u2f.Config{
			KeyStore:    failing,
			Attestation: attestor,
			Counter:     counter.NewMemory(),
		})
		require.NoError(t, err)

		resp, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: appID("https://example.com"),
			Challenge:   challenge("C1"),
		})
		assert.Error(t, err)
		assert.Nil(t, resp, "no handle may be returned when persistence failed")
	})

	t.Run("regenerates handle on conflict", func(t *testing.T) {
		attestor, err := attestation.GenerateSelfSigned()
		require.NoError(t, err)

		store := &conflictingStore{Memory: keystore.NewMemory(), conflicts: 2}
		token, err := u2f.NewToken(&u2f.Config{
			KeyStore:    store,
			Attestation: attestor,
			Counter:     counter.NewMemory(),
		})
		require.NoError(t, err)

		resp, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: appID("https://example.com"),
			Challenge:   challenge("C1"),
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 3, store.putCalls, "expected two conflicts before success")
	})

	t.Run("bounded handle regeneration", func(t *testing.T) {
		attestor, err := attestation.GenerateSelfSigned()
		require.NoError(t, err)

		token, err := u2f.NewToken(&u2f.Config{
			KeyStore:    &failingStore{putErr: u2f.ErrDuplicateHandle},
			Attestation: attestor,
			Counter:     counter.NewMemory(),
		})
		require.NoError(t, err)

		_, err = token.Register(context.Background(), &u2f.RegisterRequest{
			Application: appID("https://example.com"),
			Challenge:   challenge("C1"),
		})
		assert.ErrorIs(t, err, u2f.ErrExhaustedHandleSpace)
	})

	t.Run("attestation signer failure produces no record", func(t *testing.T) {
		store := keystore.NewMemory()
		token, err := u2f.NewToken(&u2f.Config{
			KeyStore:    store,
			Attestation: &unavailableSigner{},
			Counter:     counter.NewMemory(),
		})
		require.NoError(t, err)

		app := appID("https://example.com")
		_, err = token.Register(context.Background(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   challenge("C1"),
		})
		assert.ErrorIs(t, err, attestation.ErrSigningUnavailable)

		records, err := store.List(app)
		require.NoError(t, err)
		assert.Empty(t, records, "failed registration must leave no record behind")
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("successful authentication", func(t *testing.T) {
		token, attestor, _, _ := newTestToken(t)
		app := appID("https://example.com")

		reg, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   challenge("C1"),
		})
		require.NoError(t, err)

		ch := challenge("C2")
		resp, err := token.Authenticate(context.Background(), &u2f.AuthenticateRequest{
			Application: app,
			KeyHandle:   reg.KeyHandle,
			Challenge:   ch,
		})
		require.NoError(t, err)

		assert.Equal(t, u2f.UserPresenceAsserted, resp.UserPresence)
		assert.Equal(t, uint32(1), resp.Counter, "fresh counter must yield 1")

		payload := u2f.AuthenticationPayload(app, resp.UserPresence, resp.Counter, ch)
		digest := sha256.Sum256(payload)

		credentialPub := parsePublicKey(t, reg.PublicKey)
		assert.True(t, ecdsa.VerifyASN1(credentialPub, digest[:], resp.Signature),
			"authentication signature must verify against the credential key")
		assert.False(t, ecdsa.VerifyASN1(attestor.PublicKey(), digest[:], resp.Signature),
			"authentication signature must not verify against the attestation key")
	})

	t.Run("counter strictly increases", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)
		app := appID("https://example.com")

		reg, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   challenge("C1"),
		})
		require.NoError(t, err)

		var last uint32
		for i := 0; i < 10; i++ {
			resp, err := token.Authenticate(context.Background(), &u2f.AuthenticateRequest{
				Application: app,
				KeyHandle:   reg.KeyHandle,
				Challenge:   challenge("C"),
			})
			require.NoError(t, err)
			assert.Greater(t, resp.Counter, last)
			last = resp.Counter
		}
	})

	t.Run("unknown handle", func(t *testing.T) {
		token, _, _, counterSource := newTestToken(t)
		app := appID("https://example.com")

		var bogus u2f.KeyHandle
		copy(bogus[:], []byte("never registered"))

		_, err := token.Authenticate(context.Background(), &u2f.AuthenticateRequest{
			Application: app,
			KeyHandle:   bogus,
			Challenge:   challenge("C2"),
		})
		assert.ErrorIs(t, err, u2f.ErrUnknownKeyHandle)

		// The counter must not have advanced: the next value is still 1.
		next, err := counterSource.Next()
		require.NoError(t, err)
		assert.Equal(t, uint32(1), next)
	})

	t.Run("cross-application handle reuse", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)

		reg, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: appID("A"),
			Challenge:   challenge("C1"),
		})
		require.NoError(t, err)

		_, err = token.Authenticate(context.Background(), &u2f.AuthenticateRequest{
			Application: appID("B"),
			KeyHandle:   reg.KeyHandle,
			Challenge:   challenge("C2"),
		})
		assert.ErrorIs(t, err, u2f.ErrUnknownKeyHandle)
	})

	t.Run("check-only probe", func(t *testing.T) {
		token, _, _, counterSource := newTestToken(t)
		app := appID("https://example.com")

		reg, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   challenge("C1"),
		})
		require.NoError(t, err)

		_, err = token.Authenticate(context.Background(), &u2f.AuthenticateRequest{
			Application: app,
			KeyHandle:   reg.KeyHandle,
			Challenge:   challenge("C2"),
			CheckOnly:   true,
		})
		assert.ErrorIs(t, err, u2f.ErrUserPresenceRequired)

		next, err := counterSource.Next()
		require.NoError(t, err)
		assert.Equal(t, uint32(1), next, "check-only must not advance the counter")
	})

	t.Run("counter failure aborts before signing", func(t *testing.T) {
		attestor, err := attestation.GenerateSelfSigned()
		require.NoError(t, err)

		store := keystore.NewMemory()
		token, err := u2f.NewToken(&u2f.Config{
			KeyStore:    store,
			Attestation: attestor,
			Counter:     &failingCounter{},
		})
		require.NoError(t, err)

		app := appID("https://example.com")
		reg, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   challenge("C1"),
		})
		require.NoError(t, err)

		resp, err := token.Authenticate(context.Background(), &u2f.AuthenticateRequest{
			Application: app,
			KeyHandle:   reg.KeyHandle,
			Challenge:   challenge("C2"),
		})
		assert.Error(t, err)
		assert.Nil(t, resp, "no signature may be produced without a persisted counter")
	})
}

func TestDispatch(t *testing.T) {
	t.Run("routes register", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)

		resp, err := token.Dispatch(context.Background(), &u2f.Request{
			Type: u2f.RequestTypeRegister,
			Register: &u2f.RegisterRequest{
				Application: appID("A"),
				Challenge:   challenge("C1"),
			},
		})
		require.NoError(t, err)
		require.NotNil(t, resp.Register)
		assert.Nil(t, resp.Authenticate)
		assert.Nil(t, resp.Version)
	})

	t.Run("routes authenticate", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)
		app := appID("A")

		reg, err := token.Register(context.Background(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   challenge("C1"),
		})
		require.NoError(t, err)

		resp, err := token.Dispatch(context.Background(), &u2f.Request{
			Type: u2f.RequestTypeAuthenticate,
			Authenticate: &u2f.AuthenticateRequest{
				Application: app,
				KeyHandle:   reg.KeyHandle,
				Challenge:   challenge("C2"),
			},
		})
		require.NoError(t, err)
		require.NotNil(t, resp.Authenticate)
	})

	t.Run("routes version", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)

		resp, err := token.Dispatch(context.Background(), &u2f.Request{
			Type: u2f.RequestTypeVersion,
		})
		require.NoError(t, err)
		require.NotNil(t, resp.Version)
		assert.Equal(t, u2f.Version, resp.Version.Version)
	})

	t.Run("rejects malformed requests", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)

		tests := []struct {
			name string
			req  *u2f.Request
		}{
			{"nil request", nil},
			{"unknown type", &u2f.Request{Type: u2f.RequestType(42)}},
			{"register without body", &u2f.Request{Type: u2f.RequestTypeRegister}},
			{"authenticate without body", &u2f.Request{Type: u2f.RequestTypeAuthenticate}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := token.Dispatch(context.Background(), tt.req)
				assert.ErrorIs(t, err, u2f.ErrInvalidRequest)
			})
		}
	})

	t.Run("token stays usable after per-request failures", func(t *testing.T) {
		token, _, _, _ := newTestToken(t)
		app := appID("A")

		var bogus u2f.KeyHandle
		_, err := token.Dispatch(context.Background(), &u2f.Request{
			Type: u2f.RequestTypeAuthenticate,
			Authenticate: &u2f.AuthenticateRequest{
				Application: app,
				KeyHandle:   bogus,
				Challenge:   challenge("C"),
			},
		})
		require.ErrorIs(t, err, u2f.ErrUnknownKeyHandle)

		_, err = token.Dispatch(context.Background(), &u2f.Request{
			Type: u2f.RequestTypeRegister,
			Register: &u2f.RegisterRequest{
				Application: app,
				Challenge:   challenge("C1"),
			},
		})
		assert.NoError(t, err)
	})
}

func TestConcurrentAuthentication(t *testing.T) {
	token, _, _, _ := newTestToken(t)
	app := appID("https://example.com")

	reg, err := token.Register(context.Background(), &u2f.RegisterRequest{
		Application: app,
		Challenge:   challenge("C1"),
	})
	require.NoError(t, err)

	const workers = 16
	counters := make(chan uint32, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := token.Authenticate(context.Background(), &u2f.AuthenticateRequest{
				Application: app,
				KeyHandle:   reg.KeyHandle,
				Challenge:   challenge("C"),
			})
			if err == nil {
				counters <- resp.Counter
			}
		}()
	}
	wg.Wait()
	close(counters)

	seen := make(map[uint32]bool)
	for c := range counters {
		assert.False(t, seen[c], "counter value %d observed twice", c)
		seen[c] = true
	}
	assert.Len(t, seen, workers)
}

// failingStore returns a fixed error from Put and reports every lookup as a
// miss.
type failingStore struct {
	putErr error
}

func (f *failingStore) Put(*u2f.ApplicationKey) error { return f.putErr }
func (f *failingStore) Get(u2f.AppID, u2f.KeyHandle) (*u2f.ApplicationKey, error) {
	return nil, u2f.ErrKeyNotFound
}
func (f *failingStore) List(u2f.AppID) ([]*u2f.ApplicationKey, error) { return nil, nil }
func (f *failingStore) Delete(u2f.AppID, u2f.KeyHandle) error         { return u2f.ErrKeyNotFound }
func (f *failingStore) Close() error                                  { return nil }

// conflictingStore reports the first n Puts as duplicate handles.
type conflictingStore struct {
	*keystore.Memory
	conflicts int
	putCalls  int
}

func (c *conflictingStore) Put(key *u2f.ApplicationKey) error {
	c.putCalls++
	if c.putCalls <= c.conflicts {
		return u2f.ErrDuplicateHandle
	}
	return c.Memory.Put(key)
}

// unavailableSigner simulates missing attestation key material.
type unavailableSigner struct{}

func (u *unavailableSigner) SignAttestation([]byte) ([]byte, error) {
	return nil, attestation.ErrSigningUnavailable
}
func (u *unavailableSigner) Certificate() []byte { return nil }

// failingCounter simulates a counter whose persistence is broken.
type failingCounter struct{}

func (f *failingCounter) Next() (uint32, error) {
	return 0, counter.ErrPersistence
}
