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

package config

import (
	"fmt"
	"log/slog"

	"github.com/jeremyhahn/go-softu2f/pkg/attestation"
	"github.com/jeremyhahn/go-softu2f/pkg/counter"
	"github.com/jeremyhahn/go-softu2f/pkg/keystore"
	"github.com/jeremyhahn/go-softu2f/pkg/storage"
	"github.com/jeremyhahn/go-softu2f/pkg/storage/file"
	"github.com/jeremyhahn/go-softu2f/pkg/storage/memory"
	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

// CreateStorage creates the storage backend named by the configuration.
func (c *Config) CreateStorage() (storage.Backend, error) {
	switch c.Storage.Backend {
	case "memory":
		return memory.New(), nil
	case "", "file":
		return file.New(c.Storage.Path)
	default:
		return nil, fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
}

// CreateAttestor loads or generates the attestation signer.
func (c *Config) CreateAttestor() (*attestation.Attestor, error) {
	if c.Attestation.SelfSigned {
		return attestation.GenerateSelfSigned()
	}
	return attestation.LoadFromPEM(c.Attestation.KeyFile, c.Attestation.CertFile)
}

// CreateToken assembles a token from the configuration: storage backend,
// sealed key store, persistent counter and attestation signer. The returned
// key store owns the storage backend and closes it.
func (c *Config) CreateToken(logger *slog.Logger) (*u2f.Token, u2f.KeyStore, error) {
	backend, err := c.CreateStorage()
	if err != nil {
		return nil, nil, err
	}

	passphrase, err := c.SealingPassphrase()
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	store, err := keystore.NewSealed(backend, passphrase)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	counterSource, err := counter.NewPersistent(backend)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	attestor, err := c.CreateAttestor()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	token, err := u2f.NewToken(&u2f.Config{
		KeyStore:    store,
		Attestation: attestor,
		Counter:     counterSource,
		Logger:      logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return token, store, nil
}
