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

// Package config loads the token configuration from YAML and assembles the
// collaborators (key store, counter, attestation signer) a token runs with.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the complete token configuration
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Attestation AttestationConfig `yaml:"attestation"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// StorageConfig controls where and how token state is persisted
type StorageConfig struct {
	// Backend selects the storage backend: "file" or "memory".
	Backend string `yaml:"backend"`

	// Path is the root directory for file-based storage.
	Path string `yaml:"path"`

	// Passphrase seals credential records at rest. Empty disables
	// sealing (tests only).
	Passphrase string `yaml:"passphrase"`

	// PassphraseFile reads the sealing passphrase from a file, taking
	// precedence over Passphrase.
	PassphraseFile string `yaml:"passphrase_file"`
}

// AttestationConfig locates the device attestation key material
type AttestationConfig struct {
	// KeyFile is the PEM encoded attestation private key.
	KeyFile string `yaml:"key_file"`

	// CertFile is the PEM encoded attestation certificate.
	CertFile string `yaml:"cert_file"`

	// SelfSigned generates an ephemeral attestation keypair instead of
	// loading one. Development only.
	SelfSigned bool `yaml:"self_signed"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// DefaultConfigPath is the config file consulted when none is given.
const DefaultConfigPath = "/etc/softu2f/config.yaml"

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "SOFTU2F_CONFIG"

// Default returns a configuration suitable for local development.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(home, ".softu2f"),
		},
		Attestation: AttestationConfig{
			SelfSigned: true,
		},
		Metrics: MetricsConfig{
			Listen: "localhost:9232",
		},
	}
}

// Load reads the configuration from path, applying defaults for unset
// fields. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", "file", "memory":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("config: file storage requires a path")
	}

	if !c.Attestation.SelfSigned {
		if c.Attestation.KeyFile == "" || c.Attestation.CertFile == "" {
			return fmt.Errorf("config: attestation requires key_file and cert_file, or self_signed: true")
		}
	}

	return nil
}

// SealingPassphrase resolves the passphrase used to seal credential
// records, preferring the passphrase file when set.
func (c *Config) SealingPassphrase() (string, error) {
	if c.Storage.PassphraseFile != "" {
		raw, err := os.ReadFile(c.Storage.PassphraseFile)
		if err != nil {
			return "", fmt.Errorf("config: failed to read passphrase file: %w", err)
		}
		return string(raw), nil
	}
	return c.Storage.Passphrase, nil
}
