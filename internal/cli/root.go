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

// Package cli implements the softu2f command-line interface.
package cli

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-softu2f/internal/config"
	"github.com/jeremyhahn/go-softu2f/pkg/logging"
	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

var (
	configFile string
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "softu2f",
	Short: "softu2f - software U2F authenticator",
	Long: `softu2f is a software implementation of a FIDO/U2F authenticator.
It registers per-application credentials, authenticates with previously
registered credentials, and keeps key material sealed at rest.

Token state lives under the configured storage directory; the attestation
keypair is loaded from PEM files or generated self-signed for development.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is /etc/softu2f/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(authenticateCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger creates the CLI logger honoring the --debug flag.
func newLogger() *logging.Logger {
	return logging.NewLogger(debug)
}

// loadToken loads the configuration and assembles a token. The returned
// store must be closed by the caller.
func loadToken() (*u2f.Token, u2f.KeyStore, *config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	token, store, err := cfg.CreateToken(newLogger().Slog())
	if err != nil {
		return nil, nil, nil, err
	}
	return token, store, cfg, nil
}

// parseAppID accepts either a 64-character hex application parameter or a
// relying party origin, which is hashed with SHA-256 per the U2F spec.
func parseAppID(value string) (u2f.AppID, error) {
	var app u2f.AppID

	if value == "" {
		return app, fmt.Errorf("application is required")
	}

	if len(value) == u2f.AppIDSize*2 {
		if raw, err := hex.DecodeString(value); err == nil {
			copy(app[:], raw)
			return app, nil
		}
	}

	app = sha256.Sum256([]byte(value))
	return app, nil
}

// parseChallenge accepts a 64-character hex challenge parameter or, when
// empty, generates a random one.
func parseChallenge(value string) (u2f.Challenge, error) {
	var challenge u2f.Challenge

	if value == "" {
		if _, err := rand.Read(challenge[:]); err != nil {
			return challenge, fmt.Errorf("failed to generate challenge: %w", err)
		}
		return challenge, nil
	}

	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != u2f.ChallengeSize {
		return challenge, fmt.Errorf("challenge must be %d hex-encoded bytes", u2f.ChallengeSize)
	}
	copy(challenge[:], raw)
	return challenge, nil
}

// parseKeyHandle decodes a hex key handle.
func parseKeyHandle(value string) (u2f.KeyHandle, error) {
	var handle u2f.KeyHandle

	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != u2f.KeyHandleSize {
		return handle, fmt.Errorf("key handle must be %d hex-encoded bytes", u2f.KeyHandleSize)
	}
	copy(handle[:], raw)
	return handle, nil
}
