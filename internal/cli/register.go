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

package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

var (
	registerApp       string
	registerChallenge string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new credential for an application",
	Long: `Register generates a fresh keypair bound to the given application,
persists it in the token's key store, and prints the registration response:
the key handle, the credential public key, the attestation certificate and
the attestation signature.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := parseAppID(registerApp)
		if err != nil {
			return err
		}
		challenge, err := parseChallenge(registerChallenge)
		if err != nil {
			return err
		}

		token, store, _, err := loadToken()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		resp, err := token.Register(cmd.Context(), &u2f.RegisterRequest{
			Application: app,
			Challenge:   challenge,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Application:  %s\n", app.String())
		fmt.Printf("Challenge:    %s\n", hex.EncodeToString(challenge[:]))
		fmt.Printf("Key Handle:   %s\n", resp.KeyHandle.String())
		fmt.Printf("Public Key:   %s\n", hex.EncodeToString(resp.PublicKey))
		fmt.Printf("Certificate:  %s\n", base64.StdEncoding.EncodeToString(resp.Certificate))
		fmt.Printf("Signature:    %s\n", base64.StdEncoding.EncodeToString(resp.Signature))
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerApp, "app", "",
		"relying party origin or 32-byte hex application parameter")
	registerCmd.Flags().StringVar(&registerChallenge, "challenge", "",
		"32-byte hex challenge parameter (random if omitted)")
	_ = registerCmd.MarkFlagRequired("app")
}
