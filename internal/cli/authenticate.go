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
	authApp       string
	authHandle    string
	authChallenge string
	authCheckOnly bool
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Authenticate with a registered credential",
	Long: `Authenticate looks up the credential named by the application and key
handle, advances the signature counter, and prints the signed assertion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := parseAppID(authApp)
		if err != nil {
			return err
		}
		handle, err := parseKeyHandle(authHandle)
		if err != nil {
			return err
		}
		challenge, err := parseChallenge(authChallenge)
		if err != nil {
			return err
		}

		token, store, _, err := loadToken()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		resp, err := token.Authenticate(cmd.Context(), &u2f.AuthenticateRequest{
			Application: app,
			KeyHandle:   handle,
			Challenge:   challenge,
			CheckOnly:   authCheckOnly,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Application:   %s\n", app.String())
		fmt.Printf("Challenge:     %s\n", hex.EncodeToString(challenge[:]))
		fmt.Printf("Counter:       %d\n", resp.Counter)
		fmt.Printf("User Presence: 0x%02x\n", resp.UserPresence)
		fmt.Printf("Signature:     %s\n", base64.StdEncoding.EncodeToString(resp.Signature))
		return nil
	},
}

func init() {
	authenticateCmd.Flags().StringVar(&authApp, "app", "",
		"relying party origin or 32-byte hex application parameter")
	authenticateCmd.Flags().StringVar(&authHandle, "handle", "",
		"hex key handle returned at registration")
	authenticateCmd.Flags().StringVar(&authChallenge, "challenge", "",
		"32-byte hex challenge parameter (random if omitted)")
	authenticateCmd.Flags().BoolVar(&authCheckOnly, "check-only", false,
		"probe whether the key handle is registered without signing")
	_ = authenticateCmd.MarkFlagRequired("app")
	_ = authenticateCmd.MarkFlagRequired("handle")
}
