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
	"fmt"

	"github.com/spf13/cobra"
)

var (
	keysApp    string
	keysHandle string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage registered credentials",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials registered for an application",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := parseAppID(keysApp)
		if err != nil {
			return err
		}

		_, store, _, err := loadToken()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		records, err := store.List(app)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Printf("no credentials registered for %s\n", app.String())
			return nil
		}
		for _, record := range records {
			fmt.Println(record.Handle.String())
		}
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deregister a credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := parseAppID(keysApp)
		if err != nil {
			return err
		}
		handle, err := parseKeyHandle(keysHandle)
		if err != nil {
			return err
		}

		_, store, _, err := loadToken()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := store.Delete(app, handle); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", handle.String())
		return nil
	},
}

func init() {
	keysCmd.PersistentFlags().StringVar(&keysApp, "app", "",
		"relying party origin or 32-byte hex application parameter")
	keysDeleteCmd.Flags().StringVar(&keysHandle, "handle", "",
		"hex key handle to delete")
	_ = keysCmd.MarkPersistentFlagRequired("app")
	_ = keysDeleteCmd.MarkFlagRequired("handle")

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysDeleteCmd)
}
