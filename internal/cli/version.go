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

	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

// Build information (set during build)
var (
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("softu2f\n")
		fmt.Printf("  Protocol:   %s\n", u2f.Version)
		fmt.Printf("  Version:    %s\n", BuildVersion)
		fmt.Printf("  Git Commit: %s\n", BuildCommit)
		fmt.Printf("  Built:      %s\n", BuildDate)
	},
}
