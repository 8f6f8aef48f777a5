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
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-softu2f/internal/server"
	"github.com/jeremyhahn/go-softu2f/pkg/health"
	"github.com/jeremyhahn/go-softu2f/pkg/u2f"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the metrics and health endpoints",
	Long: `Serve exposes the token's Prometheus metrics and a health probe over
HTTP. It carries no U2F traffic; a transport layer (for example a UHID
bridge) drives the token separately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, store, cfg, err := loadToken()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		_ = token // assembled to fail fast on bad attestation material

		checker := health.NewChecker()
		checker.RegisterCheck("keystore", keystoreCheck(store))

		logger := newLogger().Slog()
		srv := server.New(cfg.Metrics.Listen, checker, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// keystoreCheck probes the key store with a read so readiness reflects the
// storage backend the token depends on.
func keystoreCheck(store u2f.KeyStore) health.CheckFunc {
	return func(ctx context.Context) health.CheckResult {
		records, err := store.List(u2f.AppID{})
		if err != nil {
			return health.CheckResult{
				Name:   "keystore",
				Status: health.StatusUnhealthy,
				Error:  err.Error(),
			}
		}
		return health.CheckResult{
			Name:    "keystore",
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d records for the zero application", len(records)),
		}
	}
}
