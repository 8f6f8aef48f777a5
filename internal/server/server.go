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

// Package server exposes the token's observability surface: a Prometheus
// metrics endpoint and a health probe. It carries no U2F traffic.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-softu2f/pkg/health"
	"github.com/jeremyhahn/go-softu2f/pkg/metrics"
)

// Server serves /metrics, /healthz and /readyz.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a metrics server listening on addr. The checker's readiness
// checks back /readyz; a nil checker serves an always-ready probe.
func New(addr string, checker *health.Checker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if checker == nil {
		checker = health.NewChecker()
	}

	metrics.Enable()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeCheckResults(w, []health.CheckResult{checker.Live(req.Context())})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		writeCheckResults(w, checker.Ready(req.Context()))
	})
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving. It blocks until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("metrics server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeCheckResults encodes probe results as JSON, answering 503 when any
// check is unhealthy so orchestrators pull the endpoint from rotation.
func writeCheckResults(w http.ResponseWriter, results []health.CheckResult) {
	w.Header().Set("Content-Type", "application/json")
	if health.AggregateStatus(results) != health.StatusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(results)
}
