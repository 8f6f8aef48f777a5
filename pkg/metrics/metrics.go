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

// Package metrics provides Prometheus instrumentation for token operations.
// It exposes per-operation counters, latency histograms and the current
// signature counter value so a fleet of virtual tokens can be monitored.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all token metrics.
	Namespace = "softu2f"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// OperationsTotal tracks the total number of token operations by type
	// and status. Use RecordOperation to increment it.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of token operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the duration of token operations in seconds.
	// Buckets are sized for local key generation and signing latencies.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of token operations in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal tracks the total number of errors by operation and error
	// type. Error types should be specific (e.g. "unknown_key_handle",
	// "counter_persistence").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// SignatureCounter reports the last signature counter value issued by
	// this token instance.
	SignatureCounter = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "signature_counter",
			Help:      "Last signature counter value issued by this token",
		},
	)

	// enabled gates metric recording so library consumers that do not run
	// a metrics endpoint pay nothing beyond an atomic load.
	enabled atomic.Bool
)

// Enable turns on metric recording.
func Enable() {
	enabled.Store(true)
}

// Disable turns off metric recording.
func Disable() {
	enabled.Store(false)
}

// IsEnabled reports whether metric recording is enabled.
func IsEnabled() bool {
	return enabled.Load()
}

// RecordOperation increments the operation counter with the given status.
func RecordOperation(operation, status string) {
	if !IsEnabled() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveDuration records the duration of an operation.
func ObserveDuration(operation string, d time.Duration) {
	if !IsEnabled() {
		return
	}
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordError increments the error counter for the given operation.
func RecordError(operation, errorType string) {
	if !IsEnabled() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetSignatureCounter updates the signature counter gauge.
func SetSignatureCounter(value uint32) {
	if !IsEnabled() {
		return
	}
	SignatureCounter.Set(float64(value))
}
