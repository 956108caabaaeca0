// Package metrics exposes dispatcher counters and timings to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parrot_events_total",
		Help: "Inbound events by kind",
	}, []string{"kind"})

	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parrot_cycles_total",
		Help: "Dispatch cycles by outcome (ok, error, timeout, chained, dropped)",
	}, []string{"outcome"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parrot_cycle_duration_seconds",
		Help:    "Dispatch cycle wall time",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 180},
	})

	CyclesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parrot_cycles_in_flight",
		Help: "Dispatch cycles currently running",
	})

	RoutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parrot_routes_total",
		Help: "Mode router calls by mode and status",
	}, []string{"mode", "status"})

	WizardSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parrot_wizard_steps_total",
		Help: "Wizard step results by state (advance, stay)",
	}, []string{"state", "result"})

	SessionsSnapshotted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parrot_sessions_snapshotted_total",
		Help: "Sessions written to the user registry",
	})
)

// Outcome labels for CyclesTotal.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeChained = "chained"
	OutcomeDropped = "dropped"
)
