// Package observability exposes Prometheus metrics for the scheduling
// pipeline. Collectors are package-level promauto variables; the API server
// serves them at /metrics when enabled.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Engine Metrics ─────────────────────────────────────────────────────────

// PlansBuilt counts successfully produced plans.
var PlansBuilt = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "cogsched",
	Subsystem: "engine",
	Name:      "plans_built_total",
	Help:      "Total plans produced by the scheduling engine.",
})

// Truncations counts plans cut short, by reason.
var Truncations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cogsched",
	Subsystem: "engine",
	Name:      "truncations_total",
	Help:      "Total truncated plans by reason (window, deadline).",
}, []string{"reason"})

// BlocksPerPlan tracks the size of produced plans.
var BlocksPerPlan = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "cogsched",
	Subsystem: "engine",
	Name:      "blocks_per_plan",
	Help:      "Number of blocks in each produced plan.",
	Buckets:   []float64{1, 3, 5, 10, 15, 20, 30, 50},
})

// ScheduleDuration tracks engine wall time per call.
var ScheduleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "cogsched",
	Subsystem: "engine",
	Name:      "schedule_duration_seconds",
	Help:      "Wall time of one scheduling call.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
})

// WarningsEmitted counts plan warnings; it carries no per-kind label.
var WarningsEmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "cogsched",
	Subsystem: "engine",
	Name:      "warnings_total",
	Help:      "Total warnings attached to produced plans.",
})

// ─── Feedback Metrics ───────────────────────────────────────────────────────

// TLXEntries counts accepted TLX feedback submissions.
var TLXEntries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "cogsched",
	Subsystem: "feedback",
	Name:      "tlx_entries_total",
	Help:      "Total TLX feedback entries accepted.",
})

// Recalibrations counts weight recalibration passes.
var Recalibrations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "cogsched",
	Subsystem: "feedback",
	Name:      "recalibrations_total",
	Help:      "Total fatigue-weight recalibration passes.",
})

// ─── Parser Metrics ─────────────────────────────────────────────────────────

// ParserRequests counts task-parsing attempts by outcome.
var ParserRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cogsched",
	Subsystem: "parser",
	Name:      "requests_total",
	Help:      "Total free-text parse attempts by outcome.",
}, []string{"outcome"})
