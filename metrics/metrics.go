// Package metrics exposes Prometheus instrumentation for the vote ledger and
// the tournament scheduler. Swallowed close-step failures are counted here so
// a stalled tournament is visible on dashboards.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesTotal counts vote submissions by outcome.
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tournament_votes_total",
			Help: "Total number of vote submissions by outcome",
		},
		[]string{"outcome"},
	)

	// CycleRunsTotal counts scheduler cycles by trigger (schedule, manual, startup).
	CycleRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tournament_cycle_runs_total",
			Help: "Total number of tournament cycles started",
		},
		[]string{"trigger"},
	)

	// CycleStepFailuresTotal counts failed close/open steps.
	CycleStepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tournament_cycle_step_failures_total",
			Help: "Total number of failed tournament cycle steps",
		},
		[]string{"step"},
	)

	CycleStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tournament_cycle_step_duration_seconds",
			Help:    "Duration of tournament cycle steps in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"step"},
	)

	// OpenMatchRound is the round number of the open match, 0 when none is open.
	OpenMatchRound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tournament_open_match_round",
			Help: "Round number of the currently open match (0 if none)",
		},
	)

	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tournament_catalog_requests_total",
			Help: "Total number of movie catalog requests by source and outcome",
		},
		[]string{"source", "outcome"},
	)
)

func RecordVote(outcome string) {
	VotesTotal.WithLabelValues(outcome).Inc()
}

func RecordCycleRun(trigger string) {
	CycleRunsTotal.WithLabelValues(trigger).Inc()
}

// RecordCycleStep records the duration of a step and counts it as failed when err != nil.
func RecordCycleStep(step string, duration time.Duration, err error) {
	CycleStepDuration.WithLabelValues(step).Observe(duration.Seconds())
	if err != nil {
		CycleStepFailuresTotal.WithLabelValues(step).Inc()
	}
}

func SetOpenMatchRound(round int) {
	OpenMatchRound.Set(float64(round))
}

func RecordCatalogRequest(source string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CatalogRequestsTotal.WithLabelValues(source, outcome).Inc()
}
