package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Outcome       = "outcome"
	ResultLabel   = "result"
	BackendLabel  = "backend"
	OutcomeTrue   = "true"
	OutcomeFalse  = "false"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
	Overflow      = "overflow"
)

// To add new metrics:
// 1. Register new metrics in Register() below.
// 2. Add an Emit or Observe helper for the counting engine to call.
var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outer_count_runs_total",
			Help: "Monotonic count of counting runs by outcome",
		},
		[]string{Outcome},
	)

	solveCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outer_count_solve_calls_total",
			Help: "Monotonic count of oracle solve calls by backend and result",
		},
		[]string{BackendLabel, ResultLabel},
	)

	witnessesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outer_count_witnesses_total",
			Help: "Monotonic count of (counter-)models returned by the oracle",
		},
	)

	dontCares = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outer_count_witness_dont_cares",
			Help:    "Number of unassigned outer variables per (counter-)model",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 63},
		},
	)

	runDurationSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "outer_count_run_duration_seconds",
			Help:       "The duration of a counting run",
			Objectives: map[float64]float64{0.95: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{Outcome},
	)
)

// Register adds the counting collectors to the default registry.
func Register() {
	RegisterWith(prometheus.DefaultRegisterer)
}

func RegisterWith(r prometheus.Registerer) {
	r.MustRegister(runsTotal)
	r.MustRegister(solveCallsTotal)
	r.MustRegister(witnessesTotal)
	r.MustRegister(dontCares)
	r.MustRegister(runDurationSummary)
}

func EmitSolveCall(backend, result string) {
	solveCallsTotal.WithLabelValues(backend, result).Inc()
}

func EmitWitness(unassigned int) {
	witnessesTotal.Inc()
	dontCares.Observe(float64(unassigned))
}

func EmitRun(outcome string, duration time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSummary.WithLabelValues(outcome).Observe(duration.Seconds())
}
