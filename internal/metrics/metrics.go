package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	SolverLabel  = "solver"
	OutcomeLabel = "outcome"
	KindLabel    = "kind"
)

// Trial outcomes
const (
	Satisfiable   = "satisfiable"
	Unsatisfiable = "unsatisfiable"
	Crash         = "crash"
	Timeout       = "timeout"
	ParseError    = "parse_error"
	SpawnError    = "spawn_error"
	Cancelled     = "cancelled"
)

// Finding kinds
const (
	Mismatch  = "mismatch"
	Exhausted = "exhausted"
)

// Recorder collects harness metrics on its own registry. A nil *Recorder ignores every observation.
type Recorder struct {
	registry  *prometheus.Registry
	trials    *prometheus.CounterVec
	durations *prometheus.HistogramVec
	findings  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		trials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satfuzz_trials_total",
				Help: "Number of solver invocations by solver and outcome",
			},
			[]string{SolverLabel, OutcomeLabel},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "satfuzz_solver_duration_seconds",
				Help:    "Wall-clock duration of solver invocations",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{SolverLabel},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satfuzz_findings_total",
				Help: "Number of differential mismatches and aborted generations",
			},
			[]string{KindLabel},
		),
	}
	recorder.registry.MustRegister(recorder.trials, recorder.durations, recorder.findings)
	return recorder
}

func (r *Recorder) ObserveTrial(solver, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.trials.WithLabelValues(solver, outcome).Inc()
	r.durations.WithLabelValues(solver).Observe(duration.Seconds())
}

func (r *Recorder) ObserveFinding(kind string) {
	if r == nil {
		return
	}
	r.findings.WithLabelValues(kind).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
