package harness

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/limaJavier/satfuzz/internal/metrics"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

// SolverFactory builds the solver a configuration designates.
type SolverFactory func(sat.SolverConfig) (sat.Solver, error)

type base struct {
	logger    *logrus.Logger
	metrics   *metrics.Recorder
	newSolver SolverFactory
}

type Option func(*base)

func WithLogger(logger *logrus.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(b *base) {
		b.metrics = recorder
	}
}

func WithSolverFactory(factory SolverFactory) Option {
	return func(b *base) {
		b.newSolver = factory
	}
}

func newBase(options []Option) base {
	b := base{newSolver: sat.NewSolver}
	for _, option := range options {
		option(&b)
	}
	if b.logger == nil {
		b.logger = logrus.New()
		b.logger.SetOutput(io.Discard)
	}
	return b
}

// solve runs one invocation and records its outcome.
func (b *base) solve(ctx context.Context, solver sat.Solver, dimacs string) (sat.Result, error) {
	result, err := solver.Solve(ctx, dimacs)
	b.metrics.ObserveTrial(solver.Name(), Outcome(result, err), result.Duration)
	return result, err
}

// InstanceConfig sizes generated instances. Explicit Variables/Clauses take precedence over Scale.
type InstanceConfig struct {
	Scale             float64
	Variables         int
	Clauses           int
	LiteralsPerClause int
	MaxAttempts       int
}

func (config InstanceConfig) Params() sat.GenerateParams {
	variables, clauses := config.Variables, config.Clauses
	if variables == 0 {
		variables, clauses = sat.SizeForScale(config.Scale)
	} else if clauses == 0 {
		clauses = sat.ClausesForRatio(variables, sat.DefaultRatio)
	}
	literals := config.LiteralsPerClause
	if literals == 0 {
		literals = sat.DefaultLiteralsPerClause
	}
	return sat.GenerateParams{
		Variables:         variables,
		Clauses:           clauses,
		LiteralsPerClause: literals,
		MaxAttempts:       config.MaxAttempts,
	}
}

func (config InstanceConfig) Validate() error {
	if config.Variables == 0 && config.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive: %v", ErrInvalidConfig, config.Scale)
	}
	if err := config.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// BuildInstance generates the instance for seeds.Generation and relabels it with seeds.Permutation.
func BuildInstance(params sat.GenerateParams, seeds sat.SeedPair) (sat.Instance, error) {
	instance, err := sat.GenerateFromSeed(params, seeds.Generation)
	if err != nil {
		return sat.Instance{}, err
	}
	return sat.Permute(instance, seeds.Permutation)
}

func validateSeedRange(start, end int64) error {
	if end <= start {
		return fmt.Errorf("%w: empty seed range [%v, %v)", ErrInvalidConfig, start, end)
	}
	return nil
}

func validateSolver(config sat.SolverConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Outcome classifies an invocation for metrics and summaries.
func Outcome(result sat.Result, err error) string {
	switch {
	case err == nil && result.Verdict == sat.Satisfiable:
		return metrics.Satisfiable
	case err == nil && result.Verdict == sat.Unsatisfiable:
		return metrics.Unsatisfiable
	case errors.Is(err, sat.ErrProcessSpawn):
		return metrics.SpawnError
	case errors.Is(err, sat.ErrProcessTimeout):
		return metrics.Timeout
	case errors.Is(err, sat.ErrParse):
		return metrics.ParseError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.Cancelled
	default:
		return metrics.Crash
	}
}

// Tally counts per-trial outcomes. Runners update it under their own lock.
type Tally struct {
	Trials        int `json:"trials"`
	Satisfiable   int `json:"satisfiable"`
	Unsatisfiable int `json:"unsatisfiable"`
	Crashes       int `json:"crashes"`
	Timeouts      int `json:"timeouts"`
	ParseErrors   int `json:"parse_errors"`
	Exhausted     int `json:"exhausted"`
}

func (t *Tally) add(outcome string) {
	t.Trials++
	switch outcome {
	case metrics.Satisfiable:
		t.Satisfiable++
	case metrics.Unsatisfiable:
		t.Unsatisfiable++
	case metrics.Timeout:
		t.Timeouts++
	case metrics.ParseError:
		t.ParseErrors++
	case metrics.Crash:
		t.Crashes++
	}
}
