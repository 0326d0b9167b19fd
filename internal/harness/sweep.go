package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/limaJavier/satfuzz/internal/metrics"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

type SweepConfig struct {
	SeedStart   int64
	SeedEnd     int64
	Repetitions int // Trials per seed; repetition r relabels the instance with permutation seed r
	Instance    InstanceConfig
	Solver      sat.SolverConfig
	Reference   *sat.SolverConfig // When set, every trial is also checked against this solver
	Workers     int
}

func (config SweepConfig) Validate() error {
	if err := validateSeedRange(config.SeedStart, config.SeedEnd); err != nil {
		return err
	} else if config.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions must not be negative: %v", ErrInvalidConfig, config.Repetitions)
	} else if err := config.Instance.Validate(); err != nil {
		return err
	} else if err := validateSolver(config.Solver); err != nil {
		return err
	} else if config.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative: %v", ErrInvalidConfig, config.Workers)
	}
	if config.Reference != nil {
		return validateSolver(*config.Reference)
	}
	return nil
}

func (config SweepConfig) repetitions() int {
	return max(config.Repetitions, 1)
}

type SweepResult struct {
	RunID       string
	MaxSeed     int64
	MaxDuration time.Duration
	Table       map[int64]time.Duration
	Tally       Tally
	Duration    time.Duration
}

type SweepRunner struct {
	base
}

func NewSweepRunner(options ...Option) *SweepRunner {
	return &SweepRunner{base: newBase(options)}
}

// Run times the solver on every seed of the range and reports the slowest one. Spawn failures and, when a
// reference is configured, verdict mismatches stop the sweep; any other per-trial failure is counted.
func (runner *SweepRunner) Run(ctx context.Context, config SweepConfig) (SweepResult, error) {
	if err := config.Validate(); err != nil {
		return SweepResult{}, err
	}
	solver, err := runner.newSolver(config.Solver)
	if err != nil {
		return SweepResult{}, err
	}
	var reference sat.Solver
	if config.Reference != nil {
		if reference, err = runner.newSolver(*config.Reference); err != nil {
			return SweepResult{}, err
		}
	}

	result := SweepResult{RunID: uuid.NewString()}
	logger := runner.logger.WithFields(logrus.Fields{"run": result.RunID, "solver": config.Solver.String()})
	params := config.Instance.Params()
	table := NewSeedTimingTable()
	start := time.Now()

	var mu sync.Mutex
	workers := newPool(ctx, config.Workers)
	for seed := config.SeedStart; seed < config.SeedEnd; seed++ {
		submitted := workers.Go(func(ctx context.Context) error {
			var elapsed time.Duration
			for repetition := range config.repetitions() {
				seeds := sat.SeedPair{Generation: seed, Permutation: int64(repetition)}
				trial, err := runner.trial(ctx, solver, reference, params, seeds)
				elapsed += trial.Duration

				mu.Lock()
				outcome := runner.account(&result.Tally, trial, err)
				mu.Unlock()

				entry := logger.WithFields(logrus.Fields{"seed": seeds, "outcome": outcome, "duration": trial.Duration})
				switch {
				case ctx.Err() != nil:
					return ctx.Err()
				case errors.Is(err, sat.ErrProcessSpawn), errors.Is(err, ErrDifferentialMismatch):
					return runner.enrich(err, config, seeds)
				case err != nil:
					entry.WithError(err).Warn("trial failed")
				default:
					entry.Debug("trial finished")
				}
			}
			return table.Record(seed, elapsed)
		})
		if !submitted {
			break
		}
	}

	err = workers.Wait()
	result.Duration = time.Since(start)
	result.Table = table.Snapshot()
	result.MaxSeed, result.MaxDuration, _ = table.Max()
	if err != nil {
		logger.WithError(err).Error("sweep stopped")
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	logger.WithFields(logrus.Fields{
		"max_seed":     result.MaxSeed,
		"max_duration": result.MaxDuration,
		"trials":       result.Tally.Trials,
	}).Info("sweep finished")
	return result, nil
}

// trial runs one generated instance through the solver and, if present, compares it with the reference's verdict
// on the unpermuted instance.
func (runner *SweepRunner) trial(ctx context.Context, solver, reference sat.Solver, params sat.GenerateParams, seeds sat.SeedPair) (sat.Result, error) {
	original, err := sat.GenerateFromSeed(params, seeds.Generation)
	if err != nil {
		return sat.Result{}, err
	}
	permuted, err := sat.Permute(original, seeds.Permutation)
	if err != nil {
		return sat.Result{}, err
	}

	result, err := runner.solve(ctx, solver, permuted.ToDIMACS())
	if err != nil || reference == nil {
		return result, err
	}

	expected, err := runner.solve(ctx, reference, original.ToDIMACS())
	if errors.Is(err, sat.ErrProcessSpawn) {
		return result, &TrialError{Side: referenceSide, Instance: original.ToDIMACS(), Err: err}
	} else if err != nil {
		// A failing reference says nothing about the solver under test
		runner.logger.WithField("seed", seeds).WithError(err).Warn("reference failed, verdict not checked")
		return result, nil
	}
	if expected.Verdict != result.Verdict {
		runner.metrics.ObserveFinding(metrics.Mismatch)
		return result, &MismatchError{
			ReferenceVerdict:  expected.Verdict,
			CandidateVerdict:  result.Verdict,
			ReferenceInstance: original.ToDIMACS(),
			CandidateInstance: permuted.ToDIMACS(),
		}
	}
	return result, nil
}

func (runner *SweepRunner) account(tally *Tally, result sat.Result, err error) string {
	if errors.Is(err, sat.ErrGenerationExhausted) {
		tally.Trials++
		tally.Exhausted++
		runner.metrics.ObserveFinding(metrics.Exhausted)
		return metrics.Exhausted
	}
	outcome := Outcome(result, err)
	if errors.Is(err, ErrDifferentialMismatch) {
		outcome = Outcome(result, nil)
	}
	tally.add(outcome)
	return outcome
}

// enrich attaches seeds and solver command lines to a fatal trial error.
func (runner *SweepRunner) enrich(err error, config SweepConfig, seeds sat.SeedPair) error {
	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		mismatch.Seeds = seeds
		mismatch.Reference = *config.Reference
		mismatch.Candidate = config.Solver
		return mismatch
	}

	var trial *TrialError
	if errors.As(err, &trial) {
		trial.Seeds = &seeds
		trial.Solver = *config.Reference
		return trial
	}
	return &TrialError{Side: solverSide, Seeds: &seeds, Solver: config.Solver, Err: err}
}
