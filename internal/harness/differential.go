package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/limaJavier/satfuzz/internal/metrics"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

const (
	referenceSide = "reference"
	candidateSide = "candidate"
	solverSide    = "solver"
)

// Comparison holds both sides of a differential trial.
type Comparison struct {
	Reference sat.Result
	Candidate sat.Result
}

func (comparison Comparison) Agree() bool {
	return comparison.Reference.Verdict == comparison.Candidate.Verdict
}

type DifferentialConfig struct {
	SeedStart       int64
	SeedEnd         int64
	Instance        InstanceConfig
	Reference       sat.SolverConfig
	Candidate       sat.SolverConfig
	PermutationSeed int64 // Relabeling applied to the candidate's input; 0 feeds both sides the same instance
	Workers         int
	ProgressEvery   int
}

func (config DifferentialConfig) Validate() error {
	if err := validateSeedRange(config.SeedStart, config.SeedEnd); err != nil {
		return err
	} else if err := config.Instance.Validate(); err != nil {
		return err
	} else if err := validateSolver(config.Reference); err != nil {
		return err
	} else if err := validateSolver(config.Candidate); err != nil {
		return err
	} else if config.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative: %v", ErrInvalidConfig, config.Workers)
	}
	return nil
}

type DifferentialSummary struct {
	RunID      string
	Agreements int
	Timeouts   int
	Exhausted  int
	Duration   time.Duration
}

type DifferentialRunner struct {
	base
}

func NewDifferentialRunner(options ...Option) *DifferentialRunner {
	return &DifferentialRunner{base: newBase(options)}
}

// Compare runs the instance through both solvers. Disagreeing verdicts yield a *MismatchError; a failure on
// either side yields a *TrialError naming that side.
func (runner *DifferentialRunner) Compare(ctx context.Context, instance string, reference, candidate sat.Solver) (Comparison, error) {
	return runner.compare(ctx, reference, candidate, instance, instance)
}

func (runner *DifferentialRunner) compare(ctx context.Context, reference, candidate sat.Solver, referenceInput, candidateInput string) (Comparison, error) {
	var (
		comparison   Comparison
		referenceErr error
		candidateErr error
	)

	comparison.Reference, referenceErr = runner.solve(ctx, reference, referenceInput)
	if err := ctx.Err(); err != nil {
		return comparison, err
	} else if errors.Is(referenceErr, sat.ErrProcessSpawn) {
		return comparison, &TrialError{Side: referenceSide, Instance: referenceInput, Err: referenceErr}
	}
	comparison.Candidate, candidateErr = runner.solve(ctx, candidate, candidateInput)
	if err := ctx.Err(); err != nil {
		return comparison, err
	} else if errors.Is(candidateErr, sat.ErrProcessSpawn) {
		return comparison, &TrialError{Side: candidateSide, Instance: candidateInput, Err: candidateErr}
	}

	if referenceErr != nil {
		return comparison, &TrialError{Side: referenceSide, Instance: referenceInput, Result: comparison.Reference, Err: referenceErr}
	}
	if candidateErr != nil {
		return comparison, &TrialError{Side: candidateSide, Instance: candidateInput, Result: comparison.Candidate, Err: candidateErr}
	}

	if !comparison.Agree() {
		runner.metrics.ObserveFinding(metrics.Mismatch)
		return comparison, &MismatchError{
			ReferenceVerdict:  comparison.Reference.Verdict,
			CandidateVerdict:  comparison.Candidate.Verdict,
			ReferenceInstance: referenceInput,
			CandidateInstance: candidateInput,
		}
	}
	return comparison, nil
}

// Run compares the two configured solvers on every seed of the range. The first mismatch, crash, unparsable output
// or spawn failure stops the run; timeouts and exhausted generations are counted and skipped.
func (runner *DifferentialRunner) Run(ctx context.Context, config DifferentialConfig) (DifferentialSummary, error) {
	if err := config.Validate(); err != nil {
		return DifferentialSummary{}, err
	}
	reference, err := runner.newSolver(config.Reference)
	if err != nil {
		return DifferentialSummary{}, err
	}
	candidate, err := runner.newSolver(config.Candidate)
	if err != nil {
		return DifferentialSummary{}, err
	}

	summary := DifferentialSummary{RunID: uuid.NewString()}
	logger := runner.logger.WithFields(logrus.Fields{
		"run":       summary.RunID,
		"reference": config.Reference.String(),
		"candidate": config.Candidate.String(),
	})
	params := config.Instance.Params()
	start := time.Now()

	var mu sync.Mutex
	workers := newPool(ctx, config.Workers)
	for seed := config.SeedStart; seed < config.SeedEnd; seed++ {
		submitted := workers.Go(func(ctx context.Context) error {
			seeds := sat.SeedPair{Generation: seed, Permutation: config.PermutationSeed}
			comparison, err := runner.trial(ctx, reference, candidate, params, seeds)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Agreements++
				logger.WithFields(logrus.Fields{"seed": seed, "verdict": comparison.Reference.Verdict}).Debug("solvers agree")
			case errors.Is(err, sat.ErrGenerationExhausted):
				summary.Exhausted++
				runner.metrics.ObserveFinding(metrics.Exhausted)
				logger.WithField("seed", seed).WithError(err).Warn("skipping seed")
			case errors.Is(err, sat.ErrProcessTimeout):
				summary.Timeouts++
				logger.WithField("seed", seed).WithError(err).Warn("solver timed out")
			default:
				return runner.enrich(err, config, seeds)
			}

			if done := summary.Agreements + summary.Exhausted + summary.Timeouts; config.ProgressEvery > 0 && done%config.ProgressEvery == 0 {
				logger.WithField("done", done).Info("differential progress")
			}
			return nil
		})
		if !submitted {
			break
		}
	}

	err = workers.Wait()
	summary.Duration = time.Since(start)
	if err != nil {
		logger.WithError(err).Error("differential run stopped")
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	logger.WithFields(logrus.Fields{"agreements": summary.Agreements, "timeouts": summary.Timeouts, "duration": summary.Duration}).Info("differential run finished")
	return summary, nil
}

func (runner *DifferentialRunner) trial(ctx context.Context, reference, candidate sat.Solver, params sat.GenerateParams, seeds sat.SeedPair) (Comparison, error) {
	original, err := sat.GenerateFromSeed(params, seeds.Generation)
	if err != nil {
		return Comparison{}, err
	}
	permuted, err := sat.Permute(original, seeds.Permutation)
	if err != nil {
		return Comparison{}, err
	}
	return runner.compare(ctx, reference, candidate, original.ToDIMACS(), permuted.ToDIMACS())
}

// enrich attaches seeds and solver command lines to a fatal trial error so it can be reproduced.
func (runner *DifferentialRunner) enrich(err error, config DifferentialConfig, seeds sat.SeedPair) error {
	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		mismatch.Seeds = seeds
		mismatch.Reference = config.Reference
		mismatch.Candidate = config.Candidate
		return mismatch
	}

	var trial *TrialError
	if errors.As(err, &trial) {
		trial.Seeds = &seeds
		trial.Solver = lo.Ternary(trial.Side == referenceSide, config.Reference, config.Candidate)
		return trial
	}
	return fmt.Errorf("seeds %v: %w", seeds, err)
}
