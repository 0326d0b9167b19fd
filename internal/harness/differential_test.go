package harness

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/satfuzz/pkg/sat"
)

const unsatisfiableInstance = "p cnf 1 2\n1 0\n-1 0\n"

func TestCompare(t *testing.T) {
	ctx := context.Background()
	runner := NewDifferentialRunner()

	t.Run("Agreement", func(t *testing.T) {
		//** Arrange
		reference := constantSolver("reference", sat.Unsatisfiable, time.Millisecond)
		candidate := constantSolver("candidate", sat.Unsatisfiable, time.Millisecond)

		//** Act
		comparison, err := runner.Compare(ctx, unsatisfiableInstance, reference, candidate)

		//** Assert
		require.NoError(t, err)
		assert.True(t, comparison.Agree())
		assert.Equal(t, []string{unsatisfiableInstance}, candidate.Inputs())
	})

	t.Run("Mismatch carries both verdicts and the instance", func(t *testing.T) {
		//** Arrange
		reference := constantSolver("reference", sat.Unsatisfiable, time.Millisecond)
		candidate := constantSolver("candidate", sat.Satisfiable, time.Millisecond)

		//** Act
		comparison, err := runner.Compare(ctx, unsatisfiableInstance, reference, candidate)

		//** Assert
		require.ErrorIs(t, err, ErrDifferentialMismatch)
		assert.False(t, comparison.Agree())

		var mismatch *MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, sat.Unsatisfiable, mismatch.ReferenceVerdict)
		assert.Equal(t, sat.Satisfiable, mismatch.CandidateVerdict)
		assert.Equal(t, unsatisfiableInstance, mismatch.ReferenceInstance)
	})

	t.Run("A crash is not a mismatch", func(t *testing.T) {
		//** Act
		_, err := runner.Compare(ctx, unsatisfiableInstance, constantSolver("reference", sat.Unsatisfiable, 0), crashingSolver("candidate"))

		//** Assert
		assert.ErrorIs(t, err, sat.ErrProcessCrash)
		assert.NotErrorIs(t, err, ErrDifferentialMismatch)

		var trial *TrialError
		require.ErrorAs(t, err, &trial)
		assert.Equal(t, candidateSide, trial.Side)
	})

	t.Run("A timeout is not a mismatch", func(t *testing.T) {
		_, err := runner.Compare(ctx, unsatisfiableInstance, timingOutSolver("reference"), constantSolver("candidate", sat.Satisfiable, 0))

		assert.ErrorIs(t, err, sat.ErrProcessTimeout)
		assert.NotErrorIs(t, err, ErrDifferentialMismatch)
	})

	t.Run("Real in-process solvers", func(t *testing.T) {
		gini, err := sat.NewSolver(sat.SolverConfig{Path: sat.BuiltinGini})
		require.NoError(t, err)
		gophersat, err := sat.NewSolver(sat.SolverConfig{Path: sat.BuiltinGophersat})
		require.NoError(t, err)

		comparison, err := runner.Compare(ctx, unsatisfiableInstance, gini, gophersat)

		require.NoError(t, err)
		assert.Equal(t, sat.Unsatisfiable, comparison.Candidate.Verdict)
	})
}

func TestDifferentialRunner(t *testing.T) {
	ctx := context.Background()
	instance := InstanceConfig{Variables: 10, Clauses: 43}

	t.Run("Permuted instances never disagree", func(t *testing.T) {
		//** Arrange
		runner := NewDifferentialRunner()
		config := DifferentialConfig{
			SeedStart:       0,
			SeedEnd:         30,
			Instance:        instance,
			Reference:       sat.SolverConfig{Path: sat.BuiltinGini},
			Candidate:       sat.SolverConfig{Path: sat.BuiltinGini},
			PermutationSeed: 7,
			Workers:         4,
			ProgressEvery:   10,
		}

		//** Act
		summary, err := runner.Run(ctx, config)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, 30, summary.Agreements)
		assert.NotEmpty(t, summary.RunID)
	})

	t.Run("Mismatch halts the run with reproduction context", func(t *testing.T) {
		//** Arrange
		candidate := constantSolver("always-unsat", sat.Unsatisfiable, time.Millisecond)
		runner := NewDifferentialRunner(fakes(candidate))
		config := DifferentialConfig{
			SeedStart: 5,
			SeedEnd:   50,
			Instance:  InstanceConfig{Variables: 30, Clauses: 5},
			Reference: sat.SolverConfig{Path: sat.BuiltinGini},
			Candidate: sat.SolverConfig{Path: "always-unsat", Flags: []string{"--fast"}},
			Workers:   1,
		}

		//** Act
		_, err := runner.Run(ctx, config)

		//** Assert
		var mismatch *MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, sat.SeedPair{Generation: 5}, mismatch.Seeds)
		assert.Equal(t, sat.Satisfiable, mismatch.ReferenceVerdict)
		assert.Equal(t, "always-unsat --fast", mismatch.Candidate.String())
		assert.LessOrEqual(t, len(candidate.Inputs()), 2)

		var report bytes.Buffer
		WriteReproduction(&report, err)
		assert.Contains(t, report.String(), "(5, 0)")
		assert.Contains(t, report.String(), "p cnf")
		assert.Contains(t, report.String(), "always-unsat --fast")
	})

	t.Run("Crash is fatal and names the side", func(t *testing.T) {
		runner := NewDifferentialRunner(fakes(crashingSolver("broken")))
		config := DifferentialConfig{
			SeedStart: 0,
			SeedEnd:   10,
			Instance:  instance,
			Reference: sat.SolverConfig{Path: sat.BuiltinGophersat},
			Candidate: sat.SolverConfig{Path: "broken"},
		}

		_, err := runner.Run(ctx, config)

		var trial *TrialError
		require.ErrorAs(t, err, &trial)
		assert.ErrorIs(t, err, sat.ErrProcessCrash)
		assert.Equal(t, candidateSide, trial.Side)
		assert.Equal(t, "broken", trial.Solver.Path)
		require.NotNil(t, trial.Seeds)
		assert.Equal(t, int64(0), trial.Seeds.Generation)
	})

	t.Run("Timeouts are counted", func(t *testing.T) {
		runner := NewDifferentialRunner(fakes(timingOutSolver("slow")))
		config := DifferentialConfig{
			SeedStart: 0,
			SeedEnd:   8,
			Instance:  instance,
			Reference: sat.SolverConfig{Path: sat.BuiltinGini},
			Candidate: sat.SolverConfig{Path: "slow"},
			Workers:   2,
		}

		summary, err := runner.Run(ctx, config)

		require.NoError(t, err)
		assert.Equal(t, 8, summary.Timeouts)
		assert.Zero(t, summary.Agreements)
	})

	t.Run("Missing executable is fatal", func(t *testing.T) {
		runner := NewDifferentialRunner()
		config := DifferentialConfig{
			SeedStart: 0,
			SeedEnd:   10,
			Instance:  instance,
			Reference: sat.SolverConfig{Path: sat.BuiltinGini},
			Candidate: sat.SolverConfig{Path: "/nonexistent/satfuzz-solver"},
		}

		_, err := runner.Run(ctx, config)

		assert.ErrorIs(t, err, sat.ErrProcessSpawn)
	})

	t.Run("Invalid configuration", func(t *testing.T) {
		runner := NewDifferentialRunner()
		valid := DifferentialConfig{
			SeedStart: 0,
			SeedEnd:   1,
			Instance:  instance,
			Reference: sat.SolverConfig{Path: sat.BuiltinGini},
			Candidate: sat.SolverConfig{Path: sat.BuiltinGophersat},
		}

		for _, mutate := range []func(*DifferentialConfig){
			func(config *DifferentialConfig) { config.SeedEnd = config.SeedStart },
			func(config *DifferentialConfig) { config.Instance = InstanceConfig{} },
			func(config *DifferentialConfig) { config.Candidate.Path = "" },
			func(config *DifferentialConfig) { config.Workers = -1 },
		} {
			config := valid
			mutate(&config)

			_, err := runner.Run(ctx, config)

			assert.ErrorIs(t, err, ErrInvalidConfig)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		runner := NewDifferentialRunner()
		config := DifferentialConfig{
			SeedStart: 0,
			SeedEnd:   100,
			Instance:  instance,
			Reference: sat.SolverConfig{Path: sat.BuiltinGini},
			Candidate: sat.SolverConfig{Path: sat.BuiltinGini},
		}

		_, err := runner.Run(cancelled, config)

		assert.True(t, errors.Is(err, context.Canceled))
	})
}
