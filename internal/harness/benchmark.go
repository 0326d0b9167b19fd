package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/limaJavier/satfuzz/pkg/sat"
)

type BenchmarkConfig struct {
	SeedStart   int64
	SeedEnd     int64
	Repetitions int
	Instance    InstanceConfig
	Solvers     []sat.SolverConfig
	Workers     int
}

func (config BenchmarkConfig) Validate() error {
	if len(config.Solvers) == 0 {
		return fmt.Errorf("%w: at least one solver must be specified", ErrInvalidConfig)
	}
	for _, solver := range config.Solvers {
		if err := config.sweep(solver).Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (config BenchmarkConfig) sweep(solver sat.SolverConfig) SweepConfig {
	return SweepConfig{
		SeedStart:   config.SeedStart,
		SeedEnd:     config.SeedEnd,
		Repetitions: config.Repetitions,
		Instance:    config.Instance,
		Solver:      solver,
		Workers:     config.Workers,
	}
}

// BenchmarkResult aggregates the solver time spent by one configuration over the whole seed range.
type BenchmarkResult struct {
	RunID   string
	Solver  sat.SolverConfig
	Seeds   int
	Total   time.Duration
	Mean    time.Duration
	Max     time.Duration
	MaxSeed int64
	Tally   Tally
}

// Benchmark sweeps the same seed range once per solver configuration, in order.
func (runner *SweepRunner) Benchmark(ctx context.Context, config BenchmarkConfig) ([]BenchmarkResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	results := make([]BenchmarkResult, 0, len(config.Solvers))
	for _, solver := range config.Solvers {
		sweep, err := runner.Run(ctx, config.sweep(solver))
		if err != nil {
			return results, fmt.Errorf("benchmarking %q: %w", solver.String(), err)
		}

		total := lo.Sum(lo.Values(sweep.Table))
		result := BenchmarkResult{
			RunID:   runID,
			Solver:  solver,
			Seeds:   len(sweep.Table),
			Total:   total,
			Max:     sweep.MaxDuration,
			MaxSeed: sweep.MaxSeed,
			Tally:   sweep.Tally,
		}
		if result.Seeds > 0 {
			result.Mean = total / time.Duration(result.Seeds)
		}
		results = append(results, result)

		runner.logger.WithFields(logrus.Fields{
			"run":    runID,
			"solver": solver.String(),
			"total":  total,
			"mean":   result.Mean,
		}).Info("benchmark finished")
	}
	return results, nil
}
