package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/limaJavier/satfuzz/internal/config"
	"github.com/limaJavier/satfuzz/internal/harness"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

// solverSpecs collects repeated -solver flags.
type solverSpecs []string

func (specs *solverSpecs) String() string {
	return strings.Join(*specs, " ")
}

func (specs *solverSpecs) Set(spec string) error {
	*specs = append(*specs, spec)
	return nil
}

func main() {
	var specs solverSpecs
	flag.Var(&specs, "solver", `Solver configuration to benchmark, repeatable. Either a name or "name:flag,flag", e.g. "./build/sat:--backtrack-subsumption-"`)
	lowerPtr := flag.Int64("lower", 10, "First seed (inclusive), where 10 is the default")
	upperPtr := flag.Int64("upper", 30, "Last seed (exclusive), where 30 is the default")
	scalePtr := flag.Float64("scale", 2.5, "Instance size factor: 100*scale variables and 426*scale clauses, where 2.5 is the default")
	repetitionsPtr := flag.Int("repetitions", 1, "Trials per seed, where 1 is the default")
	workersPtr := flag.Int("workers", 1, "Concurrent solver invocations, where 1 is the default")
	configPtr := flag.String("config", "", "Path to a YAML or JSON file defining named solvers")
	outPtr := flag.String("out", "benchmark_results.csv", "Path to the CSV file where the results will be written")
	flag.Parse()

	// Validate arguments
	if len(specs) == 0 {
		log.Fatal("at least one -solver must be specified")
	} else if *scalePtr <= 0 {
		log.Fatalf("scale must be positive: %v", *scalePtr)
	}

	file, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}
	solvers := make([]sat.SolverConfig, 0, len(specs))
	for _, spec := range specs {
		solver, err := file.ResolveSpec(spec)
		if err != nil {
			log.Fatalf("invalid solver %q: %v", spec, err)
		}
		solvers = append(solvers, solver)
	}

	logger := logrus.New()
	runner := harness.NewSweepRunner(harness.WithLogger(logger))
	results, err := runner.Benchmark(context.Background(), harness.BenchmarkConfig{
		SeedStart:   *lowerPtr,
		SeedEnd:     *upperPtr,
		Repetitions: *repetitionsPtr,
		Instance:    harness.InstanceConfig{Scale: *scalePtr},
		Solvers:     solvers,
		Workers:     *workersPtr,
	})
	if err != nil {
		harness.WriteReproduction(os.Stderr, err)
		log.Fatalf("benchmark failed: %v", err)
	}

	out, err := os.Create(*outPtr)
	if err != nil {
		log.Fatalf("cannot create CSV file: %v", err)
	}
	defer out.Close()

	if err := toCsv(out, results); err != nil {
		log.Fatalf("cannot write CSV file: %v", err)
	}
}

func toCsv(w io.Writer, results []harness.BenchmarkResult) error {
	writer := csv.NewWriter(w)

	header := []string{"Solver", "Flags", "Seeds", "Total(ms)", "Mean(ms)", "Max(ms)", "Max-Seed", "Satisfiable", "Unsatisfiable", "Crashes", "Timeouts", "Exhausted"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{
			result.Solver.DisplayName(),
			strings.Join(result.Solver.Flags, " "),
			fmt.Sprintf("%d", result.Seeds),
			fmt.Sprintf("%d", result.Total.Milliseconds()),
			fmt.Sprintf("%d", result.Mean.Milliseconds()),
			fmt.Sprintf("%d", result.Max.Milliseconds()),
			fmt.Sprintf("%d", result.MaxSeed),
			fmt.Sprintf("%d", result.Tally.Satisfiable),
			fmt.Sprintf("%d", result.Tally.Unsatisfiable),
			fmt.Sprintf("%d", result.Tally.Crashes),
			fmt.Sprintf("%d", result.Tally.Timeouts),
			fmt.Sprintf("%d", result.Tally.Exhausted),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("cannot write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
