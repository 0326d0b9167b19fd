package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/limaJavier/satfuzz/internal/harness"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

type benchmarkOptions struct {
	seeds       seedRange
	Solvers     []string
	Repetitions int
}

// BenchmarkRow is the JSON form of one benchmarked configuration.
type BenchmarkRow struct {
	Solver       string        `json:"solver"`
	Seeds        int           `json:"seeds"`
	TotalSeconds float64       `json:"total_seconds"`
	MeanSeconds  float64       `json:"mean_seconds"`
	MaxSeconds   float64       `json:"max_seconds"`
	MaxSeed      int64         `json:"max_seed"`
	Tally        harness.Tally `json:"tally"`
}

func NewBenchmarkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &benchmarkOptions{}

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare the total solver time of several configurations over a seed range",
		Long: `Sweep the same seeds once per --solver and report total, mean and maximum solver time. Each
--solver is a configured name, preset or path, optionally followed by a colon and comma-separated flags,
e.g. --solver ./build/sat:--backtrack-subsumption- --solver minisat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(rootOpts, opts, cmd)
		},
	}

	opts.seeds.register(cmd, 10, 30, 2.5)
	cmd.Flags().StringArrayVar(&opts.Solvers, "solver", nil, "solver configuration to benchmark (repeatable)")
	cmd.Flags().IntVar(&opts.Repetitions, "repetitions", 1, "trials per seed")

	return cmd
}

func runBenchmark(rootOpts *RootOptions, opts *benchmarkOptions, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	solvers := make([]sat.SolverConfig, 0, len(opts.Solvers))
	for _, spec := range opts.Solvers {
		solver, err := rootOpts.file.ResolveSpec(spec)
		if err != nil {
			return failedWith(ExitInvalidArguments, "invalid --solver", err)
		}
		solvers = append(solvers, solver)
	}

	config := harness.BenchmarkConfig{
		SeedStart:   opts.seeds.Lower,
		SeedEnd:     opts.seeds.Upper,
		Repetitions: opts.Repetitions,
		Instance:    opts.seeds.instance(),
		Solvers:     solvers,
		Workers:     rootOpts.workers(),
	}

	runner := harness.NewSweepRunner(rootOpts.harnessOptions()...)
	results, err := runner.Benchmark(cmd.Context(), config)
	if err != nil {
		return formatter.Failure(failed("benchmark failed", err), nil)
	}

	rows := make([]BenchmarkRow, 0, len(results))
	for _, result := range results {
		rows = append(rows, BenchmarkRow{
			Solver:       result.Solver.String(),
			Seeds:        result.Seeds,
			TotalSeconds: result.Total.Seconds(),
			MeanSeconds:  result.Mean.Seconds(),
			MaxSeconds:   result.Max.Seconds(),
			MaxSeed:      result.MaxSeed,
			Tally:        result.Tally,
		})
	}

	return formatter.Success(rows, func(w io.Writer) {
		table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(table, "SOLVER\tTOTAL\tMEAN\tMAX\tMAX SEED\tSAT\tUNSAT\tCRASHES\tTIMEOUTS")
		for _, result := range results {
			fmt.Fprintf(table, "%v\t%v\t%v\t%v\t%d\t%d\t%d\t%d\t%d\n",
				result.Solver.String(), result.Total, result.Mean, result.Max, result.MaxSeed,
				result.Tally.Satisfiable, result.Tally.Unsatisfiable, result.Tally.Crashes, result.Tally.Timeouts)
		}
		table.Flush()
	})
}
