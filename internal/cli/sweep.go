package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/limaJavier/satfuzz/internal/harness"
)

type sweepOptions struct {
	seeds       seedRange
	solver      solverSelection
	reference   solverSelection
	Repetitions int
}

// SweepReport is the JSON form of a sweep.
type SweepReport struct {
	RunID       string            `json:"run_id"`
	Solver      string            `json:"solver"`
	MaxSeed     int64             `json:"max_seed"`
	MaxDuration string            `json:"max_duration"`
	Seconds     map[int64]float64 `json:"seconds"`
	Tally       harness.Tally     `json:"tally"`
}

func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sweepOptions{}

	cmd := &cobra.Command{
		Use:     "sweep",
		Aliases: []string{"find-slowest-input"},
		Short:   "Time a solver over a seed range and report the slowest seed",
		Long: `Generate an instance per seed, run it through the solver and accumulate the solver time per
seed. With --repetitions each seed is also tried under permutations 1..n-1. With --reference every
verdict is checked against a second solver and the first disagreement stops the sweep.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(rootOpts, opts, cmd)
		},
	}

	opts.seeds.register(cmd, 0, 10, 2.3)
	opts.solver.register(cmd, "solver", "kissat", "solver under test")
	opts.reference.register(cmd, "reference", "", "optional solver whose verdicts are trusted")
	cmd.Flags().IntVar(&opts.Repetitions, "repetitions", 1, "trials per seed")

	return cmd
}

func runSweep(rootOpts *RootOptions, opts *sweepOptions, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	config := harness.SweepConfig{
		SeedStart:   opts.seeds.Lower,
		SeedEnd:     opts.seeds.Upper,
		Repetitions: opts.Repetitions,
		Instance:    opts.seeds.instance(),
		Solver:      opts.solver.resolve(cmd, rootOpts.file),
		Workers:     rootOpts.workers(),
	}
	if opts.reference.Solver != "" {
		reference := opts.reference.resolve(cmd, rootOpts.file)
		config.Reference = &reference
	}

	runner := harness.NewSweepRunner(rootOpts.harnessOptions()...)
	result, err := runner.Run(cmd.Context(), config)
	if err != nil {
		return formatter.Failure(failed("sweep failed", err), nil)
	}

	report := SweepReport{
		RunID:       result.RunID,
		Solver:      config.Solver.String(),
		MaxSeed:     result.MaxSeed,
		MaxDuration: result.MaxDuration.String(),
		Seconds:     make(map[int64]float64, len(result.Table)),
		Tally:       result.Tally,
	}
	for seed, duration := range result.Table {
		report.Seconds[seed] = duration.Seconds()
	}

	return formatter.Success(report, func(w io.Writer) {
		table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(table, "SEED\tDURATION")
		for _, seed := range slices.Sorted(maps.Keys(result.Table)) {
			fmt.Fprintf(table, "%d\t%v\n", seed, result.Table[seed])
		}
		table.Flush()
		fmt.Fprintf(w, "slowest seed %d took %v (%d trials, %d crashes, %d timeouts)\n",
			result.MaxSeed, result.MaxDuration, result.Tally.Trials, result.Tally.Crashes, result.Tally.Timeouts)
	})
}
