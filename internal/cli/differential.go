package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/limaJavier/satfuzz/internal/harness"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

type differentialOptions struct {
	seeds         seedRange
	solver        solverSelection
	reference     solverSelection
	Permutation   int64
	ProgressEvery int
}

// DifferentialReport is the JSON form of a differential run.
type DifferentialReport struct {
	RunID      string `json:"run_id"`
	Reference  string `json:"reference"`
	Candidate  string `json:"candidate"`
	Agreements int    `json:"agreements"`
	Timeouts   int    `json:"timeouts"`
	Exhausted  int    `json:"exhausted"`
	Duration   string `json:"duration"`
}

func NewDifferentialCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &differentialOptions{}

	cmd := &cobra.Command{
		Use:   "differential",
		Short: "Compare a solver's verdicts with a reference solver over a seed range",
		Long: `Run every seed's instance through a reference solver and the solver under test. The candidate
receives the instance relabeled with --permute. The first disagreement or crash stops the run and prints
the seeds, both command lines and the instances needed to reproduce it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDifferential(rootOpts, opts, cmd)
		},
	}

	opts.seeds.register(cmd, 0, 100, 0.3)
	opts.solver.register(cmd, "solver", "kissat", "solver under test")
	opts.reference.register(cmd, "reference", sat.BuiltinGini, "trusted solver")
	cmd.Flags().Int64VarP(&opts.Permutation, "permute", "p", 0, "permutation seed applied to the candidate's input (0 sends both the same instance)")
	cmd.Flags().IntVar(&opts.ProgressEvery, "progress-every", 10, "log progress after this many seeds (0 disables)")

	return cmd
}

func runDifferential(rootOpts *RootOptions, opts *differentialOptions, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	config := harness.DifferentialConfig{
		SeedStart:       opts.seeds.Lower,
		SeedEnd:         opts.seeds.Upper,
		Instance:        opts.seeds.instance(),
		Reference:       opts.reference.resolve(cmd, rootOpts.file),
		Candidate:       opts.solver.resolve(cmd, rootOpts.file),
		PermutationSeed: opts.Permutation,
		Workers:         rootOpts.workers(),
		ProgressEvery:   opts.ProgressEvery,
	}

	runner := harness.NewDifferentialRunner(rootOpts.harnessOptions()...)
	summary, err := runner.Run(cmd.Context(), config)
	if err != nil {
		return formatter.Failure(failed("differential run failed", err), nil)
	}

	report := DifferentialReport{
		RunID:      summary.RunID,
		Reference:  config.Reference.String(),
		Candidate:  config.Candidate.String(),
		Agreements: summary.Agreements,
		Timeouts:   summary.Timeouts,
		Exhausted:  summary.Exhausted,
		Duration:   summary.Duration.String(),
	}
	return formatter.Success(report, func(w io.Writer) {
		fmt.Fprintf(w, "%d seeds agree between %q and %q (%d timeouts, %d skipped) in %v\n",
			report.Agreements, report.Reference, report.Candidate, report.Timeouts, report.Exhausted, summary.Duration)
	})
}
