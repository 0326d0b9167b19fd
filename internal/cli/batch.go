package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/limaJavier/satfuzz/internal/harness"
)

type batchOptions struct {
	solver          solverSelection
	Input           string
	StartIndex      int
	PrintUnsat      bool
	PrintUnsatIndex bool
	PrintIndex      bool
	Delimiter       string
}

func (opts *batchOptions) mode() harness.ReportMode {
	var mode harness.ReportMode
	if opts.PrintUnsatIndex {
		mode |= harness.PrintUnsatIndex
	}
	if opts.PrintUnsat {
		mode |= harness.PrintUnsat
	}
	if opts.PrintIndex {
		mode |= harness.PrintIndex
	}
	return mode
}

func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Solve a stream of delimited DIMACS instances",
		Long: `Read instances separated by lines made of a repeated delimiter (e.g. "====") and solve each one
independently. A record that crashes the solver is reported and the stream goes on. Reports are printed in
record order; the summary goes to the log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(rootOpts, opts, cmd)
		},
	}

	opts.solver.register(cmd, "solver", "kissat", "solver to run")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "read the stream from this file instead of standard input")
	cmd.Flags().IntVar(&opts.StartIndex, "start-index", 0, "skip records before this index")
	cmd.Flags().BoolVar(&opts.PrintUnsat, "print-unsat", false, "print the text of unsatisfiable records")
	cmd.Flags().BoolVar(&opts.PrintUnsatIndex, "print-unsat-index", false, "print the index of unsatisfiable records")
	cmd.Flags().BoolVar(&opts.PrintIndex, "print-index", false, "print the index of every processed record")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", harness.DefaultDelimiter, "delimiter character repeated on separator lines")

	return cmd
}

func runBatch(rootOpts *RootOptions, opts *batchOptions, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	var in io.Reader = cmd.InOrStdin()
	if opts.Input != "" {
		file, err := os.Open(opts.Input)
		if err != nil {
			return failedWith(ExitInvalidArguments, "cannot open input", err)
		}
		defer file.Close()
		in = file
	}

	config := harness.BatchConfig{
		Solver:     opts.solver.resolve(cmd, rootOpts.file),
		StartIndex: opts.StartIndex,
		Mode:       opts.mode(),
		Delimiter:  opts.Delimiter,
		Workers:    rootOpts.workers(),
	}

	// JSON output is a single summary document, so per-record reports are only printed in text mode
	reports := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		reports = io.Discard
	}

	runner := harness.NewBatchRunner(rootOpts.harnessOptions()...)
	summary, err := runner.Run(cmd.Context(), in, reports, config)
	if err != nil {
		return formatter.Failure(failed("batch failed", err), summary)
	}

	// In text mode the reports above are the output
	return formatter.Success(summary, func(io.Writer) {})
}
