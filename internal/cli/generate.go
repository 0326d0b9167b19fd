package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/limaJavier/satfuzz/pkg/sat"
)

type generateOptions struct {
	Variables   int
	Clauses     int
	Ratio       float64
	Literals    int
	Seed        int64
	Permutation int64
	Out         string
	MaxAttempts int
}

// GenerateResult is the JSON form of a generated instance.
type GenerateResult struct {
	Seeds       sat.SeedPair `json:"seeds"`
	Variables   int          `json:"variables"`
	Clauses     int          `json:"clauses"`
	Fingerprint string       `json:"fingerprint"`
	DIMACS      string       `json:"dimacs,omitempty"`
	Out         string       `json:"out,omitempty"`
}

func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one random k-SAT instance in DIMACS format",
		Long: `Generate a random k-SAT instance from a seed. The same flags always produce the same
instance; a non-zero --permute relabels it into an equisatisfiable instance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Variables, "vars", "n", 0, "number of variables (required, positive)")
	cmd.Flags().IntVarP(&opts.Clauses, "clauses", "c", 0, "number of clauses (default: --ratio times --vars)")
	cmd.Flags().Float64VarP(&opts.Ratio, "ratio", "r", sat.DefaultRatio, "clause to variable ratio used when --clauses is not set")
	cmd.Flags().IntVarP(&opts.Literals, "literals", "k", sat.DefaultLiteralsPerClause, "literals per clause")
	cmd.Flags().Int64VarP(&opts.Seed, "seed", "s", 0, "generation seed")
	cmd.Flags().Int64VarP(&opts.Permutation, "permute", "p", 0, "permutation seed (0 keeps the instance as generated)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the instance to this file instead of standard output")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 0, fmt.Sprintf("rejection sampling bound (default %d)", sat.DefaultMaxAttempts))

	return cmd
}

func runGenerate(rootOpts *RootOptions, opts *generateOptions, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	if opts.Variables <= 0 {
		return formatter.Failure(rejected(ExitInvalidVariables, "number of variables must be positive: %v", opts.Variables), nil)
	}
	if !cmd.Flags().Changed("clauses") && opts.Ratio <= 0 {
		return formatter.Failure(rejected(ExitInvalidRatio, "ratio must be positive: %v", opts.Ratio), nil)
	}

	params := sat.GenerateParams{
		Variables:         opts.Variables,
		Clauses:           opts.Clauses,
		LiteralsPerClause: opts.Literals,
		MaxAttempts:       opts.MaxAttempts,
	}
	if !cmd.Flags().Changed("clauses") {
		params.Clauses = sat.ClausesForRatio(opts.Variables, opts.Ratio)
	}

	seeds := sat.SeedPair{Generation: opts.Seed, Permutation: opts.Permutation}
	instance, err := sat.GenerateFromSeed(params, seeds.Generation)
	if err == nil {
		instance, err = sat.Permute(instance, seeds.Permutation)
	}
	if err != nil {
		return formatter.Failure(failed(fmt.Sprintf("cannot generate instance for seeds %v", seeds), err), seeds)
	}
	rootOpts.logger.WithField("seeds", seeds).WithField("clauses", len(instance.Clauses)).Debug("instance generated")

	dimacs := instance.ToDIMACS()
	fingerprint, err := sat.Fingerprint(instance)
	if err != nil {
		return formatter.Failure(failed("cannot fingerprint instance", err), seeds)
	}
	result := GenerateResult{
		Seeds:       seeds,
		Variables:   int(instance.VariableCount()),
		Clauses:     len(instance.Clauses),
		Fingerprint: fmt.Sprintf("%016x", fingerprint),
		DIMACS:      dimacs,
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, []byte(dimacs), 0o644); err != nil {
			return formatter.Failure(failedWith(ExitFailure, "cannot write instance", err), seeds)
		}
		result.DIMACS, result.Out = "", opts.Out
		return formatter.Success(result, func(w io.Writer) {
			fmt.Fprintf(w, "wrote %d clauses over %d variables to %v\n", result.Clauses, result.Variables, opts.Out)
		})
	}

	return formatter.Success(result, func(w io.Writer) {
		io.WriteString(w, dimacs)
	})
}
