package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/limaJavier/satfuzz/internal/config"
	"github.com/limaJavier/satfuzz/internal/harness"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

// seedRange are the flags selecting seeds and instance size.
type seedRange struct {
	Lower       int64
	Upper       int64
	Scale       float64
	Variables   int
	Clauses     int
	MaxAttempts int
}

func (r *seedRange) register(cmd *cobra.Command, lower, upper int64, scale float64) {
	cmd.Flags().Int64Var(&r.Lower, "lower-bound", lower, "first seed (inclusive)")
	cmd.Flags().Int64Var(&r.Upper, "upper-bound", upper, "last seed (exclusive)")
	cmd.Flags().Float64Var(&r.Scale, "scale", scale, "instance size factor: 100*scale variables and 426*scale clauses")
	cmd.Flags().IntVarP(&r.Variables, "vars", "n", 0, "explicit variable count (overrides --scale)")
	cmd.Flags().IntVarP(&r.Clauses, "clauses", "c", 0, "explicit clause count (default 4.26 per variable)")
	cmd.Flags().IntVar(&r.MaxAttempts, "max-attempts", 0, fmt.Sprintf("rejection sampling bound per instance (default %d)", sat.DefaultMaxAttempts))
}

func (r *seedRange) instance() harness.InstanceConfig {
	return harness.InstanceConfig{
		Scale:       r.Scale,
		Variables:   r.Variables,
		Clauses:     r.Clauses,
		MaxAttempts: r.MaxAttempts,
	}
}

// solverSelection are the flags selecting one solver configuration.
type solverSelection struct {
	prefix    string
	Solver    string
	Flags     []string
	Timeout   time.Duration
	Sanitized bool
}

func (s *solverSelection) register(cmd *cobra.Command, prefix, solver, usage string) {
	s.prefix = prefix
	cmd.Flags().StringVar(&s.Solver, prefix, solver, usage+": a configured name, a preset ("+strings.Join(config.File{}.SolverNames(), ", ")+") or an executable path")
	cmd.Flags().StringArrayVar(&s.Flags, s.flagName("flags"), nil, "flag passed to the "+prefix+" (repeatable; replaces configured flags)")
	cmd.Flags().DurationVar(&s.Timeout, s.flagName("timeout"), 0, fmt.Sprintf("per-invocation timeout of the %v (default %v)", prefix, sat.DefaultTimeout))
	cmd.Flags().BoolVar(&s.Sanitized, s.flagName("sanitized"), false, "enable sanitizer diagnostics in the "+prefix+"'s environment")
}

// flagName keeps the main solver's flags unprefixed ("--flags") and prefixes the rest ("--reference-flags").
func (s *solverSelection) flagName(name string) string {
	if s.prefix == "solver" {
		return name
	}
	return s.prefix + "-" + name
}

func (s *solverSelection) resolve(cmd *cobra.Command, file config.File) sat.SolverConfig {
	solver := file.Resolve(s.Solver)
	if cmd.Flags().Changed(s.flagName("flags")) {
		solver.Flags = s.Flags
	}
	if s.Timeout > 0 {
		solver.Timeout = s.Timeout
	}
	if s.Sanitized {
		solver.Sanitized = true
	}
	return solver
}
