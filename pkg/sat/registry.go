package sat

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

const builtinPrefix = "builtin:"

const (
	BuiltinGini      = builtinPrefix + "gini"
	BuiltinGophersat = builtinPrefix + "gophersat"
)

var builtins = map[string]func(SolverConfig) Solver{
	BuiltinGini:      NewGiniSolver,
	BuiltinGophersat: NewGophersatSolver,
}

// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
var competitionExitCodes = []int{10, 20}

// Presets holds the invocation conventions of well-known solvers, keyed by name. The verdict must be the last
// token of the output, so the satisfying assignment ("v ... 0" lines) is switched off.
var Presets = map[string]SolverConfig{
	"kissat":        {Name: "kissat", Path: "kissat", Flags: []string{"-q", "-n", "--relaxed"}, ExitCodes: competitionExitCodes},
	"cadical":       {Name: "cadical", Path: "cadical", Flags: []string{"-q", "-n"}, ExitCodes: competitionExitCodes},
	"cryptominisat": {Name: "cryptominisat", Path: "cryptominisat5", Flags: []string{"--verb", "0", "--printsol", "0"}, ExitCodes: competitionExitCodes},
	"minisat":       {Name: "minisat", Path: "minisat", Flags: []string{"-verb=0"}, ExitCodes: competitionExitCodes},
	"gini":          {Name: "gini", Path: BuiltinGini},
	"gophersat":     {Name: "gophersat", Path: BuiltinGophersat},
}

func IsBuiltin(path string) bool {
	return strings.HasPrefix(path, builtinPrefix)
}

// NewSolver builds the solver selected by config.Path.
func NewSolver(config SolverConfig) (Solver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !IsBuiltin(config.Path) {
		return NewProcessSolver(config), nil
	}

	constructor, ok := builtins[config.Path]
	if !ok {
		return nil, fmt.Errorf("%w: unknown builtin solver %q, allowed values are %v", ErrInvalidSolverConfig, config.Path, lo.Keys(builtins))
	}
	return constructor(config), nil
}
