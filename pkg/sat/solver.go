package sat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

type Verdict int

const (
	Unknown Verdict = iota
	Satisfiable
	Unsatisfiable
)

var verdicts = map[Verdict]string{
	Unknown:       "UNKNOWN",
	Satisfiable:   "SATISFIABLE",
	Unsatisfiable: "UNSATISFIABLE",
}

func (verdict Verdict) String() string {
	return verdicts[verdict]
}

type Status int

const (
	Exited Status = iota
	Crashed
	TimedOut
)

var statuses = map[Status]string{
	Exited:   "exited",
	Crashed:  "crashed",
	TimedOut: "timed-out",
}

func (status Status) String() string {
	return statuses[status]
}

// Result describes one solver invocation.
type Result struct {
	Solver   string
	Status   Status
	ExitCode int
	Output   string
	Stderr   string
	Verdict  Verdict
	Duration time.Duration
}

// Solver runs a DIMACS-CNF instance to completion. Failures are reported through errors wrapping ErrProcessSpawn,
// ErrProcessCrash, ErrProcessTimeout or ErrParse; the Result is filled in for every failure but a spawn error.
type Solver interface {
	Name() string
	Solve(ctx context.Context, dimacs string) (Result, error)
}

const DefaultTimeout = 60 * time.Second

// SolverConfig selects and parameterizes a solver. Paths prefixed with "builtin:" select an in-process solver.
type SolverConfig struct {
	Name      string        `mapstructure:"name"`
	Path      string        `mapstructure:"path"`
	Flags     []string      `mapstructure:"flags"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Sanitized bool          `mapstructure:"sanitized"`
	Env       []string      `mapstructure:"env"`
	ExitCodes []int         `mapstructure:"exit_codes"` // Exit codes other than 0 that mean normal termination
}

func (config SolverConfig) Validate() error {
	if config.Path == "" {
		return fmt.Errorf("%w: solver path must be specified", ErrInvalidSolverConfig)
	} else if config.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative: %v", ErrInvalidSolverConfig, config.Timeout)
	}
	for _, entry := range config.Env {
		if !strings.Contains(entry, "=") {
			return fmt.Errorf("%w: environment entry %q is not KEY=VALUE", ErrInvalidSolverConfig, entry)
		}
	}
	return nil
}

func (config SolverConfig) DisplayName() string {
	if config.Name != "" {
		return config.Name
	}
	return config.Path
}

// String renders the executable and flags as they would be typed on a shell.
func (config SolverConfig) String() string {
	return strings.Join(append([]string{config.Path}, config.Flags...), " ")
}

func (config SolverConfig) timeout() time.Duration {
	if config.Timeout == 0 {
		return DefaultTimeout
	}
	return config.Timeout
}

func (config SolverConfig) normalExit(code int) bool {
	return code == 0 || slices.Contains(config.ExitCodes, code)
}

// DecodeVerdict reads the verdict from the last whitespace-separated token of the solver output.
func DecodeVerdict(output string) (Verdict, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return Unknown, fmt.Errorf("%w: empty output", ErrParse)
	}

	switch last := fields[len(fields)-1]; last {
	case verdicts[Satisfiable]:
		return Satisfiable, nil
	case verdicts[Unsatisfiable]:
		return Unsatisfiable, nil
	default:
		return Unknown, fmt.Errorf("%w: unexpected trailing token %q", ErrParse, last)
	}
}
