package sat

import (
	"context"
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
)

const (
	giniSatisfiable   = 1
	giniUnsatisfiable = -1

	giniPollInterval = 5 * time.Millisecond
)

type giniSolver struct {
	config SolverConfig
}

// NewGiniSolver returns an in-process solver backed by gini. It reports its verdict through the same output
// decoding path as an external solver.
func NewGiniSolver(config SolverConfig) Solver {
	return &giniSolver{config: config}
}

func (solver *giniSolver) Name() string {
	return solver.config.DisplayName()
}

func (solver *giniSolver) Solve(ctx context.Context, dimacs string) (Result, error) {
	start := time.Now()
	instance, err := ParseDIMACSString(dimacs)
	if err != nil {
		result := Result{Solver: solver.Name(), Status: Crashed, ExitCode: 1, Stderr: err.Error(), Duration: time.Since(start)}
		return result, fmt.Errorf("%w: %v rejected its input: %v", ErrProcessCrash, solver.Name(), err)
	}

	g := gini.NewV(int(instance.VariableCount()))
	for _, clause := range instance.Clauses {
		for _, literal := range clause {
			if literal < 0 {
				g.Add(z.Var(-literal).Neg())
			} else {
				g.Add(z.Var(literal).Pos())
			}
		}
		g.Add(0)
	}

	timeout := remaining(ctx, solver.config.timeout())
	outcome, err := await(ctx, g.GoSolve(), timeout)
	result := Result{Solver: solver.Name(), Status: Exited, Duration: time.Since(start)}
	if err != nil {
		result.Status = Crashed
		return result, err
	}

	switch outcome {
	case giniSatisfiable:
		result.Output = "s SATISFIABLE\n"
	case giniUnsatisfiable:
		result.Output = "s UNSATISFIABLE\n"
	default:
		result.Status = TimedOut
		return result, fmt.Errorf("%w: %v after %v", ErrProcessTimeout, solver.Name(), timeout)
	}

	result.Verdict, err = DecodeVerdict(result.Output)
	return result, err
}

// remaining caps the solver timeout by the context deadline.
func remaining(ctx context.Context, timeout time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return min(timeout, time.Until(deadline))
	}
	return timeout
}

// await polls a running search until it answers, the timeout elapses or ctx is cancelled. The search is stopped in
// the last two cases; a timeout yields the 0 (unknown) outcome unless the search answered meanwhile.
func await(ctx context.Context, solve inter.Solve, timeout time.Duration) (int, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(giniPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			solve.Stop()
			return 0, ctx.Err()
		case <-deadline.C:
			return solve.Stop(), nil
		case <-poll.C:
			if outcome, done := solve.Test(); done {
				return outcome, nil
			}
		}
	}
}
