package sat

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/crillab/gophersat/solver"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"
)

// gophersatSlots bounds the searches running at once across all gophersat solvers.
var gophersatSlots = semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))

type gophersatSolver struct {
	config SolverConfig
}

func NewGophersatSolver(config SolverConfig) Solver {
	return &gophersatSolver{config: config}
}

func (s *gophersatSolver) Name() string {
	return s.config.DisplayName()
}

func (s *gophersatSolver) Solve(ctx context.Context, dimacs string) (Result, error) {
	start := time.Now()
	instance, err := ParseDIMACSString(dimacs)
	if err != nil {
		result := Result{Solver: s.Name(), Status: Crashed, ExitCode: 1, Stderr: err.Error(), Duration: time.Since(start)}
		return result, fmt.Errorf("%w: %v rejected its input: %v", ErrProcessCrash, s.Name(), err)
	}

	clauses := lo.Map(instance.Clauses, func(clause Clause, _ int) []int {
		return lo.Map(clause, func(literal int64, _ int) int { return int(literal) })
	})

	timeout := remaining(ctx, s.config.timeout())
	solveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// gophersat cannot be interrupted: an abandoned search holds its slot until it finishes, so abandoned
	// searches never outnumber the slots
	if err := gophersatSlots.Acquire(solveCtx, 1); err != nil {
		return s.abandoned(ctx, start, timeout)
	}
	status := make(chan solver.Status, 1)
	go func() {
		defer gophersatSlots.Release(1)
		if len(clauses) == 0 {
			status <- solver.Sat
			return
		}
		status <- solver.New(solver.ParseSlice(clauses)).Solve()
	}()

	result := Result{Solver: s.Name(), Status: Exited}
	select {
	case outcome := <-status:
		result.Duration = time.Since(start)
		switch outcome {
		case solver.Sat:
			result.Output = "s SATISFIABLE\n"
		case solver.Unsat:
			result.Output = "s UNSATISFIABLE\n"
		default:
			result.Output = "s " + outcome.String() + "\n"
		}
	case <-solveCtx.Done():
		return s.abandoned(ctx, start, timeout)
	}

	result.Verdict, err = DecodeVerdict(result.Output)
	return result, err
}

// abandoned reports a search given up on, because ctx was cancelled or because timeout elapsed.
func (s *gophersatSolver) abandoned(ctx context.Context, start time.Time, timeout time.Duration) (Result, error) {
	result := Result{Solver: s.Name(), Status: Crashed, Duration: time.Since(start)}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	result.Status = TimedOut
	return result, fmt.Errorf("%w: %v after %v", ErrProcessTimeout, s.Name(), timeout)
}
