package sat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const waitDelay = 2 * time.Second

// Environment entries enabling sanitizer diagnostics (stack traces on undefined behavior, abort on error).
var sanitizerEnv = []string{
	"UBSAN_OPTIONS=print_stacktrace=1",
	"ASAN_OPTIONS=abort_on_error=1",
}

type processSolver struct {
	config SolverConfig
}

// NewProcessSolver returns a solver that spawns config.Path once per Solve, writing the instance to its standard input.
func NewProcessSolver(config SolverConfig) Solver {
	return &processSolver{config: config}
}

func (solver *processSolver) Name() string {
	return solver.config.DisplayName()
}

func (solver *processSolver) Solve(parent context.Context, dimacs string) (Result, error) {
	ctx, cancel := context.WithTimeout(parent, solver.config.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, solver.config.Path, solver.config.Flags...)
	cmd.Stdin = strings.NewReader(dimacs) // Feed dimacs into the solver's standard input
	cmd.Env = solver.environment()
	cmd.WaitDelay = waitDelay

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %v: %v", ErrProcessSpawn, solver.config, err)
	}
	err := cmd.Wait()

	result := Result{
		Solver:   solver.Name(),
		Status:   Exited,
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   stdOut.String(),
		Stderr:   stdErr.String(),
		Duration: time.Since(start),
	}

	// The caller gave up; the process was killed on its behalf
	if parentErr := parent.Err(); parentErr != nil {
		result.Status = Crashed
		return result, parentErr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.Status = TimedOut
		return result, fmt.Errorf("%w: %v after %v", ErrProcessTimeout, solver.config, solver.config.timeout())
	}

	if err != nil && !solver.config.normalExit(result.ExitCode) {
		result.Status = Crashed
		return result, fmt.Errorf("%w: %v: %v: %v", ErrProcessCrash, solver.config, describeExit(cmd.ProcessState, err), tail(result.Stderr))
	}

	result.Verdict, err = DecodeVerdict(result.Output)
	if err != nil {
		return result, fmt.Errorf("%v: %w", solver.config, err)
	}
	return result, nil
}

// environment scopes sanitizer and configured variables to this invocation only.
func (solver *processSolver) environment() []string {
	env := os.Environ()
	if solver.config.Sanitized {
		env = append(env, sanitizerEnv...)
	}
	return append(env, solver.config.Env...)
}

func describeExit(state *os.ProcessState, err error) string {
	if state == nil {
		return err.Error()
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return fmt.Sprintf("terminated by signal %v", status.Signal())
	}
	return fmt.Sprintf("exit code %d", state.ExitCode())
}

// tail keeps the last lines of a diagnostic stream so error messages stay readable.
func tail(text string) string {
	const maxLines = 20
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
