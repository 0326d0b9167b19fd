package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/limaJavier/satfuzz/internal/config"
	"github.com/limaJavier/satfuzz/internal/harness"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

// Exit codes for CLI commands.
const (
	ExitSuccess           = 0
	ExitFailure           = 1 // Any failure without a more specific code
	ExitInvalidArguments  = 2 // Invalid flags or configuration
	ExitInvalidVariables  = 3 // Non-positive variable count
	ExitInvalidRatio      = 4 // Non-positive clause ratio
	ExitExhausted         = 5 // Rejection sampling ran out of attempts
	ExitSpawnFailure      = 6 // A solver executable could not be started
	ExitMismatch          = 7 // Two solvers disagreed on equisatisfiable inputs
	ExitDifferentialCrash = 8 // A solver crashed during a differential run
)

// commandError is a failed command: the operation that failed and its cause. The exit code follows from the
// cause's error class unless one was given explicitly.
type commandError struct {
	op   string
	code int
	err  error
}

func (e *commandError) Error() string {
	if e.op == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *commandError) Unwrap() error {
	return e.err
}

func (e *commandError) ExitCode() int {
	if e.code != ExitSuccess {
		return e.code
	}
	return classify(e.err)
}

// failed wraps a runner error; the exit code is derived from it.
func failed(op string, err error) error {
	return &commandError{op: op, err: err}
}

func failedWith(code int, op string, err error) error {
	return &commandError{op: op, code: code, err: err}
}

// rejected reports unusable input under an explicit exit code.
func rejected(code int, format string, args ...any) error {
	return &commandError{code: code, err: fmt.Errorf(format, args...)}
}

// ExitStatus maps an error returned by a command to the process exit code.
func ExitStatus(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return classify(err)
}

// classify picks the exit code of a runner failure.
func classify(err error) int {
	switch {
	case errors.Is(err, harness.ErrDifferentialMismatch):
		return ExitMismatch
	case errors.Is(err, sat.ErrProcessSpawn):
		return ExitSpawnFailure
	case errors.Is(err, sat.ErrGenerationExhausted):
		return ExitExhausted
	case errors.Is(err, harness.ErrInvalidConfig),
		errors.Is(err, config.ErrInvalidFile),
		errors.Is(err, sat.ErrInvalidSolverConfig),
		errors.Is(err, sat.ErrInvalidParams):
		return ExitInvalidArguments
	case errors.Is(err, sat.ErrProcessCrash):
		return ExitDifferentialCrash
	default:
		return ExitFailure
	}
}

// OutputFormatter renders command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

// CLIResponse is the JSON envelope of every command result.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   int    `json:"code,omitempty"`
}

// Success writes data; text mode prints whatever text renders, JSON mode encodes data itself.
func (f *OutputFormatter) Success(data any, text func(io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Failure reports a fatal error. In JSON mode the envelope goes to Writer so the output stays one document;
// reproduction details always go to ErrWriter.
func (f *OutputFormatter) Failure(err error, data any) error {
	code := ExitStatus(err)
	if f.Format == "json" {
		if encodeErr := json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Data: data, Error: err.Error(), Code: code}); encodeErr != nil {
			return encodeErr
		}
	}
	harness.WriteReproduction(f.errWriter(), err)
	return err
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
