package harness

import (
	"errors"
	"fmt"
	"io"

	"github.com/limaJavier/satfuzz/pkg/sat"
)

var (
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrDifferentialMismatch = errors.New("differential mismatch")
	ErrSeedRecorded         = errors.New("seed already recorded")
)

// MismatchError reports two solvers disagreeing on equisatisfiable inputs. It carries everything needed to
// reproduce the disagreement.
type MismatchError struct {
	Seeds             sat.SeedPair
	Reference         sat.SolverConfig
	Candidate         sat.SolverConfig
	ReferenceVerdict  sat.Verdict
	CandidateVerdict  sat.Verdict
	ReferenceInstance string
	CandidateInstance string
}

func (err *MismatchError) Error() string {
	return fmt.Sprintf("%v: seeds %v: %q says %v, %q says %v", ErrDifferentialMismatch, err.Seeds, err.Reference.String(), err.ReferenceVerdict, err.Candidate.String(), err.CandidateVerdict)
}

func (err *MismatchError) Unwrap() error {
	return ErrDifferentialMismatch
}

// TrialError attributes a solver failure to one side of a trial.
type TrialError struct {
	Side     string // "reference", "candidate" or "solver"
	Seeds    *sat.SeedPair
	Solver   sat.SolverConfig
	Instance string
	Result   sat.Result
	Err      error
}

func (err *TrialError) Error() string {
	if err.Seeds != nil {
		return fmt.Sprintf("%v %q failed on seeds %v: %v", err.Side, err.Solver.String(), *err.Seeds, err.Err)
	}
	return fmt.Sprintf("%v %q failed: %v", err.Side, err.Solver.String(), err.Err)
}

func (err *TrialError) Unwrap() error {
	return err.Err
}

// WriteReproduction prints the seeds, solver command lines and serialized instances carried by err, if any.
func WriteReproduction(w io.Writer, err error) {
	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		fmt.Fprintf(w, "seeds (generation, permutation): %v\n", mismatch.Seeds)
		fmt.Fprintf(w, "reference: %v -> %v\n", mismatch.Reference.String(), mismatch.ReferenceVerdict)
		fmt.Fprintf(w, "candidate: %v -> %v\n", mismatch.Candidate.String(), mismatch.CandidateVerdict)
		fmt.Fprintf(w, "reference instance:\n%v", mismatch.ReferenceInstance)
		if mismatch.CandidateInstance != mismatch.ReferenceInstance {
			fmt.Fprintf(w, "candidate instance:\n%v", mismatch.CandidateInstance)
		}
		return
	}

	var trial *TrialError
	if errors.As(err, &trial) {
		if trial.Seeds != nil {
			fmt.Fprintf(w, "seeds (generation, permutation): %v\n", *trial.Seeds)
		}
		fmt.Fprintf(w, "%v: %v (%v, exit code %d)\n", trial.Side, trial.Solver.String(), trial.Result.Status, trial.Result.ExitCode)
		if trial.Result.Stderr != "" {
			fmt.Fprintf(w, "stderr:\n%v\n", trial.Result.Stderr)
		}
		if trial.Instance != "" {
			fmt.Fprintf(w, "instance:\n%v", trial.Instance)
		}
	}
}
