package sat

import "errors"

var (
	ErrInvalidParams       = errors.New("invalid generation parameters")
	ErrGenerationExhausted = errors.New("generation exhausted")
	ErrPermutation         = errors.New("permutation error")

	ErrMalformedDIMACS    = errors.New("malformed DIMACS")
	ErrUnterminatedClause = errors.New("clause missing terminating 0")
	ErrHeaderMismatch     = errors.New("header does not match clauses")

	ErrInvalidSolverConfig = errors.New("invalid solver configuration")
	ErrProcessSpawn        = errors.New("solver could not be spawned")
	ErrProcessCrash        = errors.New("solver crashed")
	ErrProcessTimeout      = errors.New("solver timed out")
	ErrParse               = errors.New("solver output has no verdict")
)
