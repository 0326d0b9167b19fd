package sat

import (
	"fmt"
	"math/rand/v2"
)

const (
	DefaultMaxAttempts       = 1_000_000
	DefaultLiteralsPerClause = 3
	DefaultRatio             = 4.26
)

// GenerateParams describes a random k-SAT instance. MaxAttempts bounds the total number of clause draws
// (accepted and rejected) performed by a single generation; zero means DefaultMaxAttempts.
type GenerateParams struct {
	Variables         int
	Clauses           int
	LiteralsPerClause int
	MaxAttempts       int
}

func (params GenerateParams) Validate() error {
	if params.Variables <= 0 {
		return fmt.Errorf("%w: variable count must be positive: %v", ErrInvalidParams, params.Variables)
	} else if params.Clauses < 0 {
		return fmt.Errorf("%w: clause count must not be negative: %v", ErrInvalidParams, params.Clauses)
	} else if params.LiteralsPerClause <= 0 {
		return fmt.Errorf("%w: literals per clause must be positive: %v", ErrInvalidParams, params.LiteralsPerClause)
	} else if params.LiteralsPerClause > 2*params.Variables {
		return fmt.Errorf("%w: cannot draw %v distinct literals out of %v", ErrInvalidParams, params.LiteralsPerClause, 2*params.Variables)
	} else if params.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts must not be negative: %v", ErrInvalidParams, params.MaxAttempts)
	}
	return nil
}

// NewRand returns the pseudorandom stream used for generation and permutation. Equal seeds yield equal streams.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// SizeForScale returns the variable and clause counts of a 3-SAT instance near the phase transition (ratio 4.26),
// 100 variables per unit of scale.
func SizeForScale(scale float64) (variables, clauses int) {
	return int(100 * scale), int(426 * scale)
}

func ClausesForRatio(variables int, ratio float64) int {
	return int(float64(variables) * ratio)
}

func GenerateFromSeed(params GenerateParams, seed int64) (Instance, error) {
	return Generate(params, NewRand(seed))
}

// Generate samples params.Clauses clauses, each made of params.LiteralsPerClause distinct literals drawn without
// replacement from ±1..±params.Variables. Tautological draws are rejected and redrawn. Duplicate clauses are kept.
func Generate(params GenerateParams, rng *rand.Rand) (Instance, error) {
	if err := params.Validate(); err != nil {
		return Instance{}, err
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	clauses := make([]Clause, 0, params.Clauses)
	if params.Clauses == 0 {
		return Instance{Clauses: clauses}, nil
	}
	// Any k > n literals hold a complementary pair
	if params.LiteralsPerClause > params.Variables {
		return Instance{}, fmt.Errorf("%w: every clause of %v literals over %v variables is tautological", ErrGenerationExhausted, params.LiteralsPerClause, params.Variables)
	}

	universe := literalUniverse(params.Variables)
	attempts := 0
	for len(clauses) < params.Clauses {
		if attempts >= maxAttempts {
			return Instance{}, fmt.Errorf("%w: accepted %v of %v clauses after %v attempts", ErrGenerationExhausted, len(clauses), params.Clauses, attempts)
		}
		attempts++

		clause := sample(universe, params.LiteralsPerClause, rng)
		if IsTautology(clause) {
			continue
		}
		clauses = append(clauses, clause)
	}

	return Instance{Clauses: clauses}, nil
}

// literalUniverse returns -n..-1, 1..n in ascending order.
func literalUniverse(variables int) []int64 {
	universe := make([]int64, 0, 2*variables)
	for v := variables; v >= 1; v-- {
		universe = append(universe, -int64(v))
	}
	for v := 1; v <= variables; v++ {
		universe = append(universe, int64(v))
	}
	return universe
}

// sample draws k distinct entries with a partial Fisher-Yates shuffle, then undoes the swaps so the universe keeps
// its order between draws.
func sample(universe []int64, k int, rng *rand.Rand) Clause {
	swaps := make([]int, k)
	clause := make(Clause, k)
	for i := range k {
		j := i + rng.IntN(len(universe)-i)
		universe[i], universe[j] = universe[j], universe[i]
		swaps[i] = j
		clause[i] = universe[i]
	}
	for i := k - 1; i >= 0; i-- {
		j := swaps[i]
		universe[i], universe[j] = universe[j], universe[i]
	}
	return clause
}
