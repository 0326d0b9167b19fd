package sat

import (
	"fmt"
	"strings"

	"github.com/mitchellh/hashstructure"
	"github.com/samber/lo"
)

// Clause is a disjunction of literals. A literal's magnitude is its variable and its sign is the polarity.
type Clause []int64

// Instance is a CNF formula. The variable count is derived from the largest literal magnitude.
type Instance struct {
	Clauses []Clause
}

// SeedPair identifies a trial instance. A zero Permutation means the generated instance is used as is.
type SeedPair struct {
	Generation  int64
	Permutation int64
}

func (seeds SeedPair) String() string {
	return fmt.Sprintf("(%d, %d)", seeds.Generation, seeds.Permutation)
}

func (instance Instance) VariableCount() uint64 {
	return lo.Reduce(instance.Clauses, func(variables uint64, clause Clause, _ int) uint64 {
		for _, literal := range clause {
			variables = max(variables, magnitude(literal))
		}
		return variables
	}, 0)
}

func (instance Instance) Clone() Instance {
	return Instance{
		Clauses: lo.Map(instance.Clauses, func(clause Clause, _ int) Clause {
			return append(Clause(nil), clause...)
		}),
	}
}

// ToDIMACS serializes the instance into its canonical DIMACS-CNF text.
func (instance Instance) ToDIMACS() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "p cnf %d %d\n", instance.VariableCount(), len(instance.Clauses))
	for _, clause := range instance.Clauses {
		for _, literal := range clause {
			fmt.Fprintf(&builder, "%d ", literal)
		}
		builder.WriteString("0\n")
	}
	return builder.String()
}

// Fingerprint hashes the clause sequence so findings can be correlated across log lines.
func Fingerprint(instance Instance) (uint64, error) {
	hash, err := hashstructure.Hash(instance.Clauses, nil)
	if err != nil {
		return 0, fmt.Errorf("cannot fingerprint instance: %w", err)
	}
	return hash, nil
}

// IsTautology reports whether the clause holds a variable with both polarities.
func IsTautology(clause Clause) bool {
	seen := make(map[int64]bool, len(clause))
	for _, literal := range clause {
		if seen[-literal] {
			return true
		}
		seen[literal] = true
	}
	return false
}

func magnitude(literal int64) uint64 {
	if literal < 0 {
		return uint64(-literal)
	}
	return uint64(literal)
}
