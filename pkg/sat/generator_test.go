package sat

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateScenario(t *testing.T) {
	//** Arrange
	params := GenerateParams{Variables: 10, Clauses: 20, LiteralsPerClause: 3}

	//** Act
	first, err := GenerateFromSeed(params, 0)
	require.NoError(t, err)
	second, err := GenerateFromSeed(params, 0)
	require.NoError(t, err)

	//** Assert
	assert.Len(t, first.Clauses, 20)
	for _, clause := range first.Clauses {
		assert.Len(t, clause, 3)
		assert.False(t, IsTautology(clause), "clause %v is tautological", clause)
	}
	assert.Equal(t, first.Clauses, second.Clauses)
	assert.Equal(t, first.ToDIMACS(), second.ToDIMACS())
}

func TestGenerateDeterministic(t *testing.T) {
	for range 20 {
		//** Arrange
		params := GenerateParams{
			Variables:         rand.IntN(50) + 1,
			Clauses:           rand.IntN(200),
			LiteralsPerClause: rand.IntN(3) + 1,
		}
		params.LiteralsPerClause = min(params.LiteralsPerClause, params.Variables)
		seed := rand.Int64()

		//** Act
		first, err := GenerateFromSeed(params, seed)
		require.NoError(t, err)
		second, err := GenerateFromSeed(params, seed)
		require.NoError(t, err)

		//** Assert
		assert.Equal(t, first.ToDIMACS(), second.ToDIMACS())
	}
}

func TestGenerateInvariants(t *testing.T) {
	for seed := range int64(50) {
		//** Arrange
		params := GenerateParams{Variables: 8, Clauses: 40, LiteralsPerClause: 4}

		//** Act
		instance, err := GenerateFromSeed(params, seed)
		require.NoError(t, err)

		//** Assert
		assert.Len(t, instance.Clauses, params.Clauses)
		assert.LessOrEqual(t, instance.VariableCount(), uint64(params.Variables))
		for _, clause := range instance.Clauses {
			assert.False(t, IsTautology(clause))
			assert.Len(t, clause, params.LiteralsPerClause)
			for _, literal := range clause {
				assert.NotZero(t, literal)
			}
			// Literals are drawn without replacement
			assert.Len(t, uniqueLiterals(clause), len(clause))
		}
	}
}

func TestGenerateDifferentSeedsDiffer(t *testing.T) {
	params := GenerateParams{Variables: 100, Clauses: 426, LiteralsPerClause: 3}

	first, err := GenerateFromSeed(params, 1)
	require.NoError(t, err)
	second, err := GenerateFromSeed(params, 2)
	require.NoError(t, err)

	assert.NotEqual(t, first.ToDIMACS(), second.ToDIMACS())
}

func TestGenerateZeroClauses(t *testing.T) {
	instance, err := GenerateFromSeed(GenerateParams{Variables: 3, Clauses: 0, LiteralsPerClause: 3}, 4)

	require.NoError(t, err)
	assert.Empty(t, instance.Clauses)
	assert.Equal(t, "p cnf 0 0\n", instance.ToDIMACS())
}

func TestGenerateInvalidParams(t *testing.T) {
	scenarios := []GenerateParams{
		{Variables: 0, Clauses: 1, LiteralsPerClause: 1},
		{Variables: -3, Clauses: 1, LiteralsPerClause: 1},
		{Variables: 3, Clauses: -1, LiteralsPerClause: 1},
		{Variables: 3, Clauses: 1, LiteralsPerClause: 0},
		{Variables: 3, Clauses: 1, LiteralsPerClause: 7},
		{Variables: 3, Clauses: 1, LiteralsPerClause: 1, MaxAttempts: -1},
	}

	for _, params := range scenarios {
		_, err := GenerateFromSeed(params, 0)
		assert.ErrorIs(t, err, ErrInvalidParams, "params %+v", params)
	}
}

func TestGenerateExhausted(t *testing.T) {
	t.Run("Every clause is tautological", func(t *testing.T) {
		_, err := GenerateFromSeed(GenerateParams{Variables: 2, Clauses: 1, LiteralsPerClause: 3}, 0)
		assert.ErrorIs(t, err, ErrGenerationExhausted)
	})

	t.Run("Attempt bound reached", func(t *testing.T) {
		// 1000 clauses cannot be accepted within 10 draws
		params := GenerateParams{Variables: 2, Clauses: 1000, LiteralsPerClause: 2, MaxAttempts: 10}
		_, err := GenerateFromSeed(params, 0)
		assert.True(t, errors.Is(err, ErrGenerationExhausted))
	})
}

func TestSizeForScale(t *testing.T) {
	variables, clauses := SizeForScale(2.5)
	assert.Equal(t, 250, variables)
	assert.Equal(t, 1065, clauses)

	assert.Equal(t, 42, ClausesForRatio(10, DefaultRatio))
}

func uniqueLiterals(clause Clause) map[int64]struct{} {
	set := make(map[int64]struct{}, len(clause))
	for _, literal := range clause {
		set[literal] = struct{}{}
	}
	return set
}
