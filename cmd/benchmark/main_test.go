package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/satfuzz/internal/harness"
	"github.com/limaJavier/satfuzz/pkg/sat"
)

func TestToCsv(t *testing.T) {
	//** Arrange
	results := []harness.BenchmarkResult{
		{
			Solver:  sat.SolverConfig{Path: "./build/sat", Flags: []string{"--backtrack-subsumption-", "--on-the-fly-subsumption-"}},
			Seeds:   20,
			Total:   2500 * time.Millisecond,
			Mean:    125 * time.Millisecond,
			Max:     900 * time.Millisecond,
			MaxSeed: 17,
			Tally:   harness.Tally{Trials: 20, Satisfiable: 12, Unsatisfiable: 7, Timeouts: 1},
		},
		{
			Solver: sat.SolverConfig{Name: "minisat", Path: "minisat"},
			Seeds:  20,
		},
	}
	var buffer bytes.Buffer

	//** Act
	err := toCsv(&buffer, results)

	//** Assert
	require.NoError(t, err)
	records, err := csv.NewReader(&buffer).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Total(ms)", records[0][3])
	assert.Equal(t, []string{"./build/sat", "--backtrack-subsumption- --on-the-fly-subsumption-", "20", "2500", "125", "900", "17", "12", "7", "0", "1", "0"}, records[1])
	assert.Equal(t, "minisat", records[2][0])
	assert.Equal(t, "", records[2][1])
}

func TestBenchmarkBuiltinSolvers(t *testing.T) {
	runner := harness.NewSweepRunner()

	results, err := runner.Benchmark(context.Background(), harness.BenchmarkConfig{
		SeedStart: 0,
		SeedEnd:   3,
		Instance:  harness.InstanceConfig{Scale: 0.2},
		Solvers:   []sat.SolverConfig{{Path: sat.BuiltinGini}, {Path: sat.BuiltinGophersat}},
	})
	require.NoError(t, err)

	var buffer bytes.Buffer
	require.NoError(t, toCsv(&buffer, results))
	records, err := csv.NewReader(&buffer).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, records[1][7:9], records[2][7:9], "both solvers must report the same verdict counts")
}
