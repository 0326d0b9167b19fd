package harness

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/satfuzz/pkg/sat"
)

const reportStream = `p cnf 1 1
1 0
====
p cnf 1 2
1 0
-1 0
====

====
p cnf 2 2
1 2 0
-1 0
=
p cnf 2 4
1 2 0
-1 2 0
1 -2 0
-1 -2 0
`

func scanRecords(t *testing.T, stream, delimiter string) []Record {
	t.Helper()
	scanner, err := NewRecordScanner(strings.NewReader(stream), delimiter)
	require.NoError(t, err)

	var records []Record
	for scanner.Scan() {
		records = append(records, scanner.Record())
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestRecordScanner(t *testing.T) {
	t.Run("Blank records are skipped and not counted", func(t *testing.T) {
		records := scanRecords(t, reportStream, "")

		require.Len(t, records, 4)
		assert.Equal(t, Record{Index: 0, Text: "p cnf 1 1\n1 0\n"}, records[0])
		assert.Equal(t, 2, records[2].Index)
		assert.Equal(t, "p cnf 2 2\n1 2 0\n-1 0\n", records[2].Text)
		assert.Equal(t, 3, records[3].Index)
	})

	t.Run("Closing delimiter and carriage returns", func(t *testing.T) {
		records := scanRecords(t, "p cnf 1 1\r\n1 0\r\n==\r\n\r\n==\r\n", "")

		assert.Equal(t, []Record{{Index: 0, Text: "p cnf 1 1\n1 0\n"}}, records)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		records := scanRecords(t, "p cnf 1 1\n1 0\n####\np cnf 1 1\n-1 0\n====\n", "#")

		require.Len(t, records, 2)
		assert.Equal(t, "p cnf 1 1\n-1 0\n====\n", records[1].Text)
	})

	t.Run("Delimiter must fill the whole line", func(t *testing.T) {
		records := scanRecords(t, "c ====\np cnf 1 1\n1 0\n== =\n", "")

		assert.Len(t, records, 1)
	})

	t.Run("Empty stream", func(t *testing.T) {
		assert.Empty(t, scanRecords(t, "", ""))
		assert.Empty(t, scanRecords(t, "====\n\n====\n", ""))
	})
}

func TestBatchRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("Start index skips earlier records", func(t *testing.T) {
		//** Arrange
		solver := constantSolver("recorder", sat.Satisfiable, time.Millisecond)
		runner := NewBatchRunner(fakes(solver))
		stream := "p cnf 1 1\n1 0\n====\np cnf 1 1\n-1 0\n"

		//** Act
		summary, err := runner.Run(ctx, strings.NewReader(stream), &bytes.Buffer{}, BatchConfig{Solver: sat.SolverConfig{Path: "recorder"}, StartIndex: 1})

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"p cnf 1 1\n-1 0\n"}, solver.Inputs())
		assert.Equal(t, 1, summary.Processed)
		assert.Equal(t, 1, summary.Skipped)
	})

	t.Run("Start index matches discarding the first records", func(t *testing.T) {
		//** Arrange
		var stream strings.Builder
		for i := range 8 {
			fmt.Fprintf(&stream, "c record %d\np cnf 3 2\n%d 2 0\n-3 0\n===\n", i, i%3+1)
		}
		config := BatchConfig{Solver: sat.SolverConfig{Path: sat.BuiltinGini}, Mode: PrintIndex | PrintUnsat, Workers: 3}

		//** Act
		var full bytes.Buffer
		_, err := NewBatchRunner().Run(ctx, strings.NewReader(stream.String()), &full, config)
		require.NoError(t, err)

		config.StartIndex = 3
		var partial bytes.Buffer
		summary, err := NewBatchRunner().Run(ctx, strings.NewReader(stream.String()), &partial, config)
		require.NoError(t, err)

		//** Assert
		lines := strings.Split(full.String(), "\n")
		assert.Equal(t, strings.Join(lines[3:], "\n"), partial.String())
		assert.Equal(t, 5, summary.Processed)
		assert.Equal(t, 3, summary.Skipped)
	})

	t.Run("Crashes do not stop the batch", func(t *testing.T) {
		solver := &fakeSolver{name: "flaky", answer: func(dimacs string) (sat.Result, error) {
			if strings.Contains(dimacs, "c crash") {
				return sat.Result{Status: sat.Crashed, ExitCode: 139}, fmt.Errorf("%w: terminated by signal segmentation fault", sat.ErrProcessCrash)
			}
			if strings.Contains(dimacs, "c garbage") {
				return sat.Result{Status: sat.Exited, Output: "s UNKNOWN"}, fmt.Errorf("%w: unexpected trailing token", sat.ErrParse)
			}
			return sat.Result{Status: sat.Exited, Verdict: sat.Unsatisfiable}, nil
		}}
		runner := NewBatchRunner(fakes(solver))
		stream := "c crash\np cnf 1 1\n1 0\n==\nc garbage\np cnf 1 1\n1 0\n==\np cnf 1 1\n1 0\n==\np cnf 1 1\n1 0\n"

		var out bytes.Buffer
		summary, err := runner.Run(ctx, strings.NewReader(stream), &out, BatchConfig{Solver: sat.SolverConfig{Path: "flaky"}, Mode: PrintUnsatIndex})

		require.NoError(t, err)
		assert.Equal(t, 4, summary.Processed)
		assert.Equal(t, 1, summary.Crashed)
		assert.Equal(t, 1, summary.ParseErrors)
		assert.Equal(t, 2, summary.Unsatisfiable)
		assert.Equal(t, "2\n3\n", out.String())
	})

	t.Run("Timeouts are counted", func(t *testing.T) {
		runner := NewBatchRunner(fakes(timingOutSolver("slow")))

		summary, err := runner.Run(ctx, strings.NewReader(reportStream), &bytes.Buffer{}, BatchConfig{Solver: sat.SolverConfig{Path: "slow"}})

		require.NoError(t, err)
		assert.Equal(t, 4, summary.TimedOut)
	})

	t.Run("Reports keep record order across workers", func(t *testing.T) {
		delay := regexp.MustCompile(`c delay (\d+)`)
		solver := &fakeSolver{name: "sleepy", answer: func(dimacs string) (sat.Result, error) {
			milliseconds, _ := strconv.Atoi(delay.FindStringSubmatch(dimacs)[1])
			time.Sleep(time.Duration(milliseconds) * time.Millisecond)
			return sat.Result{Status: sat.Exited, Verdict: sat.Satisfiable}, nil
		}}
		var stream strings.Builder
		for i := range 6 {
			fmt.Fprintf(&stream, "c delay %d\np cnf 1 1\n1 0\n=\n", 60-10*i)
		}

		var out bytes.Buffer
		_, err := NewBatchRunner(fakes(solver)).Run(ctx, strings.NewReader(stream.String()), &out, BatchConfig{Solver: sat.SolverConfig{Path: "sleepy"}, Mode: PrintIndex, Workers: 6})

		require.NoError(t, err)
		assert.Equal(t, "0\n1\n2\n3\n4\n5\n", out.String())
	})

	t.Run("Missing executable aborts", func(t *testing.T) {
		runner := NewBatchRunner()

		_, err := runner.Run(ctx, strings.NewReader(reportStream), &bytes.Buffer{}, BatchConfig{Solver: sat.SolverConfig{Path: "/nonexistent/satfuzz-solver"}})

		assert.ErrorIs(t, err, sat.ErrProcessSpawn)
	})

	t.Run("Invalid configuration", func(t *testing.T) {
		runner := NewBatchRunner()

		_, err := runner.Run(ctx, strings.NewReader(""), &bytes.Buffer{}, BatchConfig{Solver: sat.SolverConfig{Path: sat.BuiltinGini}, StartIndex: -1})
		assert.ErrorIs(t, err, ErrInvalidConfig)
		_, err = runner.Run(ctx, strings.NewReader(""), &bytes.Buffer{}, BatchConfig{Solver: sat.SolverConfig{Path: sat.BuiltinGini}, Delimiter: "=\n"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestBatchReportGolden(t *testing.T) {
	runner := NewBatchRunner()
	config := BatchConfig{Solver: sat.SolverConfig{Path: sat.BuiltinGini}, Mode: PrintUnsatIndex | PrintUnsat, Workers: 2}

	var out bytes.Buffer
	summary, err := runner.Run(context.Background(), strings.NewReader(reportStream), &out, config)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Satisfiable)
	assert.Equal(t, 2, summary.Unsatisfiable)

	g := goldie.New(t)
	g.Assert(t, "batch_report", out.Bytes())
}
