package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/limaJavier/satfuzz/pkg/sat"
)

// ReportMode selects what a batch run prints per record.
type ReportMode uint8

const (
	PrintUnsatIndex ReportMode = 1 << iota // Index of every unsatisfiable record
	PrintUnsat                             // Text of every unsatisfiable record, closed by a delimiter line
	PrintIndex                             // Index of every processed record
)

func (mode ReportMode) Has(flag ReportMode) bool {
	return mode&flag != 0
}

type BatchConfig struct {
	Solver     sat.SolverConfig
	StartIndex int
	Mode       ReportMode
	Delimiter  string
	Workers    int
}

func (config BatchConfig) Validate() error {
	if err := validateSolver(config.Solver); err != nil {
		return err
	} else if config.StartIndex < 0 {
		return fmt.Errorf("%w: start index must not be negative: %v", ErrInvalidConfig, config.StartIndex)
	} else if strings.ContainsAny(config.Delimiter, "\r\n") {
		return fmt.Errorf("%w: delimiter must not contain line breaks: %q", ErrInvalidConfig, config.Delimiter)
	} else if config.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative: %v", ErrInvalidConfig, config.Workers)
	}
	return nil
}

func (config BatchConfig) delimiterLine() string {
	delimiter := config.Delimiter
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return strings.Repeat(delimiter, 4) + "\n"
}

type BatchSummary struct {
	RunID         string        `json:"run_id"`
	Processed     int           `json:"processed"`
	Skipped       int           `json:"skipped"`
	Satisfiable   int           `json:"satisfiable"`
	Unsatisfiable int           `json:"unsatisfiable"`
	Crashed       int           `json:"crashed"`
	TimedOut      int           `json:"timed_out"`
	ParseErrors   int           `json:"parse_errors"`
	Duration      time.Duration `json:"duration"`
}

func (summary *BatchSummary) add(result sat.Result, err error) {
	summary.Processed++
	switch {
	case err == nil && result.Verdict == sat.Satisfiable:
		summary.Satisfiable++
	case err == nil && result.Verdict == sat.Unsatisfiable:
		summary.Unsatisfiable++
	case errors.Is(err, sat.ErrProcessTimeout):
		summary.TimedOut++
	case errors.Is(err, sat.ErrParse):
		summary.ParseErrors++
	default:
		summary.Crashed++
	}
}

type BatchRunner struct {
	base
}

func NewBatchRunner(options ...Option) *BatchRunner {
	return &BatchRunner{base: newBase(options)}
}

// Run solves every record of in independently and writes the selected reports to out in record order. A record
// that crashes, times out or yields no verdict is counted and processing moves on; a solver that cannot be
// spawned stops the run.
func (runner *BatchRunner) Run(ctx context.Context, in io.Reader, out io.Writer, config BatchConfig) (BatchSummary, error) {
	if err := config.Validate(); err != nil {
		return BatchSummary{}, err
	}
	solver, err := runner.newSolver(config.Solver)
	if err != nil {
		return BatchSummary{}, err
	}
	records, err := NewRecordScanner(in, config.Delimiter)
	if err != nil {
		return BatchSummary{}, err
	}

	summary := BatchSummary{RunID: uuid.NewString()}
	logger := runner.logger.WithFields(logrus.Fields{"run": summary.RunID, "solver": config.Solver.String()})
	reports := newOrderedWriter(out)
	start := time.Now()

	var (
		mu       sync.Mutex
		sequence int
	)
	workers := newPool(ctx, config.Workers)
	for records.Scan() {
		record := records.Record()
		if record.Index < config.StartIndex {
			summary.Skipped++
			continue
		}

		position := sequence
		sequence++
		submitted := workers.Go(func(ctx context.Context) error {
			result, err := runner.solve(ctx, solver, record.Text)
			if errors.Is(err, sat.ErrProcessSpawn) {
				return &TrialError{Side: solverSide, Solver: config.Solver, Instance: record.Text, Err: err}
			} else if ctx.Err() != nil {
				return ctx.Err()
			}

			mu.Lock()
			summary.add(result, err)
			mu.Unlock()

			entry := logger.WithFields(logrus.Fields{"index": record.Index, "status": result.Status, "duration": result.Duration})
			if err != nil {
				entry.WithError(err).Warn("record failed")
			} else {
				entry.WithField("verdict", result.Verdict).Debug("record solved")
			}
			return reports.Emit(position, runner.report(record, result, err, config))
		})
		if !submitted {
			break
		}
	}

	err = workers.Wait()
	summary.Duration = time.Since(start)
	if err == nil {
		err = records.Err()
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		logger.WithError(err).Error("batch stopped")
		return summary, err
	}

	logger.WithFields(logrus.Fields{
		"processed":     summary.Processed,
		"skipped":       summary.Skipped,
		"unsatisfiable": summary.Unsatisfiable,
		"crashed":       summary.Crashed,
	}).Info("batch finished")
	return summary, nil
}

func (runner *BatchRunner) report(record Record, result sat.Result, err error, config BatchConfig) string {
	unsatisfiable := err == nil && result.Verdict == sat.Unsatisfiable

	var report strings.Builder
	if config.Mode.Has(PrintIndex) || (unsatisfiable && config.Mode.Has(PrintUnsatIndex)) {
		fmt.Fprintf(&report, "%d\n", record.Index)
	}
	if unsatisfiable && config.Mode.Has(PrintUnsat) {
		report.WriteString(record.Text)
		report.WriteString(config.delimiterLine())
	}
	return report.String()
}

// orderedWriter writes reports by position, holding back any that complete before their predecessors.
type orderedWriter struct {
	mu      sync.Mutex
	w       io.Writer
	next    int
	pending map[int]string
}

func newOrderedWriter(w io.Writer) *orderedWriter {
	return &orderedWriter{w: w, pending: make(map[int]string)}
}

func (writer *orderedWriter) Emit(position int, text string) error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	writer.pending[position] = text
	for {
		text, ok := writer.pending[writer.next]
		if !ok {
			return nil
		}
		delete(writer.pending, writer.next)
		writer.next++
		if text == "" {
			continue
		}
		if _, err := io.WriteString(writer.w, text); err != nil {
			return fmt.Errorf("cannot write report: %w", err)
		}
	}
}
