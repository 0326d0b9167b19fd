package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/limaJavier/satfuzz/internal/config"
	"github.com/limaJavier/satfuzz/internal/harness"
	"github.com/limaJavier/satfuzz/internal/metrics"
)

var (
	ValidFormats    = []string{"text", "json"}
	ValidLogFormats = []string{"text", "json"}
)

// RootOptions holds global flags and the state shared by every command once they are parsed.
type RootOptions struct {
	Verbose     bool
	LogFormat   string
	Format      string
	ConfigPath  string
	MetricsAddr string
	Workers     int

	logger   *logrus.Logger
	file     config.File
	recorder *metrics.Recorder
	server   *http.Server
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "satfuzz",
		Short: "Seeded SAT instance generator and solver fuzzing harness",
		Long: `Generate random k-SAT instances deterministically from integer seeds and drive them
through external solvers to find crashes, verdict disagreements and slow inputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown()
		},
	}
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return failedWith(ExitInvalidArguments, "invalid arguments", err)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every trial")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML or JSON file defining named solvers and defaults")
	cmd.PersistentFlags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.PersistentFlags().IntVar(&opts.Workers, "workers", 0, "concurrent solver invocations (default 1, or the configuration file's value)")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewDifferentialCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewBenchmarkCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitStatus(err)
}

func (opts *RootOptions) setup(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, opts.Format) {
		return rejected(ExitInvalidArguments, "invalid format %q: must be one of %v", opts.Format, ValidFormats)
	} else if !slices.Contains(ValidLogFormats, opts.LogFormat) {
		return rejected(ExitInvalidArguments, "invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats)
	} else if opts.Workers < 0 {
		return rejected(ExitInvalidArguments, "workers must not be negative: %v", opts.Workers)
	}

	opts.logger = newLogger(cmd.ErrOrStderr(), opts.LogFormat, opts.Verbose)

	file, err := config.Load(opts.ConfigPath)
	if err != nil {
		return failedWith(ExitInvalidArguments, "cannot load configuration", err)
	}
	opts.file = file

	if opts.MetricsAddr != "" {
		opts.recorder = metrics.NewRecorder()
		opts.server = serveMetrics(opts.MetricsAddr, opts.recorder, opts.logger)
	}
	return nil
}

func (opts *RootOptions) teardown() error {
	if opts.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return opts.server.Shutdown(ctx)
}

func (opts *RootOptions) workers() int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return opts.file.Workers
}

func (opts *RootOptions) harnessOptions() []harness.Option {
	return []harness.Option{harness.WithLogger(opts.logger), harness.WithMetrics(opts.recorder)}
}

func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
}

func newLogger(w io.Writer, format string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func serveMetrics(addr string, recorder *metrics.Recorder, logger *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).WithField("addr", addr).Error("metrics server failed")
		}
	}()
	logger.WithField("addr", addr).Info("serving metrics")
	return server
}
