package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sarchlab/mtloop/config"
	"github.com/sarchlab/mtloop/driver"
	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/timing"
	"github.com/sarchlab/mtloop/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a loop.",
	Long: "`run --config loop.yaml` builds the loop described in the file " +
		"and polls it. Without --config the built-in demo loop runs. " +
		"Settings default to the MTLOOP_* environment variables.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		err = applyRunFlags(cmd, cfg)
		if err != nil {
			return err
		}

		return runLoop(cmd.Context(), cfg, cmd.Flag("trace-json").Value.String())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("config", "", "YAML file describing the loop")
	f.Uint64("steps", 0, "number of polls, 0 to run until interrupted")
	f.String("clock", config.ClockCounter, "clock to use: counter or wall")
	f.String("freq", "1kHz", "tick frequency of the wall clock")
	f.String("record", "", "record executions into this SQLite file")
	f.Bool("monitor", false, "start the monitoring server")
	f.Int("monitor-port", 0, "port of the monitoring server")
	f.Bool("open", false, "open the monitoring page in a browser")
	f.BoolP("verbose", "v", false, "log every task start and completion")
	f.String("trace-json", "", "write executions as JSON into this file")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	if f.Changed("config") {
		cfg.LoopFile, _ = f.GetString("config")
	}

	if f.Changed("steps") {
		cfg.Steps, _ = f.GetUint64("steps")
	}

	if f.Changed("clock") {
		cfg.Clock, _ = f.GetString("clock")
	}

	if f.Changed("freq") {
		s, _ := f.GetString("freq")

		freq, err := timing.ParseFreq(s)
		if err != nil {
			return fmt.Errorf("--freq: %w", err)
		}

		cfg.Freq = freq
	}

	if f.Changed("record") {
		cfg.RecordPath, _ = f.GetString("record")
	}

	if f.Changed("monitor") {
		cfg.Monitor, _ = f.GetBool("monitor")
	}

	if f.Changed("monitor-port") {
		cfg.MonitorPort, _ = f.GetInt("monitor-port")
	}

	if f.Changed("open") {
		cfg.OpenBrowser, _ = f.GetBool("open")
	}

	if f.Changed("verbose") {
		cfg.Verbose, _ = f.GetBool("verbose")
	}

	return cfg.Validate()
}

func runLoop(ctx context.Context, cfg *config.Config, jsonTrace string) error {
	zl := logging.Setup(cfg.Environment)

	lf := config.DefaultLoopFile()
	if cfg.LoopFile != "" {
		var err error

		lf, err = config.ReadLoopFile(cfg.LoopFile)
		if err != nil {
			return err
		}
	}

	b, closeTrace, err := makeBuilder(cfg, lf, zl, jsonTrace)
	if err != nil {
		return err
	}

	d, err := b.Build()
	if err != nil {
		return errors.Join(err, closeTrace())
	}

	zl.Info().
		Str("id", d.ID()).
		Str("clock", cfg.Clock).
		Int("chains", d.Loop().Size()).
		Uint64("steps", cfg.Steps).
		Msg("loop started")

	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	runErr := d.Run(ctx, cfg.Steps)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	printSummary(zl, d)

	return errors.Join(runErr, d.Terminate(), closeTrace())
}

func makeBuilder(
	cfg *config.Config,
	lf *config.LoopFile,
	zl zerolog.Logger,
	jsonTrace string,
) (driver.Builder, func() error, error) {
	closeTrace := func() error { return nil }

	b := driver.MakeBuilder().
		WithLoopFile(lf).
		WithClock(cfg.NewClock()).
		WithLogger(logging.NewZerolog(zl))

	if cfg.Verbose {
		b = b.WithVerbose()
	}

	if cfg.RecordPath != "" {
		b = b.WithRecording(cfg.RecordPath)
	}

	if cfg.Monitor {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		b = b.WithMonitor(cfg.MonitorPort).WithMetrics(reg)

		if cfg.OpenBrowser {
			b = b.WithBrowser()
		}
	}

	if jsonTrace != "" {
		f, err := os.Create(jsonTrace)
		if err != nil {
			return b, closeTrace, fmt.Errorf("create JSON trace: %w", err)
		}

		t := tracing.NewJSONTracer(f)
		b = b.WithTracer(t)
		closeTrace = func() error {
			return errors.Join(t.Close(), f.Close())
		}
	}

	return b, closeTrace, nil
}

func printSummary(zl zerolog.Logger, d *driver.Driver) {
	counts := d.Counts()

	for _, name := range counts.TaskNames() {
		c := counts.Count(name)
		zl.Info().
			Str("task", name).
			Uint64("runs", c.Runs).
			Uint64("declines", c.Declines).
			Uint64("panics", c.Panics).
			Msg("task summary")
	}

	zl.Info().
		Uint64("polls", d.Polls()).
		Uint64("busy_ticks", d.BusyTicks()).
		Msg("loop stopped")
}
