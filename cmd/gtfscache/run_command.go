package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"gtfscache/internal/config"
	"gtfscache/internal/governor"
	"gtfscache/internal/logging"
	"gtfscache/internal/pipeline"
	"gtfscache/internal/progress"
)

func newRunCommand(configFlag *string) *cobra.Command {
	var cpuLimit float64
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run <input> <output>",
		Short: "Transcode a stop_times file into a MessagePack precache",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cpu-limit") {
				cfg.Limits.CPUPercent = cpuLimit
			}
			if quiet {
				cfg.Progress.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			logger = logger.With("run_id", uuid.NewString())

			gov, err := governor.New(cfg.Limits.CPUPercent)
			if err != nil {
				return err
			}

			opts := pipeline.Options{
				Logger:   logger,
				Governor: gov,
			}

			var renderer *progressRenderer
			var spinner *countSpinner
			if cfg.Progress.Enabled {
				renderer = newProgressRenderer(os.Stdout)
				spinner = newCountSpinner()
				if spinner != nil {
					opts.CountProgress = spinner.set
				}
				opts.ProgressInterval = time.Duration(cfg.Progress.IntervalSeconds) * time.Second
				opts.ProgressSink = func(s progress.Snapshot) {
					spinner.clear()
					renderer.render(s)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting run",
				"input", args[0],
				"output", args[1],
				"cpu_limit", cfg.Limits.CPUPercent)

			result, err := pipeline.New(opts).Run(ctx, args[0], args[1])
			spinner.clear()
			if renderer != nil {
				renderer.finish()
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result))
			return nil
		},
	}

	cmd.Flags().Float64Var(&cpuLimit, "cpu-limit", config.Default().Limits.CPUPercent, "Maximum CPU utilization percent, in (0, 100]")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Disable progress output")
	return cmd
}

// countSpinner wraps the indeterminate counting-pass bar. Clearing is
// once-only so both the first streaming snapshot and the run epilogue can
// erase it without duplicating terminal writes; a nil spinner is a no-op.
type countSpinner struct {
	bar  *progressbar.ProgressBar
	once sync.Once
}

// newCountSpinner returns a spinner for the counting pass, or nil when
// stderr is not a terminal.
func newCountSpinner() *countSpinner {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return nil
	}
	return newCountSpinnerWriter(os.Stderr)
}

func newCountSpinnerWriter(w io.Writer) *countSpinner {
	return &countSpinner{
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription("counting rows"),
			progressbar.OptionSetWriter(w),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		),
	}
}

func (s *countSpinner) set(rows int64) {
	if s == nil {
		return
	}
	_ = s.bar.Set64(rows)
}

func (s *countSpinner) clear() {
	if s == nil {
		return
	}
	s.once.Do(func() { _ = s.bar.Clear() })
}
