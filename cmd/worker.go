package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start long-running background workers such as the settlement reconciler.`,
}

var reconcileWorkerCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Verify settlement of paid gateway transfers",
	Long:  `Periodically asks the gateway whether paid transfers settled and annotates each payment with the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReconcileWorker()
	},
}

var (
	reconcileInterval time.Duration
	reconcileOnce     bool
)

func startReconcileWorker() {
	cfg, logger := mustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	interval := cfg.Reconcile.Interval
	if reconcileInterval > 0 {
		interval = reconcileInterval
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	sweep := func() {
		summary, err := deps.Sweeper.Run(ctx)
		if err != nil {
			logger.Error("settlement sweep failed", "error", err)
			return
		}
		logger.Info("settlement sweep finished",
			"checked", summary.Checked,
			"settled", summary.Settled,
			"failed", summary.Failed,
			"pending", summary.Pending,
			"errors", summary.Errors,
			"skipped", summary.Skipped)
	}

	sweep()
	if reconcileOnce {
		return
	}

	logger.Info("reconcile worker is running. Press Ctrl+C to stop.", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("received signal, shutting down reconcile worker")
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func init() {
	reconcileWorkerCmd.Flags().DurationVar(&reconcileInterval, "interval", 0, "Sweep interval (overrides config)")
	reconcileWorkerCmd.Flags().BoolVar(&reconcileOnce, "once", false, "Run a single sweep and exit")

	workerCmd.AddCommand(reconcileWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
