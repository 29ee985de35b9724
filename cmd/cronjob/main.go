package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"rentops-backend/internal/app"
	"rentops-backend/internal/jobs"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/scheduler"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "cronjob",
		Short: "RentOps scheduled jobs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(listCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newJobRunner loads configuration and wires the services the jobs need.
func newJobRunner(ctx context.Context) (*jobs.JobRunner, func(), error) {
	cfg, err := app.LoadConfig(ctx, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentOps cronjob runner...", "log_level", cfg.Log.Level)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	runner := jobs.NewJobRunner(&jobs.Services{
		Maintenance: a.Maintenance,
		Invoices:    a.Invoices,
		Billing:     a.Billing,
	}, cfg)
	return runner, a.Close, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run [job]",
		Short:     "Run one job once and exit",
		Long:      "Run one job once and exit. Jobs: " + strings.Join(jobs.JobNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.JobNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner, closeFn, err := newJobRunner(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			logger.Info("Running job once", "job", args[0])
			return runner.Run(ctx, args[0])
		},
	}
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run all jobs on their cron schedules until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner, closeFn, err := newJobRunner(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			cronScheduler, err := scheduler.NewScheduler(runner)
			if err != nil {
				return err
			}
			cronScheduler.Start()
			logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

			<-ctx.Done()

			logger.Info("Shutting down cronjob scheduler...")
			cronScheduler.Stop()
			logger.Info("Cronjob scheduler stopped. Goodbye!")
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available jobs",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range jobs.JobNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
