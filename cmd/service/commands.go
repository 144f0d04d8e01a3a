package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github-dashboard-sync/internal/config"
	"github-dashboard-sync/internal/database"
	custom_errors "github-dashboard-sync/internal/errors"
	"github-dashboard-sync/internal/syncer"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "service",
		Short:        "GitHub dashboard sync service",
		Long:         `Synchronizes repositories, issues, pull requests, commits and READMEs from GitHub into Postgres and serves them over HTTP.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(newServeCmd(), newSyncCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and run scheduled syncs",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, logLevel := setupLogger()
	cfg, err := loadConfig(logLevel)
	if err != nil {
		return err
	}
	logger.Info("Configuration loaded successfully")

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return run(ctx, app)
}

func newSyncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync and print the resulting run",
	}

	syncCmd.AddCommand(&cobra.Command{
		Use:   "full",
		Short: "Refresh every tracked repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, func(ctx context.Context, s *syncer.Syncer) (syncer.Result, error) {
				return s.RunFull(ctx)
			})
		},
	})

	incremental := &cobra.Command{
		Use:   "incremental",
		Short: "Refresh entities updated since a point in time",
		Long: `Refresh entities updated since a point in time.

Examples:
  # Use the configured lookback window
  service sync incremental

  # Everything updated since the start of August
  service sync incremental --since 2025-08-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := cmd.Flags().GetString("since")
			if err != nil {
				return fmt.Errorf("failed to get since flag: %w", err)
			}
			var since time.Time
			if raw != "" {
				since, err = time.Parse(time.RFC3339, raw)
				if err != nil {
					return fmt.Errorf("invalid --since %q, expected RFC3339: %w", raw, err)
				}
			}
			return runOnce(cmd, func(ctx context.Context, s *syncer.Syncer) (syncer.Result, error) {
				return s.RunIncremental(ctx, since)
			})
		},
	}
	incremental.Flags().String("since", "", "RFC3339 timestamp; defaults to now minus INCREMENTAL_LOOKBACK")
	syncCmd.AddCommand(incremental)

	return syncCmd
}

func runOnce(cmd *cobra.Command, fn func(context.Context, *syncer.Syncer) (syncer.Result, error)) error {
	logger, logLevel := setupLogger()
	cfg, err := loadConfig(logLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := fn(ctx, app.syncer)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if res.Status == syncer.StatusConflict {
		if err := enc.Encode(res.InProgress); err != nil {
			return err
		}
		return custom_errors.ErrLockHeld
	}
	return enc.Encode(res.Run)
}

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbURL, err := config.LoadDatabaseURL()
			if err != nil {
				return err
			}
			if err := database.MigrateUp(dbURL); err != nil {
				return fmt.Errorf("failed to migrate up: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert every migration",
		Long: `Revert every migration.
WARNING: This drops all synced data. Pass --yes to confirm.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return fmt.Errorf("failed to get yes flag: %w", err)
			}
			if !yes {
				return fmt.Errorf("refusing to migrate down without --yes")
			}
			dbURL, err := config.LoadDatabaseURL()
			if err != nil {
				return err
			}
			if err := database.MigrateDown(dbURL); err != nil {
				return fmt.Errorf("failed to migrate down: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations reverted")
			return nil
		},
	}
	down.Flags().Bool("yes", false, "Confirm the destructive migration")
	migrateCmd.AddCommand(down)

	return migrateCmd
}
