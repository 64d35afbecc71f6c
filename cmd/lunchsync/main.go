// Package main provides the lunchsync command: roster synchronization
// between the PowerSchool SIS and the lunch ordering database.
//
// Subcommands: sync (one-shot run), worker (scheduled runs via River) and
// migrate (schema management).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/config"
	"lunchmanager.io/lunchmanager/internal/domain"
	"lunchmanager.io/lunchmanager/internal/infrastructure"
	"lunchmanager.io/lunchmanager/internal/jobs"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/roster"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lunchsync: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lunchsync",
		Short:         "Roster synchronization for the lunch ordering system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSyncCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// bootstrap loads config and initializes logging, shared by every
// subcommand.
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func sourceClient(cfg *config.Config, fixturePath string) (powerschool.Client, error) {
	if fixturePath != "" {
		src, err := powerschool.LoadFixture(fixturePath)
		if err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		logger.Info("Using fixture snapshot instead of live SIS",
			zap.String("path", fixturePath))
		return src, nil
	}
	return powerschool.NewRESTClient(cfg.PowerSchool), nil
}

func newSyncCmd() *cobra.Command {
	var fixturePath string

	cmd := &cobra.Command{
		Use:   "sync [resource]",
		Short: "Run one synchronization pass (all, schools, staff or students)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			var name string
			if len(args) == 1 {
				name = args[0]
			}
			resource, err := domain.ParseResource(name)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer db.Close()

			src, err := sourceClient(cfg, fixturePath)
			if err != nil {
				return err
			}

			summary, err := roster.NewOrchestrator(src, db.Store, cfg.Sync).Run(ctx, resource)
			if err != nil {
				return fmt.Errorf("sync %s: %w", resource, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"sync %s completed in %s\n  schools:  %d retrieved, %d created\n  students: %d retrieved, %d created, %d skipped\n  staff:    %d retrieved, %d created, %d skipped\n",
				summary.Resource,
				summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
				summary.Schools.Retrieved, summary.Schools.Created,
				summary.Students.Retrieved, summary.Students.Created, summary.Students.Skipped,
				summary.Staff.Retrieved, summary.Staff.Created, summary.Staff.Skipped,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "",
		"yaml snapshot to sync from instead of the live SIS")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	var fixturePath string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background worker with scheduled full syncs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer db.Close()

			src, err := sourceClient(cfg, fixturePath)
			if err != nil {
				return err
			}

			workers := river.NewWorkers()
			river.AddWorker(workers, jobs.NewRosterSyncWorker(src, db.Store, cfg.Sync))
			if err := db.InitRiverClient(workers, cfg.River); err != nil {
				return err
			}
			db.RiverClient.PeriodicJobs().AddMany(jobs.PeriodicSyncJobs(cfg.River.SyncInterval))

			if err := db.RiverClient.Start(ctx); err != nil {
				return fmt.Errorf("start river client: %w", err)
			}
			logger.Info("Worker started",
				zap.Duration("sync_interval", cfg.River.SyncInterval))

			<-ctx.Done()
			logger.Info("Shutting down worker")

			stopCtx := context.Background()
			if err := db.RiverClient.Stop(stopCtx); err != nil {
				return fmt.Errorf("stop river client: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "",
		"yaml snapshot to sync from instead of the live SIS")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Manage the roster database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer db.Close()

			return db.Migrate(ctx, args[0])
		},
	}
}
