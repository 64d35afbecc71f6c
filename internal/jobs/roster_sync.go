// Package jobs defines River Queue job types for background sync runs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/config"
	"lunchmanager.io/lunchmanager/internal/domain"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/roster"
	"lunchmanager.io/lunchmanager/internal/store"
)

// RosterSyncArgs requests one sync run over a resource selection ("all",
// "schools", "staff" or "students").
type RosterSyncArgs struct {
	Resource string `json:"resource"`
}

// Kind returns the job kind identifier for roster sync runs.
func (RosterSyncArgs) Kind() string { return "roster_sync" }

// InsertOpts keeps at most one pending or running sync per resource. Runs
// must not overlap: the engine's upserts race under concurrency.
func (RosterSyncArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByQueue: true,
			ByArgs:  true,
		},
	}
}

// RosterSyncWorker executes sync runs enqueued by the scheduler or the CLI.
type RosterSyncWorker struct {
	river.WorkerDefaults[RosterSyncArgs]
	source powerschool.Client
	store  store.Store
	cfg    config.SyncConfig
}

// NewRosterSyncWorker creates a sync worker.
func NewRosterSyncWorker(source powerschool.Client, st store.Store, cfg config.SyncConfig) *RosterSyncWorker {
	return &RosterSyncWorker{
		source: source,
		store:  st,
		cfg:    cfg,
	}
}

// Work runs the orchestrator for the requested resource. A source failure
// returns an error so River retries; a malformed resource cancels the job
// outright since retrying cannot fix the arguments.
func (w *RosterSyncWorker) Work(ctx context.Context, job *river.Job[RosterSyncArgs]) error {
	if w == nil || w.source == nil || w.store == nil {
		return fmt.Errorf("roster sync worker is not initialized")
	}

	resource, err := domain.ParseResource(job.Args.Resource)
	if err != nil {
		return river.JobCancel(fmt.Errorf("roster sync args: %w", err))
	}

	summary, err := roster.NewOrchestrator(w.source, w.store, w.cfg).Run(ctx, resource)
	if err != nil {
		return fmt.Errorf("sync run %s: %w", resource, err)
	}

	logger.Info("Scheduled sync completed",
		zap.String("resource", string(resource)),
		zap.Int("schools_retrieved", summary.Schools.Retrieved),
		zap.Int("students_retrieved", summary.Students.Retrieved),
		zap.Int("staff_retrieved", summary.Staff.Retrieved),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return nil
}

// PeriodicSyncJobs builds the periodic job set for the worker process: one
// full sync per interval, with a run at startup to recover from missed
// schedules.
func PeriodicSyncJobs(interval time.Duration) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RosterSyncArgs{Resource: string(domain.ResourceAll)}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
