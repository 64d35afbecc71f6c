package roster

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/config"
	"lunchmanager.io/lunchmanager/internal/domain"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

// Orchestrator runs one sync pass over the selected SIS resources.
type Orchestrator struct {
	source powerschool.Client
	store  store.Store
	cfg    config.SyncConfig
	now    func() time.Time
}

// NewOrchestrator wires an orchestrator. It is safe to reuse across runs;
// per-run state (the identity cache) is created inside Run.
func NewOrchestrator(source powerschool.Client, st store.Store, cfg config.SyncConfig) *Orchestrator {
	return &Orchestrator{source: source, store: st, cfg: cfg, now: time.Now}
}

// Run executes the sync for one resource selection. A full run goes
// schools, then students, then staff: grades must exist before students
// reference them, and student profiles must exist before homeroom rosters
// can resolve their members. The first resource-level failure aborts the
// remainder of the run.
func (o *Orchestrator) Run(ctx context.Context, resource domain.Resource) (*domain.SyncSummary, error) {
	summary := &domain.SyncSummary{
		Resource:  resource,
		StartedAt: o.now(),
	}
	logger.Info("Starting sync run", zap.String("resource", string(resource)))

	resolver := NewIdentityResolver(o.store, o.cfg.EmailDomain)

	if resource == domain.ResourceAll || resource == domain.ResourceSchools {
		count, err := NewSchoolSyncer(o.source, o.store).Sync(ctx)
		summary.Schools = count
		if err != nil {
			return o.finish(summary), err
		}
	}

	if resource == domain.ResourceAll || resource == domain.ResourceStudents {
		count, err := NewStudentSyncer(o.source, o.store, resolver, o.cfg.StudentExpansions).Sync(ctx)
		summary.Students = count
		if err != nil {
			return o.finish(summary), err
		}
	}

	if resource == domain.ResourceAll || resource == domain.ResourceStaff {
		count, err := NewStaffSyncer(o.source, o.store, resolver).Sync(ctx)
		summary.Staff = count
		if err != nil {
			return o.finish(summary), err
		}
	}

	summary = o.finish(summary)
	logger.Info("Completed sync run",
		zap.String("resource", string(resource)),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		zap.Int("schools_retrieved", summary.Schools.Retrieved),
		zap.Int("students_retrieved", summary.Students.Retrieved),
		zap.Int("staff_retrieved", summary.Staff.Retrieved))
	return summary, nil
}

func (o *Orchestrator) finish(summary *domain.SyncSummary) *domain.SyncSummary {
	summary.FinishedAt = o.now()
	return summary
}
