package roster

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/domain"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

// SchoolSyncer mirrors the SIS school list into the store and maintains the
// grade level catalog for schools the operator has activated.
type SchoolSyncer struct {
	source powerschool.Client
	store  store.Store
}

// NewSchoolSyncer wires a school syncer.
func NewSchoolSyncer(source powerschool.Client, st store.Store) *SchoolSyncer {
	return &SchoolSyncer{source: source, store: st}
}

// Sync upserts every school the SIS reports. Grade levels are materialized
// only for schools that already existed and are marked active: a newly
// mirrored school contributes no grades until an operator activates it and a
// later run revisits it.
func (s *SchoolSyncer) Sync(ctx context.Context) (domain.ResourceCount, error) {
	var count domain.ResourceCount

	recs, err := s.source.Schools(ctx)
	if err != nil {
		return count, fmt.Errorf("fetch schools: %w", err)
	}
	count.Retrieved = len(recs)

	for _, rec := range recs {
		school, created, err := s.store.UpsertSchool(ctx, store.SchoolUpsert{
			ID:           rec.ID,
			Name:         rec.Name,
			SchoolNumber: rec.SchoolNumber,
		})
		if err != nil {
			logger.Error("Failed to upsert school",
				zap.Int64("school_id", rec.ID),
				zap.String("name", rec.Name),
				zap.Error(err))
			count.Skipped++
			continue
		}
		if created {
			count.Created++
			continue
		}
		if !school.Active {
			continue
		}
		if err := s.materializeGrades(ctx, school, rec.LowGrade, rec.HighGrade); err != nil {
			logger.Error("Failed to materialize grade levels",
				zap.Int64("school_id", school.ID),
				zap.String("name", school.Name),
				zap.Error(err))
			count.Skipped++
		}
	}

	logger.Info("Synced schools",
		zap.Int("retrieved", count.Retrieved),
		zap.Int("created", count.Created))
	return count, nil
}

// materializeGrades upserts one catalog entry per grade in the school's
// inclusive [low, high] span. Values are global keys, so a grade served by
// two active schools ends up owned by whichever synced last.
func (s *SchoolSyncer) materializeGrades(ctx context.Context, school domain.School, low, high int) error {
	for v := low; v <= high; v++ {
		if _, _, err := s.store.UpsertGradeLevel(ctx, v, school.ID); err != nil {
			return fmt.Errorf("grade %d: %w", v, err)
		}
	}
	return nil
}
