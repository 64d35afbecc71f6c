package roster

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/domain"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

// StudentSyncer mirrors the active students of every active school into
// profiles and accounts.
type StudentSyncer struct {
	source     powerschool.Client
	store      store.Store
	resolver   *IdentityResolver
	expansions string
	now        func() time.Time
}

// NewStudentSyncer wires a student syncer for one run. expansions is the
// comma-separated field-expansion list passed through to the SIS.
func NewStudentSyncer(source powerschool.Client, st store.Store, resolver *IdentityResolver, expansions string) *StudentSyncer {
	return &StudentSyncer{
		source:     source,
		store:      st,
		resolver:   resolver,
		expansions: expansions,
		now:        time.Now,
	}
}

// Sync walks the active schools and processes each school's student body. A
// source failure aborts the run; a record whose enrollment cannot be
// resolved against the store is skipped.
//
// Students sync must run after schools sync: a student's grade level has to
// exist in the catalog before the student can be stored.
func (s *StudentSyncer) Sync(ctx context.Context) (domain.ResourceCount, error) {
	var total domain.ResourceCount

	schools, err := s.store.ListActiveSchools(ctx)
	if err != nil {
		return total, fmt.Errorf("list active schools: %w", err)
	}

	for _, school := range schools {
		count, err := s.syncSchool(ctx, school)
		total.Add(count)
		if err != nil {
			return total, fmt.Errorf("school %q: %w", school.Name, err)
		}
	}
	return total, nil
}

func (s *StudentSyncer) syncSchool(ctx context.Context, school domain.School) (domain.ResourceCount, error) {
	var count domain.ResourceCount

	recs, err := s.source.ActiveStudents(ctx, school.ID, s.expansions)
	if err != nil {
		return count, fmt.Errorf("fetch active students: %w", err)
	}
	count.Retrieved = len(recs)

	for _, rec := range recs {
		created, err := s.syncOne(ctx, rec)
		if err != nil {
			logger.Error("Failed to sync student",
				zap.Int64("student_id", rec.ID),
				zap.String("name", rec.Name.First+" "+rec.Name.Last),
				zap.String("school", school.Name),
				zap.Error(err))
			count.Skipped++
			continue
		}
		if created {
			count.Created++
		}
	}

	logger.Info("Synced students",
		zap.String("school", school.Name),
		zap.Int("retrieved", count.Retrieved),
		zap.Int("created", count.Created),
		zap.Int("skipped", count.Skipped))
	return count, nil
}

func (s *StudentSyncer) syncOne(ctx context.Context, rec powerschool.StudentRecord) (bool, error) {
	// The grade level must already be cataloged and the enrolled school
	// already mirrored. Either miss is fatal to this record: storing a
	// student with a dangling enrollment would corrupt roster lookups.
	grade, err := s.store.GradeLevelByValue(ctx, rec.Enrollment.GradeLevel)
	if err != nil {
		return false, fmt.Errorf("grade level %d: %w", rec.Enrollment.GradeLevel, err)
	}
	if _, err := s.store.School(ctx, rec.Enrollment.SchoolID); err != nil {
		return false, fmt.Errorf("school %d: %w", rec.Enrollment.SchoolID, err)
	}

	profile, created, err := s.store.UpsertStudentProfile(ctx, store.StudentProfileUpsert{
		DCID:       rec.ID,
		FirstName:  rec.Name.First,
		LastName:   rec.Name.Last,
		SchoolID:   rec.Enrollment.SchoolID,
		GradeID:    grade.ID,
		UserNumber: rec.LocalID,
		LastSync:   s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("upsert profile: %w", err)
	}

	email := s.resolver.StudentEmail(rec)
	if err := s.resolver.Link(ctx, profile, created, rec.Name.First, rec.Name.Last, email); err != nil {
		return created, err
	}
	return created, nil
}
