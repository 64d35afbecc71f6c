package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/domain"
	apperrors "lunchmanager.io/lunchmanager/internal/pkg/errors"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

const (
	// fallbackPhone is the district's front-desk extension, used when a
	// staff record carries no school phone.
	fallbackPhone = "x7900"

	// fallbackRoom marks staff with no homeroom assignment.
	fallbackRoom = "n/a"
)

// StaffSyncer mirrors active staff into profiles and accounts, then
// reconciles each staff member's homeroom roster.
type StaffSyncer struct {
	source     powerschool.Client
	store      store.Store
	resolver   *IdentityResolver
	reconciler *RosterReconciler
	now        func() time.Time
}

// NewStaffSyncer wires a staff syncer for one run.
func NewStaffSyncer(source powerschool.Client, st store.Store, resolver *IdentityResolver) *StaffSyncer {
	return &StaffSyncer{
		source:     source,
		store:      st,
		resolver:   resolver,
		reconciler: NewRosterReconciler(st),
		now:        time.Now,
	}
}

// Sync processes every active staff record. A source failure aborts the run;
// a failure on a single record skips that record and keeps going.
func (s *StaffSyncer) Sync(ctx context.Context) (domain.ResourceCount, error) {
	var count domain.ResourceCount

	recs, err := s.source.ActiveStaff(ctx)
	if err != nil {
		return count, fmt.Errorf("fetch active staff: %w", err)
	}
	count.Retrieved = len(recs)

	for _, rec := range recs {
		created, err := s.syncOne(ctx, rec)
		if err != nil {
			if errors.Is(err, apperrors.ErrSourceUnavailable) {
				return count, fmt.Errorf("staff %d: %w", rec.DCID, err)
			}
			logger.Error("Failed to sync staff member",
				zap.Int64("dcid", rec.DCID),
				zap.String("name", rec.FirstName+" "+rec.LastName),
				zap.Error(err))
			count.Skipped++
			continue
		}
		if created {
			count.Created++
		}
	}

	logger.Info("Synced staff",
		zap.Int("retrieved", count.Retrieved),
		zap.Int("created", count.Created),
		zap.Int("skipped", count.Skipped))
	return count, nil
}

func (s *StaffSyncer) syncOne(ctx context.Context, rec powerschool.StaffRecord) (bool, error) {
	profile, created, err := s.store.UpsertStaffProfile(ctx, store.StaffProfileUpsert{
		DCID:       rec.DCID,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		Phone:      staffPhone(rec.SchoolPhone),
		Room:       staffRoom(rec.Homeroom),
		UserNumber: rec.TeacherNumber,
		LastSync:   s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("upsert profile: %w", err)
	}

	email := s.resolver.StaffEmail(rec)
	if err := s.resolver.Link(ctx, profile, created, rec.FirstName, rec.LastName, email); err != nil {
		return created, err
	}

	// Every staff member gets a roster pass, homeroom teacher or not. A
	// teacher who lost their homeroom since the last run needs the empty
	// snapshot to clear their stale grade.
	entries, err := s.source.HomeroomRoster(ctx, rec.DCID)
	if err != nil {
		return created, fmt.Errorf("fetch homeroom roster: %w", err)
	}
	if err := s.reconciler.Reconcile(ctx, profile, entries); err != nil {
		return created, err
	}
	return created, nil
}

// staffPhone derives the extension shown in the ordering app: "x" plus the
// last four characters of the school phone, or the front desk when the SIS
// omits the field.
func staffPhone(schoolPhone *string) string {
	if schoolPhone == nil {
		return fallbackPhone
	}
	p := *schoolPhone
	if len(p) > 4 {
		p = p[len(p)-4:]
	}
	return "x" + p
}

func staffRoom(homeroom *string) string {
	if homeroom == nil {
		return fallbackRoom
	}
	return *homeroom
}
