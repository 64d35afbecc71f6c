package roster

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/domain"
	apperrors "lunchmanager.io/lunchmanager/internal/pkg/errors"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

// RosterReconciler rebuilds a homeroom teacher's grade assignment and roster
// membership from one SIS roster snapshot.
type RosterReconciler struct {
	store store.Store
}

// NewRosterReconciler wires a reconciler.
func NewRosterReconciler(st store.Store) *RosterReconciler {
	return &RosterReconciler{store: st}
}

// Reconcile applies a roster snapshot to a staff profile.
//
// An empty snapshot clears the teacher's grade and leaves membership alone.
// A non-empty snapshot derives the grade from the first member reporting a
// non-blank grade level, then destructively replaces the membership with the
// students that resolve to known profiles. Members that do not resolve are
// dropped without a log line: the students sync owns creating them.
func (r *RosterReconciler) Reconcile(ctx context.Context, staff domain.Profile, entries []powerschool.RosterEntry) error {
	if len(entries) == 0 {
		if err := r.store.SetProfileGrade(ctx, staff.ID, nil); err != nil {
			return fmt.Errorf("clear grade for %s: %w", staff.DisplayName(), err)
		}
		return nil
	}

	gradeID := r.deriveGrade(ctx, staff, entries)
	if err := r.store.SetProfileGrade(ctx, staff.ID, gradeID); err != nil {
		return fmt.Errorf("set grade for %s: %w", staff.DisplayName(), err)
	}

	var memberIDs []string
	for _, entry := range entries {
		dcid, err := strconv.ParseInt(entry.DCID, 10, 64)
		if err != nil {
			continue
		}
		student, err := r.store.StudentProfileByDCID(ctx, dcid)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("resolve roster member %s: %w", entry.DCID, err)
		}
		memberIDs = append(memberIDs, student.ID)
	}

	change, err := r.store.ReplaceRoster(ctx, staff.ID, memberIDs)
	if err != nil {
		return fmt.Errorf("replace roster for %s: %w", staff.DisplayName(), err)
	}
	logger.Info("Rebuilt homeroom roster",
		zap.String("teacher", staff.DisplayName()),
		zap.Int("before", change.Before),
		zap.Int("after", change.After))
	return nil
}

// deriveGrade picks the teacher's grade from the first member with a
// non-blank grade level. A roster with no usable grade value yields nil and
// a warning; the membership rebuild proceeds either way.
func (r *RosterReconciler) deriveGrade(ctx context.Context, staff domain.Profile, entries []powerschool.RosterEntry) *string {
	for _, entry := range entries {
		raw := strings.TrimSpace(entry.GradeLevel)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn("Homeroom roster reports unparseable grade level",
				zap.String("teacher", staff.DisplayName()),
				zap.String("grade_level", entry.GradeLevel))
			return nil
		}
		grade, err := r.store.GradeLevelByValue(ctx, value)
		if err != nil {
			logger.Warn("Homeroom grade level missing from catalog",
				zap.String("teacher", staff.DisplayName()),
				zap.Int("grade_level", value),
				zap.Error(err))
			return nil
		}
		return &grade.ID
	}

	logger.Warn("Homeroom roster has no grade level", zap.String("teacher", staff.DisplayName()))
	return nil
}
