// Package store provides persistence for the roster identity store.
//
// The sync engine depends on the narrow Store interface; Postgres backs it
// in production and MemoryStore backs engine tests. Writes are per-record
// with no surrounding batch transaction: a crash mid-run leaves a partially
// synced state, which is acceptable because every sync is idempotent and
// safely re-run from scratch.
package store

import (
	"context"
	"time"

	"lunchmanager.io/lunchmanager/internal/domain"
)

// SchoolUpsert carries the fields the schools sync owns. Only name and
// school number are authoritative from the SIS; the active flag is
// operator-owned and left untouched on update.
type SchoolUpsert struct {
	ID           int64
	Name         string
	SchoolNumber int64
}

// StaffProfileUpsert carries the staff profile fields one sync run owns,
// keyed by the staff DCID namespace.
type StaffProfileUpsert struct {
	DCID       int64
	FirstName  string
	LastName   string
	Phone      string
	Room       string
	UserNumber string
	LastSync   time.Time
}

// StudentProfileUpsert carries the student profile fields one sync run owns,
// keyed by the student DCID namespace.
type StudentProfileUpsert struct {
	DCID       int64
	FirstName  string
	LastName   string
	SchoolID   int64
	GradeID    string
	UserNumber string
	LastSync   time.Time
}

// AccountSpec is the lookup-or-create key for a user account: all four
// identity fields must match an existing account, otherwise a new one is
// created with the given password hash.
type AccountSpec struct {
	FirstName    string
	LastName     string
	Email        string
	Login        string
	PasswordHash string
}

// AccountUpdate rewrites an existing account's identity fields in place.
type AccountUpdate struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Login     string
	Active    bool
}

// RosterChange reports the before/after sizes of a roster replacement, so
// the destructive rebuild is auditable in logs.
type RosterChange struct {
	Before int
	After  int
}

// Store is the persistence boundary of the sync engine. Lookup misses
// return errors matching apperrors.ErrNotFound; the boolean results of the
// upsert methods report whether a new row was created.
type Store interface {
	// UpsertSchool creates or updates a school keyed by SIS id.
	UpsertSchool(ctx context.Context, rec SchoolUpsert) (domain.School, bool, error)

	// School fetches one school by SIS id.
	School(ctx context.Context, id int64) (domain.School, error)

	// ListActiveSchools lists schools the operator has marked active.
	ListActiveSchools(ctx context.Context) ([]domain.School, error)

	// UpsertGradeLevel creates or reassigns the catalog entry for a
	// numeric grade value. The catalog is global: value is the key and
	// the owning school is rewritten on every schools sync.
	UpsertGradeLevel(ctx context.Context, value int, schoolID int64) (domain.GradeLevel, bool, error)

	// GradeLevelByValue fetches a catalog entry by numeric value.
	GradeLevelByValue(ctx context.Context, value int) (domain.GradeLevel, error)

	// UpsertStaffProfile creates or updates a staff profile by staff DCID.
	UpsertStaffProfile(ctx context.Context, rec StaffProfileUpsert) (domain.Profile, bool, error)

	// UpsertStudentProfile creates or updates a student profile by
	// student DCID.
	UpsertStudentProfile(ctx context.Context, rec StudentProfileUpsert) (domain.Profile, bool, error)

	// StudentProfileByDCID fetches a student profile by student DCID.
	StudentProfileByDCID(ctx context.Context, dcid int64) (domain.Profile, error)

	// SetProfileGrade assigns or clears (nil) a profile's grade level.
	SetProfileGrade(ctx context.Context, profileID string, gradeID *string) error

	// ReplaceRoster atomically clears a staff member's roster and inserts
	// the given student profile ids. Prior membership is not preserved.
	ReplaceRoster(ctx context.Context, staffProfileID string, studentProfileIDs []string) (RosterChange, error)

	// Roster lists the student profile ids on a staff member's roster.
	Roster(ctx context.Context, staffProfileID string) ([]string, error)

	// Account fetches a user account by id.
	Account(ctx context.Context, id string) (domain.UserAccount, error)

	// FindOrCreateAccount returns the account matching spec's four
	// identity fields, creating it (active, with spec's password hash)
	// when absent.
	FindOrCreateAccount(ctx context.Context, spec AccountSpec) (domain.UserAccount, bool, error)

	// UpdateAccount rewrites an account's identity fields.
	UpdateAccount(ctx context.Context, upd AccountUpdate) error

	// LinkAccount attaches an account to a profile.
	LinkAccount(ctx context.Context, profileID, accountID string) error
}
