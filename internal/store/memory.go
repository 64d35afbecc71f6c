package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lunchmanager.io/lunchmanager/internal/domain"
	apperrors "lunchmanager.io/lunchmanager/internal/pkg/errors"
)

// MemoryStore implements Store in process memory. It backs engine tests and
// fixture dry-runs; behavior mirrors PostgresStore, including not-found
// sentinels and created flags.
type MemoryStore struct {
	mu       sync.RWMutex
	schools  map[int64]domain.School
	grades   map[int]domain.GradeLevel // key: numeric value (global catalog)
	profiles map[string]domain.Profile
	staff    map[int64]string // staff DCID -> profile id
	students map[int64]string // student DCID -> profile id
	accounts map[string]domain.UserAccount
	rosters  map[string]map[string]struct{} // staff profile id -> student profile ids
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schools:  make(map[int64]domain.School),
		grades:   make(map[int]domain.GradeLevel),
		profiles: make(map[string]domain.Profile),
		staff:    make(map[int64]string),
		students: make(map[int64]string),
		accounts: make(map[string]domain.UserAccount),
		rosters:  make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

// SetSchoolActive flips the operator-owned active flag, which the sync
// engine itself never writes. Test helper standing in for the admin UI.
func (s *MemoryStore) SetSchoolActive(id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	school, ok := s.schools[id]
	if !ok {
		return apperrors.ErrSchoolNotFoundf(id)
	}
	school.Active = active
	s.schools[id] = school
	return nil
}

// SetAccountActive flips an account's active flag directly. Test helper for
// the reactivation path.
func (s *MemoryStore) SetAccountActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return apperrors.NotFound(apperrors.CodeAccountNotFound, "no account for id")
	}
	acct.Active = active
	s.accounts[id] = acct
	return nil
}

// Profile returns a profile by id. Test helper.
func (s *MemoryStore) Profile(id string) (domain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	return p, ok
}

// Counts reports table sizes for idempotence assertions.
func (s *MemoryStore) Counts() (schools, grades, profiles, accounts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.schools), len(s.grades), len(s.profiles), len(s.accounts)
}

func (s *MemoryStore) UpsertSchool(_ context.Context, rec SchoolUpsert) (domain.School, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if school, ok := s.schools[rec.ID]; ok {
		school.Name = rec.Name
		school.SchoolNumber = rec.SchoolNumber
		school.UpdatedAt = s.now()
		s.schools[rec.ID] = school
		return school, false, nil
	}

	school := domain.School{
		ID:           rec.ID,
		Name:         rec.Name,
		SchoolNumber: rec.SchoolNumber,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	s.schools[rec.ID] = school
	return school, true, nil
}

func (s *MemoryStore) School(_ context.Context, id int64) (domain.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	school, ok := s.schools[id]
	if !ok {
		return domain.School{}, apperrors.ErrSchoolNotFoundf(id)
	}
	return school, nil
}

func (s *MemoryStore) ListActiveSchools(_ context.Context) ([]domain.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var schools []domain.School
	for _, school := range s.schools {
		if school.Active {
			schools = append(schools, school)
		}
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].ID < schools[j].ID })
	return schools, nil
}

func (s *MemoryStore) UpsertGradeLevel(_ context.Context, value int, schoolID int64) (domain.GradeLevel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if grade, ok := s.grades[value]; ok {
		grade.SchoolID = schoolID
		grade.UpdatedAt = s.now()
		s.grades[value] = grade
		return grade, false, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.GradeLevel{}, false, fmt.Errorf("new grade id: %w", err)
	}
	grade := domain.GradeLevel{
		ID:        id.String(),
		Value:     value,
		SchoolID:  schoolID,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	s.grades[value] = grade
	return grade, true, nil
}

func (s *MemoryStore) GradeLevelByValue(_ context.Context, value int) (domain.GradeLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grade, ok := s.grades[value]
	if !ok {
		return domain.GradeLevel{}, apperrors.ErrGradeLevelNotFoundf(value)
	}
	return grade, nil
}

func (s *MemoryStore) UpsertStaffProfile(_ context.Context, rec StaffProfileUpsert) (domain.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastSync := rec.LastSync
	if id, ok := s.staff[rec.DCID]; ok {
		p := s.profiles[id]
		p.FirstName = rec.FirstName
		p.LastName = rec.LastName
		p.Phone = rec.Phone
		p.Room = rec.Room
		p.Active = true
		p.UserNumber = rec.UserNumber
		p.LastSync = &lastSync
		s.profiles[id] = p
		return p, false, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("new profile id: %w", err)
	}
	dcid := rec.DCID
	p := domain.Profile{
		ID:         id.String(),
		Role:       domain.RoleStaff,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		StaffDCID:  &dcid,
		Phone:      rec.Phone,
		Room:       rec.Room,
		Active:     true,
		UserNumber: rec.UserNumber,
		LastSync:   &lastSync,
	}
	s.profiles[p.ID] = p
	s.staff[rec.DCID] = p.ID
	return p, true, nil
}

func (s *MemoryStore) UpsertStudentProfile(_ context.Context, rec StudentProfileUpsert) (domain.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastSync := rec.LastSync
	schoolID := rec.SchoolID
	gradeID := rec.GradeID
	if id, ok := s.students[rec.DCID]; ok {
		p := s.profiles[id]
		p.FirstName = rec.FirstName
		p.LastName = rec.LastName
		p.SchoolID = &schoolID
		p.GradeID = &gradeID
		p.Active = true
		p.UserNumber = rec.UserNumber
		p.LastSync = &lastSync
		s.profiles[id] = p
		return p, false, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("new profile id: %w", err)
	}
	dcid := rec.DCID
	p := domain.Profile{
		ID:          id.String(),
		Role:        domain.RoleStudent,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		StudentDCID: &dcid,
		SchoolID:    &schoolID,
		GradeID:     &gradeID,
		Active:      true,
		UserNumber:  rec.UserNumber,
		LastSync:    &lastSync,
	}
	s.profiles[p.ID] = p
	s.students[rec.DCID] = p.ID
	return p, true, nil
}

func (s *MemoryStore) StudentProfileByDCID(_ context.Context, dcid int64) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.students[dcid]
	if !ok {
		return domain.Profile{}, apperrors.ErrProfileNotFoundf(dcid)
	}
	return s.profiles[id], nil
}

func (s *MemoryStore) SetProfileGrade(_ context.Context, profileID string, gradeID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return apperrors.NotFound(apperrors.CodeProfileNotFound, "no profile for id")
	}
	p.GradeID = gradeID
	s.profiles[profileID] = p
	return nil
}

func (s *MemoryStore) ReplaceRoster(_ context.Context, staffProfileID string, studentProfileIDs []string) (RosterChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change := RosterChange{Before: len(s.rosters[staffProfileID])}
	members := make(map[string]struct{}, len(studentProfileIDs))
	for _, id := range studentProfileIDs {
		members[id] = struct{}{}
	}
	s.rosters[staffProfileID] = members
	change.After = len(members)
	return change, nil
}

func (s *MemoryStore) Roster(_ context.Context, staffProfileID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id := range s.rosters[staffProfileID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Account(_ context.Context, id string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return domain.UserAccount{}, apperrors.NotFound(apperrors.CodeAccountNotFound, "no account for id")
	}
	return acct, nil
}

func (s *MemoryStore) FindOrCreateAccount(_ context.Context, spec AccountSpec) (domain.UserAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.accounts {
		if acct.FirstName == spec.FirstName && acct.LastName == spec.LastName &&
			acct.Email == spec.Email && acct.Login == spec.Login {
			return acct, false, nil
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.UserAccount{}, false, fmt.Errorf("new account id: %w", err)
	}
	acct := domain.UserAccount{
		ID:        id.String(),
		FirstName: spec.FirstName,
		LastName:  spec.LastName,
		Email:     spec.Email,
		Login:     spec.Login,
		Active:    true,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	s.accounts[acct.ID] = acct
	return acct, true, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, upd AccountUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[upd.ID]
	if !ok {
		return apperrors.NotFound(apperrors.CodeAccountNotFound, "no account for id")
	}
	acct.FirstName = upd.FirstName
	acct.LastName = upd.LastName
	acct.Email = upd.Email
	acct.Login = upd.Login
	acct.Active = upd.Active
	acct.UpdatedAt = s.now()
	s.accounts[upd.ID] = acct
	return nil
}

func (s *MemoryStore) LinkAccount(_ context.Context, profileID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return apperrors.NotFound(apperrors.CodeProfileNotFound, "no profile for id")
	}
	if _, ok := s.accounts[accountID]; !ok {
		return apperrors.NotFound(apperrors.CodeAccountNotFound, "no account for id")
	}
	p.AccountID = &accountID
	s.profiles[profileID] = p
	return nil
}

var _ Store = (*MemoryStore)(nil)
