package powerschool

import (
	"context"
	"sync"

	apperrors "lunchmanager.io/lunchmanager/internal/pkg/errors"
)

// MockClient implements Client for testing and fixture-driven dry runs
// without a reachable SIS.
type MockClient struct {
	mu       sync.RWMutex
	schools  []SchoolRecord
	staff    []StaffRecord
	students map[int64][]StudentRecord // key: school id
	rosters  map[int64][]RosterEntry   // key: teacher dcid

	// failWith, when set, is returned by every method; used to exercise
	// the fatal transport-failure path.
	failWith error
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		students: make(map[int64][]StudentRecord),
		rosters:  make(map[int64][]RosterEntry),
	}
}

// SeedSchools populates the mock district school list.
func (c *MockClient) SeedSchools(schools []SchoolRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schools = append(c.schools, schools...)
}

// SeedStaff populates the mock active staff list.
func (c *MockClient) SeedStaff(staff []StaffRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staff = append(c.staff, staff...)
}

// SeedStudents populates the mock student list of one school.
func (c *MockClient) SeedStudents(schoolID int64, students []StudentRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.students[schoolID] = append(c.students[schoolID], students...)
}

// SeedRoster populates the mock homeroom roster of one teacher.
func (c *MockClient) SeedRoster(teacherDCID int64, roster []RosterEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rosters[teacherDCID] = append(c.rosters[teacherDCID], roster...)
}

// FailWith makes every subsequent call return err wrapped as a source
// failure. Pass nil to clear.
func (c *MockClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}

// Reset clears all mock data and any injected failure.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schools = nil
	c.staff = nil
	c.students = make(map[int64][]StudentRecord)
	c.rosters = make(map[int64][]RosterEntry)
	c.failWith = nil
}

func (c *MockClient) Schools(_ context.Context) ([]SchoolRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failWith != nil {
		return nil, apperrors.SourceFailure(c.failWith, "list schools")
	}
	return append([]SchoolRecord(nil), c.schools...), nil
}

func (c *MockClient) ActiveStaff(_ context.Context) ([]StaffRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failWith != nil {
		return nil, apperrors.SourceFailure(c.failWith, "list active staff")
	}
	return append([]StaffRecord(nil), c.staff...), nil
}

func (c *MockClient) ActiveStudents(_ context.Context, schoolID int64, _ string) ([]StudentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failWith != nil {
		return nil, apperrors.SourceFailure(c.failWith, "list students")
	}
	return append([]StudentRecord(nil), c.students[schoolID]...), nil
}

func (c *MockClient) HomeroomRoster(_ context.Context, teacherDCID int64) ([]RosterEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failWith != nil {
		return nil, apperrors.SourceFailure(c.failWith, "homeroom roster")
	}
	return append([]RosterEntry(nil), c.rosters[teacherDCID]...), nil
}
