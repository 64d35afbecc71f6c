package roster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunchmanager.io/lunchmanager/internal/domain"
	"lunchmanager.io/lunchmanager/internal/store"
)

const testDomain = "nrcaknights.com"

func strPtr(s string) *string { return &s }

func seedSchool(t *testing.T, st *store.MemoryStore, id int64, active bool) domain.School {
	t.Helper()
	school, _, err := st.UpsertSchool(context.Background(), store.SchoolUpsert{
		ID:           id,
		Name:         fmt.Sprintf("School %d", id),
		SchoolNumber: id,
	})
	require.NoError(t, err)
	if active {
		require.NoError(t, st.SetSchoolActive(id, true))
		school.Active = true
	}
	return school
}

func seedGrades(t *testing.T, st *store.MemoryStore, schoolID int64, low, high int) map[int]domain.GradeLevel {
	t.Helper()
	grades := make(map[int]domain.GradeLevel)
	for v := low; v <= high; v++ {
		grade, _, err := st.UpsertGradeLevel(context.Background(), v, schoolID)
		require.NoError(t, err)
		grades[v] = grade
	}
	return grades
}

func seedStudentProfile(t *testing.T, st *store.MemoryStore, dcid, schoolID int64, gradeID string) domain.Profile {
	t.Helper()
	profile, _, err := st.UpsertStudentProfile(context.Background(), store.StudentProfileUpsert{
		DCID:       dcid,
		FirstName:  "Student",
		LastName:   fmt.Sprintf("Number%d", dcid),
		SchoolID:   schoolID,
		GradeID:    gradeID,
		UserNumber: fmt.Sprintf("L%d", dcid),
		LastSync:   time.Now(),
	})
	require.NoError(t, err)
	return profile
}

func seedStaffProfile(t *testing.T, st *store.MemoryStore, dcid int64) domain.Profile {
	t.Helper()
	profile, _, err := st.UpsertStaffProfile(context.Background(), store.StaffProfileUpsert{
		DCID:       dcid,
		FirstName:  "Teacher",
		LastName:   fmt.Sprintf("Number%d", dcid),
		Phone:      "x1234",
		Room:       "101",
		UserNumber: fmt.Sprintf("T%d", dcid),
		LastSync:   time.Now(),
	})
	require.NoError(t, err)
	return profile
}
