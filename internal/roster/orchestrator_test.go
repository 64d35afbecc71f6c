package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"lunchmanager.io/lunchmanager/internal/config"
	"lunchmanager.io/lunchmanager/internal/domain"
	apperrors "lunchmanager.io/lunchmanager/internal/pkg/errors"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		EmailDomain:       testDomain,
		StudentExpansions: testExpansions,
	}
}

func TestRunAllSyncsInDependencyOrder(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	// The school is already mirrored and activated, so this run's schools
	// pass materializes its grades before students and staff need them.
	seedSchool(t, st, 100, true)

	src := powerschool.NewMockClient()
	src.SeedSchools([]powerschool.SchoolRecord{
		{ID: 100, Name: "Lower School", SchoolNumber: 1, LowGrade: 0, HighGrade: 5},
	})
	src.SeedStudents(100, []powerschool.StudentRecord{
		studentRec(7001, "jdoe26", 3, 100),
		studentRec(7002, "asmith27", 3, 100),
	})
	src.SeedStaff([]powerschool.StaffRecord{
		{DCID: 42, FirstName: "Jane", LastName: "Smith", TeacherNumber: "T042", TeacherLoginID: strPtr("jsmith")},
	})
	src.SeedRoster(42, []powerschool.RosterEntry{
		{DCID: "7001", GradeLevel: "3"},
		{DCID: "7002", GradeLevel: "3"},
	})

	summary, err := NewOrchestrator(src, st, testSyncConfig()).Run(ctx, domain.ResourceAll)
	require.NoError(t, err)
	require.Equal(t, domain.ResourceAll, summary.Resource)
	require.Equal(t, 1, summary.Schools.Retrieved)
	require.Equal(t, 2, summary.Students.Retrieved)
	require.Equal(t, 2, summary.Students.Created)
	require.Equal(t, 1, summary.Staff.Retrieved)
	require.False(t, summary.FinishedAt.Before(summary.StartedAt))

	// Students created earlier in this same run resolve as roster members.
	teacher, _, err := st.UpsertStaffProfile(ctx, store.StaffProfileUpsert{
		DCID: 42, FirstName: "Jane", LastName: "Smith",
		Phone: "x7900", Room: "n/a", UserNumber: "T042",
	})
	require.NoError(t, err)
	members, err := st.Roster(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedSchool(t, st, 100, true)

	src := powerschool.NewMockClient()
	src.SeedSchools([]powerschool.SchoolRecord{
		{ID: 100, Name: "Lower School", SchoolNumber: 1, LowGrade: 9, HighGrade: 12},
	})
	src.SeedStudents(100, []powerschool.StudentRecord{
		studentRec(7001, "jdoe26", 9, 100),
	})
	src.SeedStaff([]powerschool.StaffRecord{
		{DCID: 42, FirstName: "Jane", LastName: "Smith", TeacherNumber: "T042"},
	})
	src.SeedRoster(42, []powerschool.RosterEntry{
		{DCID: "7001", GradeLevel: "9"},
	})

	orch := NewOrchestrator(src, st, testSyncConfig())
	_, err := orch.Run(ctx, domain.ResourceAll)
	require.NoError(t, err)

	schools, grades, profiles, accounts := st.Counts()
	require.Equal(t, 4, grades, "grades 9 through 12 for school 100")

	second, err := orch.Run(ctx, domain.ResourceAll)
	require.NoError(t, err)
	require.Zero(t, second.Schools.Created)
	require.Zero(t, second.Students.Created)
	require.Zero(t, second.Staff.Created)

	schools2, grades2, profiles2, accounts2 := st.Counts()
	require.Equal(t, schools, schools2)
	require.Equal(t, grades, grades2)
	require.Equal(t, profiles, profiles2)
	require.Equal(t, accounts, accounts2)
}

func TestRunSingleResourceLeavesOthersUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedSchool(t, st, 100, true)
	seedGrades(t, st, 100, 3, 3)

	src := powerschool.NewMockClient()
	src.SeedStudents(100, []powerschool.StudentRecord{
		studentRec(7001, "jdoe26", 3, 100),
	})
	src.SeedStaff([]powerschool.StaffRecord{
		{DCID: 42, FirstName: "Jane", LastName: "Smith", TeacherNumber: "T042"},
	})

	summary, err := NewOrchestrator(src, st, testSyncConfig()).Run(ctx, domain.ResourceStudents)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Students.Retrieved)
	require.Zero(t, summary.Schools.Retrieved)
	require.Zero(t, summary.Staff.Retrieved)

	// The staff record was never touched.
	_, created, err := st.UpsertStaffProfile(ctx, store.StaffProfileUpsert{
		DCID: 42, FirstName: "Jane", LastName: "Smith",
		Phone: "x7900", Room: "n/a", UserNumber: "T042",
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestRunAbortsOnFirstResourceFailure(t *testing.T) {
	st := store.NewMemoryStore()
	src := powerschool.NewMockClient()
	src.FailWith(errors.New("connection refused"))

	summary, err := NewOrchestrator(src, st, testSyncConfig()).Run(context.Background(), domain.ResourceAll)
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	require.NotNil(t, summary)
	require.False(t, summary.FinishedAt.IsZero(), "an aborted run still closes its summary")
	require.Zero(t, summary.Students.Retrieved, "students never ran after the schools failure")
}
