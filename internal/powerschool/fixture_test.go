package powerschool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
schools:
  - {id: 5, name: High School, school_number: 500, active: true, low_grade: 9, high_grade: 12}
  - {id: 6, name: Lower School, school_number: 600, active: false, low_grade: 0, high_grade: 4}
staff:
  - dcid: 4411
    first_name: Jane
    last_name: Doe
    teachernumber: "44"
    teacherloginid: j.doe
    homeroom: "101"
students:
  5:
    - id: 9001
      local_id: "120045"
      name: {first_name: Sam, last_name: Lee}
      student_username: sam.lee
      school_enrollment: {grade_level: 9, school_id: 5}
rosters:
  4411:
    - {dcid: "9001", grade_level: "9"}
    - {dcid: "9002", grade_level: ""}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "district.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	return path
}

func TestLoadFixture(t *testing.T) {
	client, err := LoadFixture(writeFixture(t))
	require.NoError(t, err)

	ctx := context.Background()

	schools, err := client.Schools(ctx)
	require.NoError(t, err)
	require.Len(t, schools, 2)
	require.Equal(t, "High School", schools[0].Name)

	staff, err := client.ActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	require.NotNil(t, staff[0].TeacherLoginID)
	require.Equal(t, "j.doe", *staff[0].TeacherLoginID)
	require.Nil(t, staff[0].SchoolPhone)

	students, err := client.ActiveStudents(ctx, 5, "lunch,school_enrollment")
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, int64(5), students[0].Enrollment.SchoolID)

	roster, err := client.HomeroomRoster(ctx, 4411)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, "", roster[1].GradeLevel)

	// Unknown keys come back empty, not as errors.
	none, err := client.HomeroomRoster(ctx, 9999)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestLoadFixture_MissingFile(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFixture_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schools: {not: [a, list"), 0o644))
	_, err := LoadFixture(path)
	require.Error(t, err)
}
