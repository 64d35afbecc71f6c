// Package powerschool provides the client for the PowerSchool SIS, the
// authoritative source of school, staff, and student records.
//
// The sync engine consumes the narrow Client interface; the concrete
// transport (REST + OAuth2) stays behind it, so tests and dry-runs swap in
// MockClient or a yaml fixture snapshot.
package powerschool

import "context"

// SchoolRecord is one school as reported by the SIS.
type SchoolRecord struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	SchoolNumber int64  `json:"school_number" yaml:"school_number"`
	Active       bool   `json:"active" yaml:"active"`
	LowGrade     int    `json:"low_grade" yaml:"low_grade"`
	HighGrade    int    `json:"high_grade" yaml:"high_grade"`
}

// StaffRecord is one active staff member. Optional source fields are
// pointer-typed: nil means the SIS omitted the field, which is an expected
// condition resolved by documented fallbacks, not an error.
type StaffRecord struct {
	DCID           int64   `json:"dcid" yaml:"dcid"`
	FirstName      string  `json:"first_name" yaml:"first_name"`
	LastName       string  `json:"last_name" yaml:"last_name"`
	SchoolPhone    *string `json:"school_phone,omitempty" yaml:"school_phone,omitempty"`
	Homeroom       *string `json:"homeroom,omitempty" yaml:"homeroom,omitempty"`
	TeacherNumber  string  `json:"teachernumber" yaml:"teachernumber"`
	TeacherLoginID *string `json:"teacherloginid,omitempty" yaml:"teacherloginid,omitempty"`
	LoginID        *string `json:"loginid,omitempty" yaml:"loginid,omitempty"`
}

// StudentName carries the nested name object of a student record.
type StudentName struct {
	First string `json:"first_name" yaml:"first_name"`
	Last  string `json:"last_name" yaml:"last_name"`
}

// SchoolEnrollment carries the nested enrollment object of a student record.
type SchoolEnrollment struct {
	GradeLevel int   `json:"grade_level" yaml:"grade_level"`
	SchoolID   int64 `json:"school_id" yaml:"school_id"`
}

// StudentRecord is one active student of a school.
type StudentRecord struct {
	ID              int64            `json:"id" yaml:"id"`
	LocalID         string           `json:"local_id" yaml:"local_id"`
	Name            StudentName      `json:"name" yaml:"name"`
	StudentUsername *string          `json:"student_username,omitempty" yaml:"student_username,omitempty"`
	Enrollment      SchoolEnrollment `json:"school_enrollment" yaml:"school_enrollment"`
}

// RosterEntry is one member of a homeroom roster. The SIS reports both
// fields as strings; GradeLevel may be blank and DCID may be unparseable,
// both handled by the reconciler rather than the client.
type RosterEntry struct {
	DCID       string `json:"dcid" yaml:"dcid"`
	GradeLevel string `json:"grade_level" yaml:"grade_level"`
}

// Client abstracts the SIS. All operations are read-only; any returned error
// is a transport/API failure and fatal to the current resource sync.
type Client interface {
	// Schools lists every school in the district.
	Schools(ctx context.Context) ([]SchoolRecord, error)

	// ActiveStaff lists every active staff member in the district.
	ActiveStaff(ctx context.Context) ([]StaffRecord, error)

	// ActiveStudents lists the active students of one school. expansions
	// is the comma-separated field-expansion list to request.
	ActiveStudents(ctx context.Context, schoolID int64, expansions string) ([]StudentRecord, error)

	// HomeroomRoster fetches the homeroom roster of one teacher. A teacher
	// without a homeroom yields an empty slice, not an error.
	HomeroomRoster(ctx context.Context, teacherDCID int64) ([]RosterEntry, error)
}
