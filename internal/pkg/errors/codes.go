package errors

// Error code constants. Codes are stable identifiers for log scraping and
// alerting; messages may change, codes must not.

// Source (SIS) error codes.
const (
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeSourceAuthFailed  = "SOURCE_AUTH_FAILED"
	CodeSourceBadPayload  = "SOURCE_BAD_PAYLOAD"
)

// Store lookup error codes.
const (
	CodeSchoolNotFound     = "SCHOOL_NOT_FOUND"
	CodeGradeLevelNotFound = "GRADE_LEVEL_NOT_FOUND"
	CodeProfileNotFound    = "PROFILE_NOT_FOUND"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
)

// Record processing error codes.
const (
	CodeRecordInvalid  = "RECORD_INVALID"
	CodeRosterNoGrade  = "ROSTER_NO_GRADE_LEVEL"
	CodeStudentSkipped = "STUDENT_RECORD_SKIPPED"
)

// Convenience constructors using predefined codes.

// ErrGradeLevelNotFoundf reports a missing catalog entry for a numeric grade.
func ErrGradeLevelNotFoundf(value int) *SyncError {
	return NotFound(CodeGradeLevelNotFound, "no grade level in catalog for value")
}

// ErrSchoolNotFoundf reports a missing school for a SIS school id.
func ErrSchoolNotFoundf(id int64) *SyncError {
	return NotFound(CodeSchoolNotFound, "no school for SIS id")
}

// ErrProfileNotFoundf reports a missing profile for an external DCID.
func ErrProfileNotFoundf(dcid int64) *SyncError {
	return NotFound(CodeProfileNotFound, "no profile for DCID")
}
