// Package domain provides domain models for the Lunch Manager roster store.
//
// All store and source-client methods exchange domain types, never raw
// PowerSchool payloads or database rows (Anti-Corruption Layer).
package domain

import (
	"fmt"
	"time"
)

// Role tags a Profile as staff or student. The two roles key on distinct
// external identifier namespaces (user DCID vs. student DCID).
type Role string

const (
	RoleStaff   Role = "STAFF"
	RoleStudent Role = "STUDENT"
)

// School is a school record mirrored from the SIS.
// The ID is the SIS's own identifier and is the upsert key; the active flag
// is operator-owned and never written by the sync engine.
type School struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SchoolNumber int64     `json:"school_number"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GradeLevel is one entry in the global grade catalog (0 = kindergarten,
// 1..12). Value is unique across the catalog; the owning school reference is
// reassigned on every schools sync.
type GradeLevel struct {
	ID        string    `json:"id"`
	Value     int       `json:"value"`
	SchoolID  int64     `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Name renders the grade level the way the ordering app displays it.
func (g GradeLevel) Name() string {
	if g.Value == 0 {
		return "Kindergarten"
	}
	return fmt.Sprintf("Grade %d", g.Value)
}

// Profile is a staff or student identity row. Exactly one of StaffDCID /
// StudentDCID is set, matching Role; each is unique within its namespace, so
// re-syncing the same DCID updates rather than duplicates.
type Profile struct {
	ID          string     `json:"id"`
	Role        Role       `json:"role"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	StaffDCID   *int64     `json:"staff_dcid,omitempty"`
	StudentDCID *int64     `json:"student_dcid,omitempty"`
	SchoolID    *int64     `json:"school_id,omitempty"`
	GradeID     *string    `json:"grade_id,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Room        string     `json:"room,omitempty"`
	Active      bool       `json:"active"`
	UserNumber  string     `json:"user_number,omitempty"`
	AccountID   *string    `json:"account_id,omitempty"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
}

// DCID returns the external identifier for the profile's role.
func (p Profile) DCID() int64 {
	switch p.Role {
	case RoleStaff:
		if p.StaffDCID != nil {
			return *p.StaffDCID
		}
	case RoleStudent:
		if p.StudentDCID != nil {
			return *p.StudentDCID
		}
	}
	return 0
}

// DisplayName renders "First Last" for log lines and reports.
func (p Profile) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

// UserAccount is the login record linked to a Profile. Login always equals
// the derived email; at most one account exists per profile and it is updated
// in place, never recreated.
type UserAccount struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Login     string    `json:"login"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resource selects which SIS resource a sync run covers.
type Resource string

const (
	ResourceAll      Resource = "all"
	ResourceSchools  Resource = "schools"
	ResourceStaff    Resource = "staff"
	ResourceStudents Resource = "students"
)

// ParseResource validates a CLI/job-supplied resource name. An empty name
// defaults to ResourceAll.
func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case "":
		return ResourceAll, nil
	case ResourceAll, ResourceSchools, ResourceStaff, ResourceStudents:
		return Resource(s), nil
	}
	return "", fmt.Errorf("unknown sync resource %q (want all, schools, staff or students)", s)
}

// ResourceCount reports one resource type's reconciliation totals.
type ResourceCount struct {
	Retrieved int `json:"retrieved"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}

// Add folds another count into the receiver.
func (c *ResourceCount) Add(other ResourceCount) {
	c.Retrieved += other.Retrieved
	c.Created += other.Created
	c.Skipped += other.Skipped
}

// SyncSummary aggregates per-resource counts for one orchestrator run.
type SyncSummary struct {
	Resource   Resource      `json:"resource"`
	Schools    ResourceCount `json:"schools"`
	Staff      ResourceCount `json:"staff"`
	Students   ResourceCount `json:"students"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
