package models

import "time"

// ApplicationStatus tracks the review state of a submission.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// StaffApplication is an onboarding submission awaiting review. Its education flags are what the
// applicant ticked and are never copied onto a profile.
type StaffApplication struct {
	ID                string            `db:"id" json:"id"`
	SubmissionID      int64             `db:"submission_id" json:"submission_id"`
	ApplicationDate   time.Time         `db:"application_date" json:"application_date"`
	Status            ApplicationStatus `db:"status" json:"status"`
	IsForeignNational bool              `db:"is_foreign_national" json:"is_foreign_national"`
	PersonalDetails
	EducationFlags
	DecidedBy *string    `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// StaffApplicationDetail bundles an application with its child records.
type StaffApplicationDetail struct {
	StaffApplication
	ChildRecords
}

// ApplicationFilter captures listing criteria.
type ApplicationFilter struct {
	Status   *ApplicationStatus
	Search   string
	Page     int
	PageSize int
}
