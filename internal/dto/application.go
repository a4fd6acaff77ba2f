package dto

import "github.com/noah-isme/staff-records-api/internal/models"

// SubmitApplicationRequest is the public onboarding form.
type SubmitApplicationRequest struct {
	models.PersonalDetails
	IsForeignNational bool `json:"is_foreign_national"`
	models.EducationFlags
	models.ChildRecords
}

// IDsRequest selects applications for a batch decision.
type IDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=200,dive,required"`
}

// ApprovalSkip explains why an application produced no new profile.
type ApprovalSkip struct {
	ApplicationID string `json:"application_id"`
	Reason        string `json:"reason"`
	StaffID       string `json:"staff_id,omitempty"`
}

// ApprovedProfile links an approved application to the profile it created.
type ApprovedProfile struct {
	ApplicationID string `json:"application_id"`
	ProfileID     string `json:"profile_id"`
	StaffID       string `json:"staff_id"`
}

// ApprovalResult summarises a batch approval.
type ApprovalResult struct {
	ApprovedCount int               `json:"approved_count"`
	Approved      []ApprovedProfile `json:"approved"`
	Skipped       []ApprovalSkip    `json:"skipped"`
	Errors        []string          `json:"errors"`
	Warnings      []string          `json:"warnings"`
	Message       string            `json:"message"`
}

// RejectionResult summarises a batch rejection.
type RejectionResult struct {
	RejectedCount int      `json:"rejected_count"`
	Skipped       []string `json:"skipped"`
	Message       string   `json:"message"`
}
