package dto

import "github.com/noah-isme/staff-records-api/internal/models"

// CreateStaffRequest is a full profile with optional nested records. Derived fields in the
// payload are ignored. Decode into NewCreateStaffRequest so an omitted is_active stays true.
type CreateStaffRequest struct {
	models.StaffProfile
	EmploymentRecords []models.EmploymentRecord `json:"employment_records"`
	models.ChildRecords
}

// NewCreateStaffRequest returns a request with defaults applied before decoding.
func NewCreateStaffRequest() CreateStaffRequest {
	var req CreateStaffRequest
	req.IsActive = true
	return req
}

// StaffChildPatch carries the nested arrays of a profile update. A non-nil slice replaces the
// owner's rows of that kind.
type StaffChildPatch struct {
	EmploymentRecords    *[]models.EmploymentRecord          `json:"employment_records"`
	FamilyMembers        *[]models.FamilyMember              `json:"family_members"`
	Educations           *[]models.EducationBackground       `json:"educations"`
	WorkExperiences      *[]models.WorkExperience            `json:"work_experiences"`
	Qualifications       *[]models.ProfessionalQualification `json:"professional_qualifications"`
	AssociationPositions *[]models.AssociationPosition       `json:"association_positions"`
}

// EmploymentRequest creates or replaces one employment record.
type EmploymentRequest struct {
	EmploymentType      string       `json:"employment_type" validate:"max=50"`
	EntryDate           models.Date  `json:"entry_date"`
	DepartureDate       *models.Date `json:"departure_date"`
	IsValidForSeniority *bool        `json:"is_valid_for_seniority"`
	Remark              string       `json:"remark" validate:"max=500"`
}

// EducationRequest creates or replaces one education record.
type EducationRequest struct {
	StudyPeriod     string       `json:"study_period" validate:"max=100"`
	SchoolName      string       `json:"school_name" validate:"required,max=200"`
	EducationLevel  string       `json:"education_level" validate:"max=100"`
	DegreeName      string       `json:"degree_name" validate:"max=200"`
	CertificateDate *models.Date `json:"certificate_date"`
	IsMaster        bool         `json:"is_master"`
	IsPhD           bool         `json:"is_phd"`
	IsOverseasStudy bool         `json:"is_overseas_study"`
}

// EmploymentResponse returns a stored record with the overlap warnings of its profile.
type EmploymentResponse struct {
	Record    *models.EmploymentRecord   `json:"record,omitempty"`
	Seniority string                     `json:"school_seniority_description"`
	Warnings  []models.EmploymentOverlap `json:"warnings"`
}

// EducationResponse returns a stored record with the recomputed owner flags.
type EducationResponse struct {
	Record *models.EducationBackground `json:"record,omitempty"`
	Flags  models.EducationFlags       `json:"education_flags"`
}
