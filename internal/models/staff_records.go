package models

import "time"

// EmploymentRecord is one employment interval of a profile. A nil DepartureDate means ongoing.
type EmploymentRecord struct {
	ID                  string    `db:"id" json:"id"`
	OwnerID             string    `db:"owner_id" json:"profile_id"`
	EmploymentType      string    `db:"employment_type" json:"employment_type"`
	EntryDate           Date      `db:"entry_date" json:"entry_date"`
	DepartureDate       *Date     `db:"departure_date" json:"departure_date"`
	IsValidForSeniority bool      `db:"is_valid_for_seniority" json:"is_valid_for_seniority"`
	Remark              string    `db:"remark" json:"remark"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// EmploymentOverlap flags two intervals of the same profile sharing at least one day.
type EmploymentOverlap struct {
	RecordID      string `json:"record_id"`
	OtherRecordID string `json:"other_record_id"`
	Message       string `json:"message"`
}

// EducationBackground is one education entry. Its flags feed the owner's aggregate flags.
type EducationBackground struct {
	ID              string `db:"id" json:"id"`
	OwnerID         string `db:"owner_id" json:"-"`
	StudyPeriod     string `db:"study_period" json:"study_period"`
	SchoolName      string `db:"school_name" json:"school_name"`
	EducationLevel  string `db:"education_level" json:"education_level"`
	DegreeName      string `db:"degree_name" json:"degree_name"`
	CertificateDate *Date  `db:"certificate_date" json:"certificate_date"`
	EducationFlags
}

// FamilyMember is a dependent of a profile or applicant.
type FamilyMember struct {
	ID             string `db:"id" json:"id"`
	OwnerID        string `db:"owner_id" json:"-"`
	Name           string `db:"name" json:"name"`
	Relationship   string `db:"relationship" json:"relationship"`
	BirthDate      *Date  `db:"birth_date" json:"birth_date"`
	Age            *int   `db:"age" json:"age"`
	EducationLevel string `db:"education_level" json:"education_level"`
	Institution    string `db:"institution" json:"institution"`
	AlumniClass    string `db:"alumni_class" json:"alumni_class"`
}

// WorkExperience is a previous job outside the school.
type WorkExperience struct {
	ID               string `db:"id" json:"id"`
	OwnerID          string `db:"owner_id" json:"-"`
	EmploymentPeriod string `db:"employment_period" json:"employment_period"`
	Organization     string `db:"organization" json:"organization"`
	Position         string `db:"position" json:"position"`
	Salary           string `db:"salary" json:"salary"`
}

// ProfessionalQualification is a certificate or licence.
type ProfessionalQualification struct {
	ID                  string `db:"id" json:"id"`
	OwnerID             string `db:"owner_id" json:"-"`
	QualificationName   string `db:"qualification_name" json:"qualification_name"`
	IssuingOrganization string `db:"issuing_organization" json:"issuing_organization"`
	IssueDate           *Date  `db:"issue_date" json:"issue_date"`
}

// AssociationPosition is a role held in an external association.
type AssociationPosition struct {
	ID              string `db:"id" json:"id"`
	OwnerID         string `db:"owner_id" json:"-"`
	AssociationName string `db:"association_name" json:"association_name"`
	Position        string `db:"position" json:"position"`
	StartYear       string `db:"start_year" json:"start_year"`
	EndYear         string `db:"end_year" json:"end_year"`
}

// ChildRecords groups the record kinds that both profiles and applications own.
type ChildRecords struct {
	FamilyMembers        []FamilyMember              `json:"family_members"`
	Educations           []EducationBackground       `json:"educations"`
	WorkExperiences      []WorkExperience            `json:"work_experiences"`
	Qualifications       []ProfessionalQualification `json:"professional_qualifications"`
	AssociationPositions []AssociationPosition       `json:"association_positions"`
}
