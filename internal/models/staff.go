package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Gender codes accepted by the forms and the import.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// ZeroSeniority is the description stored for inactive staff or unusable start dates.
const ZeroSeniority = "0年0個月"

// EducationFlags are the three education booleans. On a profile they are derived from its
// education records; on an education record they are the source of truth.
type EducationFlags struct {
	IsMaster        bool `db:"is_master" json:"is_master"`
	IsPhD           bool `db:"is_phd" json:"is_phd"`
	IsOverseasStudy bool `db:"is_overseas_study" json:"is_overseas_study"`
}

// Any reports whether at least one flag is set.
func (f EducationFlags) Any() bool {
	return f.IsMaster || f.IsPhD || f.IsOverseasStudy
}

// PersonalDetails holds the identity and contact fields shared by profiles and applications.
type PersonalDetails struct {
	NameChinese                    string `db:"name_chinese" json:"name_chinese"`
	NameForeign                    string `db:"name_foreign" json:"name_foreign"`
	Gender                         Gender `db:"gender" json:"gender"`
	MaritalStatus                  string `db:"marital_status" json:"marital_status"`
	BirthPlace                     string `db:"birth_place" json:"birth_place"`
	BirthDate                      *Date  `db:"birth_date" json:"birth_date"`
	Origin                         string `db:"origin" json:"origin"`
	IDType                         string `db:"id_type" json:"id_type"`
	IDNumber                       string `db:"id_number" json:"id_number"`
	IDExpiryDate                   *Date  `db:"id_expiry_date" json:"id_expiry_date"`
	BankAccountNumber              string `db:"bank_account_number" json:"bank_account_number"`
	SocialSecurityNumber           string `db:"social_security_number" json:"social_security_number"`
	HomePhone                      string `db:"home_phone" json:"home_phone"`
	MobilePhone                    string `db:"mobile_phone" json:"mobile_phone"`
	Address                        string `db:"address" json:"address"`
	Email                          string `db:"email" json:"email"`
	AlumniClass                    string `db:"alumni_class" json:"alumni_class"`
	AlumniClassYear                string `db:"alumni_class_year" json:"alumni_class_year"`
	AlumniClassDuration            string `db:"alumni_class_duration" json:"alumni_class_duration"`
	TeacherCertificateNumber       string `db:"teacher_certificate_number" json:"teacher_certificate_number"`
	TeachingStaffRank              string `db:"teaching_staff_rank" json:"teaching_staff_rank"`
	TeachingStaffRankEffectiveDate *Date  `db:"teaching_staff_rank_effective_date" json:"teaching_staff_rank_effective_date"`
	EmergencyContactName           string `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone          string `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	EmergencyContactRelationship   string `db:"emergency_contact_relationship" json:"emergency_contact_relationship"`
	ProfilePicture                 string `db:"profile_picture" json:"profile_picture"`
}

// StaffProfile is the persistent staff record.
type StaffProfile struct {
	ID                       string              `db:"id" json:"id"`
	StaffID                  string              `db:"staff_id" json:"staff_id"`
	StaffName                string              `db:"staff_name" json:"staff_name"`
	EmploymentType           string              `db:"employment_type" json:"employment_type"`
	EmploymentTypeRemark     string              `db:"employment_type_remark" json:"employment_type_remark"`
	DSEJRegistrationStatus   string              `db:"dsej_registration_status" json:"dsej_registration_status"`
	DSEJRegistrationRank     string              `db:"dsej_registration_rank" json:"dsej_registration_rank"`
	EntryDate                *Date               `db:"entry_date" json:"entry_date"`
	DepartureDate            *Date               `db:"departure_date" json:"departure_date"`
	RetirementDate           *Date               `db:"retirement_date" json:"retirement_date"`
	PositionGrade            string              `db:"position_grade" json:"position_grade"`
	TeachingStaffSalaryGrade string              `db:"teaching_staff_salary_grade" json:"teaching_staff_salary_grade"`
	BasicSalaryPoints        decimal.NullDecimal `db:"basic_salary_points" json:"basic_salary_points"`
	AdjustedSalaryPoints     decimal.NullDecimal `db:"adjusted_salary_points" json:"adjusted_salary_points"`
	ProvidentFundType        string              `db:"provident_fund_type" json:"provident_fund_type"`
	Remark                   string              `db:"remark" json:"remark"`
	ContractNumber           string              `db:"contract_number" json:"contract_number"`
	IsActive                 bool                `db:"is_active" json:"is_active"`
	SeniorityDescription     string              `db:"school_seniority_description" json:"school_seniority_description"`
	IsForeignNational        bool                `db:"is_foreign_national" json:"is_foreign_national"`
	PersonalDetails
	EducationFlags
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeNames fills a blank or "/" Chinese name from the foreign name, then the staff name.
func (p *StaffProfile) NormalizeNames() {
	p.StaffName = strings.TrimSpace(p.StaffName)
	name := strings.TrimSpace(p.NameChinese)
	if name == "" || name == "/" {
		name = strings.TrimSpace(p.NameForeign)
		if name == "" || name == "/" {
			name = p.StaffName
		}
	}
	p.NameChinese = name
}

// StaffProfileDetail is a profile with all owned records.
type StaffProfileDetail struct {
	StaffProfile
	EmploymentRecords []EmploymentRecord `json:"employment_records"`
	ChildRecords
	Warnings []EmploymentOverlap `json:"warnings,omitempty"`
}

// StaffFilter captures listing criteria.
type StaffFilter struct {
	Search            string
	StaffID           string
	Gender            *Gender
	EmploymentType    string
	IsMaster          *bool
	IsPhD             *bool
	IsOverseasStudy   *bool
	IsForeignNational *bool
	IncludeInactive   bool
	Page              int
	PageSize          int
	SortBy            string
	SortOrder         string
}

// StaffStatistics summarises the profile table.
type StaffStatistics struct {
	TotalStaff    int       `db:"total_staff" json:"total_staff"`
	ActiveStaff   int       `db:"active_staff" json:"active_staff"`
	InactiveStaff int       `db:"inactive_staff" json:"inactive_staff"`
	MasterCount   int       `db:"master_count" json:"master_count"`
	PhDCount      int       `db:"phd_count" json:"phd_count"`
	OverseasCount int       `db:"overseas_count" json:"overseas_count"`
	ForeignCount  int       `db:"foreign_count" json:"foreign_count"`
	GeneratedAt   time.Time `db:"-" json:"generated_at"`
}
