package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/staff-records-api/internal/models"
)

// Slot counts of the repeated column groups shared by import and export.
const (
	familySlots        = 5
	educationSlots     = 4
	workSlots          = 4
	qualificationSlots = 4
	associationSlots   = 4
)

var absentValues = map[string]struct{}{
	"":     {},
	"/":    {},
	"n/a":  {},
	"na":   {},
	"none": {},
	"null": {},
	"nil":  {},
	"無":    {},
}

var (
	cjkDatePattern = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日$`)
	nonNumeric     = regexp.MustCompile(`[^0-9.\-]`)
	dateLayouts    = []string{"2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006"}

	phdKeywords    = []string{"phd", "ph.d", "doctor", "doctorate", "博士"}
	masterKeywords = []string{"master", "碩士", "msc", "m.sc", "mba"}
	masterTokens   = regexp.MustCompile(`(^|[^a-z.])(m\.a\.?|ma)([^a-z.]|$)`)
)

// csvRow is one data row keyed by header name.
type csvRow map[string]string

func (r csvRow) text(col string) string {
	v := strings.TrimSpace(r[col])
	if _, ok := absentValues[strings.ToLower(v)]; ok {
		return ""
	}
	return v
}

func (r csvRow) date(col string) *models.Date {
	return parseImportDate(r.text(col))
}

func (r csvRow) decimal(col string) decimal.NullDecimal {
	return parseImportDecimal(r.text(col))
}

func (r csvRow) boolean(col string) *bool {
	return parseImportBool(r.text(col))
}

func (r csvRow) integer(col string) *int {
	v := r.text(col)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(nonNumeric.ReplaceAllString(v, ""))
	if err != nil {
		return nil
	}
	return &n
}

func parseImportDate(v string) *models.Date {
	if v == "" {
		return nil
	}
	if m := cjkDatePattern.FindStringSubmatch(v); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return nil
		}
		date := models.NewDate(y, time.Month(mo), d)
		if int(date.Month()) != mo {
			return nil
		}
		return &date
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return models.DatePtr(t)
		}
	}
	return nil
}

func parseImportDecimal(v string) decimal.NullDecimal {
	cleaned := nonNumeric.ReplaceAllString(v, "")
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func parseImportBool(v string) *bool {
	var b bool
	switch strings.ToLower(v) {
	case "true", "1", "yes", "y", "是", "t":
		b = true
	case "false", "0", "no", "n", "否", "f":
		b = false
	default:
		return nil
	}
	return &b
}

// inferDegree applies the degree keyword rules to the lower-cased degree name and level.
func inferDegree(degreeName, level string) (master, phd bool) {
	text := strings.ToLower(degreeName + " " + level)
	for _, k := range phdKeywords {
		if strings.Contains(text, k) {
			phd = true
			break
		}
	}
	for _, k := range masterKeywords {
		if strings.Contains(text, k) {
			master = true
			break
		}
	}
	if !master && masterTokens.MatchString(text) {
		master = true
	}
	return master, phd
}

// foreignSchool reports whether a school name contains no CJK unified ideograph.
func foreignSchool(name string) bool {
	for _, r := range name {
		if r >= 0x4E00 && r <= 0x9FFF {
			return false
		}
	}
	return true
}

// staffScalarHeaders is the scalar column layout shared by import and export.
var staffScalarHeaders = []string{
	"staff_id", "staff_name", "employment_type", "employment_type_remark",
	"dsej_registration_status", "dsej_registration_rank", "entry_date", "departure_date",
	"retirement_date", "position_grade", "teaching_staff_salary_grade", "basic_salary_points",
	"adjusted_salary_points", "provident_fund_type", "remark", "name_chinese", "name_foreign",
	"gender", "marital_status", "birth_place", "birth_date", "origin", "id_type", "id_number",
	"id_expiry_date", "bank_account_number", "social_security_number", "home_phone",
	"mobile_phone", "address", "email", "alumni_class", "alumni_class_year",
	"alumni_class_duration", "teacher_certificate_number", "teaching_staff_rank",
	"teaching_staff_rank_effective_date", "emergency_contact_name", "emergency_contact_phone",
	"emergency_contact_relationship",
}

var (
	familyFields        = []string{"name", "relationship", "birth_date", "age", "education_level", "institution", "alumni_class"}
	educationFields     = []string{"study_period", "school_name", "education_level", "degree_name", "certificate_date"}
	workFields          = []string{"employment_period", "organization", "position", "salary"}
	qualificationFields = []string{"name", "issuing_organization", "issue_date"}
	associationFields   = []string{"name", "position", "start_year", "end_year"}
	trailingHeaders     = []string{"is_foreign_national", "is_master", "is_phd", "is_overseas_study", "is_active", "contract_number"}
)

func slotColumn(prefix string, slot int, field string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, slot, field)
}

func slotHeaders(prefix string, slots int, fields []string) []string {
	out := make([]string, 0, slots*len(fields))
	for i := 1; i <= slots; i++ {
		for _, f := range fields {
			out = append(out, slotColumn(prefix, i, f))
		}
	}
	return out
}

// StaffCSVHeaders returns the full column layout of the staff CSV in export order.
func StaffCSVHeaders() []string {
	headers := append([]string{}, staffScalarHeaders...)
	headers = append(headers, slotHeaders("family_member", familySlots, familyFields)...)
	headers = append(headers, slotHeaders("education", educationSlots, educationFields)...)
	headers = append(headers, slotHeaders("work_experience", workSlots, workFields)...)
	headers = append(headers, slotHeaders("professional_qualification", qualificationSlots, qualificationFields)...)
	headers = append(headers, slotHeaders("association", associationSlots, associationFields)...)
	return append(headers, trailingHeaders...)
}

// profileFromRow maps the scalar columns of a row onto a new profile.
func profileFromRow(row csvRow) *models.StaffProfile {
	p := &models.StaffProfile{
		StaffID:                  row.text("staff_id"),
		StaffName:                row.text("staff_name"),
		EmploymentType:           row.text("employment_type"),
		EmploymentTypeRemark:     row.text("employment_type_remark"),
		DSEJRegistrationStatus:   row.text("dsej_registration_status"),
		DSEJRegistrationRank:     row.text("dsej_registration_rank"),
		EntryDate:                row.date("entry_date"),
		DepartureDate:            row.date("departure_date"),
		RetirementDate:           row.date("retirement_date"),
		PositionGrade:            row.text("position_grade"),
		TeachingStaffSalaryGrade: row.text("teaching_staff_salary_grade"),
		BasicSalaryPoints:        row.decimal("basic_salary_points"),
		AdjustedSalaryPoints:     row.decimal("adjusted_salary_points"),
		ProvidentFundType:        row.text("provident_fund_type"),
		Remark:                   row.text("remark"),
		ContractNumber:           row.text("contract_number"),
		IsActive:                 true,
		PersonalDetails: models.PersonalDetails{
			NameChinese:                    row.text("name_chinese"),
			NameForeign:                    row.text("name_foreign"),
			Gender:                         models.Gender(strings.ToUpper(row.text("gender"))),
			MaritalStatus:                  row.text("marital_status"),
			BirthPlace:                     row.text("birth_place"),
			BirthDate:                      row.date("birth_date"),
			Origin:                         row.text("origin"),
			IDType:                         row.text("id_type"),
			IDNumber:                       row.text("id_number"),
			IDExpiryDate:                   row.date("id_expiry_date"),
			BankAccountNumber:              row.text("bank_account_number"),
			SocialSecurityNumber:           row.text("social_security_number"),
			HomePhone:                      row.text("home_phone"),
			MobilePhone:                    row.text("mobile_phone"),
			Address:                        row.text("address"),
			Email:                          row.text("email"),
			AlumniClass:                    row.text("alumni_class"),
			AlumniClassYear:                row.text("alumni_class_year"),
			AlumniClassDuration:            row.text("alumni_class_duration"),
			TeacherCertificateNumber:       row.text("teacher_certificate_number"),
			TeachingStaffRank:              row.text("teaching_staff_rank"),
			TeachingStaffRankEffectiveDate: row.date("teaching_staff_rank_effective_date"),
			EmergencyContactName:           row.text("emergency_contact_name"),
			EmergencyContactPhone:          row.text("emergency_contact_phone"),
			EmergencyContactRelationship:   row.text("emergency_contact_relationship"),
		},
	}
	if p.Gender != models.GenderMale && p.Gender != models.GenderFemale {
		p.Gender = models.GenderMale
	}
	if active := row.boolean("is_active"); active != nil {
		p.IsActive = *active
	}
	if foreign := row.boolean("is_foreign_national"); foreign != nil {
		p.IsForeignNational = *foreign
	}
	p.NormalizeNames()
	return p
}

// childrenFromRow collects the filled slots of every repeated group.
func childrenFromRow(row csvRow) models.ChildRecords {
	var out models.ChildRecords
	rowOverseas := row.boolean("is_overseas_study")

	for i := 1; i <= familySlots; i++ {
		col := func(f string) string { return slotColumn("family_member", i, f) }
		name := row.text(col("name"))
		if name == "" {
			continue
		}
		out.FamilyMembers = append(out.FamilyMembers, models.FamilyMember{
			Name:           name,
			Relationship:   row.text(col("relationship")),
			BirthDate:      row.date(col("birth_date")),
			Age:            row.integer(col("age")),
			EducationLevel: row.text(col("education_level")),
			Institution:    row.text(col("institution")),
			AlumniClass:    row.text(col("alumni_class")),
		})
	}

	for i := 1; i <= educationSlots; i++ {
		col := func(f string) string { return slotColumn("education", i, f) }
		school := row.text(col("school_name"))
		if school == "" {
			continue
		}
		edu := models.EducationBackground{
			StudyPeriod:     row.text(col("study_period")),
			SchoolName:      school,
			EducationLevel:  row.text(col("education_level")),
			DegreeName:      row.text(col("degree_name")),
			CertificateDate: row.date(col("certificate_date")),
		}
		edu.IsMaster, edu.IsPhD = inferDegree(edu.DegreeName, edu.EducationLevel)
		switch overseas := row.boolean(col("is_overseas_study")); {
		case overseas != nil:
			edu.IsOverseasStudy = *overseas
		case rowOverseas != nil:
			edu.IsOverseasStudy = *rowOverseas
		default:
			edu.IsOverseasStudy = foreignSchool(school)
		}
		out.Educations = append(out.Educations, edu)
	}

	for i := 1; i <= workSlots; i++ {
		col := func(f string) string { return slotColumn("work_experience", i, f) }
		org := row.text(col("organization"))
		if org == "" {
			continue
		}
		out.WorkExperiences = append(out.WorkExperiences, models.WorkExperience{
			EmploymentPeriod: row.text(col("employment_period")),
			Organization:     org,
			Position:         row.text(col("position")),
			Salary:           row.text(col("salary")),
		})
	}

	for i := 1; i <= qualificationSlots; i++ {
		col := func(f string) string { return slotColumn("professional_qualification", i, f) }
		name := row.text(col("name"))
		issued := row.date(col("issue_date"))
		if name == "" || issued == nil {
			continue
		}
		out.Qualifications = append(out.Qualifications, models.ProfessionalQualification{
			QualificationName:   name,
			IssuingOrganization: row.text(col("issuing_organization")),
			IssueDate:           issued,
		})
	}

	for i := 1; i <= associationSlots; i++ {
		col := func(f string) string { return slotColumn("association", i, f) }
		name := row.text(col("name"))
		if name == "" {
			continue
		}
		out.AssociationPositions = append(out.AssociationPositions, models.AssociationPosition{
			AssociationName: name,
			Position:        row.text(col("position")),
			StartYear:       row.text(col("start_year")),
			EndYear:         row.text(col("end_year")),
		})
	}
	return out
}

// flagOverrides returns the row-level education flags that replace the aggregation.
func flagOverrides(row csvRow, flags models.EducationFlags) (models.EducationFlags, bool) {
	changed := false
	if v := row.boolean("is_master"); v != nil {
		flags.IsMaster, changed = *v, true
	}
	if v := row.boolean("is_phd"); v != nil {
		flags.IsPhD, changed = *v, true
	}
	if v := row.boolean("is_overseas_study"); v != nil {
		flags.IsOverseasStudy, changed = *v, true
	}
	return flags, changed
}
