package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
	"github.com/noah-isme/staff-records-api/pkg/export"
)

// ExportFormat selects the rendering of an export.
type ExportFormat string

const (
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatPDF    ExportFormat = "pdf"
	ExportFormatPhotos ExportFormat = "photos"
)

type exportProfileStore interface {
	ListAll(ctx context.Context, filter models.StaffFilter) ([]models.StaffProfile, error)
}

type childLister interface {
	List(ctx context.Context, ownerID string) (*models.ChildRecords, error)
}

type blobReader interface {
	Read(name string) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, weights ...float64) ([]byte, error)
}

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders staff profiles as CSV, a PDF roster or a ZIP of photos.
type ExportService struct {
	profiles exportProfileStore
	children childLister
	blobs    blobReader
	csv      csvRenderer
	pdf      pdfRenderer
	audit    auditRecorder
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(profiles exportProfileStore, children childLister, blobs blobReader, audit auditSink, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithBOM())
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		profiles: profiles,
		children: children,
		blobs:    blobs,
		csv:      csv,
		pdf:      pdf,
		audit:    auditRecorder{sink: audit, logger: logger},
		logger:   logger,
	}
}

// Export renders the profiles matching filter in the requested format.
func (s *ExportService) Export(ctx context.Context, format ExportFormat, filter models.StaffFilter, actor Actor) (*ExportResult, error) {
	var (
		result *ExportResult
		err    error
	)
	switch format {
	case ExportFormatCSV, "":
		result, err = s.ExportCSV(ctx, filter)
	case ExportFormatPDF:
		result, err = s.ExportPDF(ctx, filter)
	case ExportFormatPhotos:
		result, err = s.ExportPhotos(ctx, filter)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, models.AuditActionExport, models.ResourceStaffProfile, "",
		fmt.Sprintf("exported %d profiles as %s", result.Rows, result.Filename))
	return result, nil
}

func (s *ExportService) load(ctx context.Context, filter models.StaffFilter) ([]models.StaffProfile, error) {
	profiles, err := s.profiles.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load staff profiles")
	}
	return profiles, nil
}

func exportable(p models.StaffProfile) bool {
	id := strings.TrimSpace(p.StaffID)
	return id != "" && !strings.HasPrefix(id, "MISSING_")
}

// ExportCSV renders the import layout with a UTF-8 BOM.
func (s *ExportService) ExportCSV(ctx context.Context, filter models.StaffFilter) (*ExportResult, error) {
	profiles, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: StaffCSVHeaders()}
	for _, p := range profiles {
		if !exportable(p) {
			continue
		}
		children, err := s.children.List(ctx, p.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load staff records")
		}
		dataset.Rows = append(dataset.Rows, csvRecord(p, *children))
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render csv")
	}
	return &ExportResult{Filename: "staff_profiles.csv", ContentType: "text/csv; charset=utf-8", Data: payload, Rows: len(dataset.Rows)}, nil
}

// ExportPDF renders a roster table.
func (s *ExportService) ExportPDF(ctx context.Context, filter models.StaffFilter) (*ExportResult, error) {
	profiles, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	headers := []string{"Staff ID", "Name", "Employment Type", "Entry Date", "Seniority", "Active"}
	dataset := export.Dataset{Headers: headers}
	for _, p := range profiles {
		if !exportable(p) {
			continue
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Staff ID":        p.StaffID,
			"Name":            p.StaffName,
			"Employment Type": p.EmploymentType,
			"Entry Date":      formatDate(p.EntryDate),
			"Seniority":       p.SeniorityDescription,
			"Active":          formatBool(p.IsActive),
		})
	}
	payload, err := s.pdf.Render(dataset, "Staff Roster", 1, 2, 1.5, 1, 1, 0.6)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render pdf")
	}
	return &ExportResult{Filename: "staff_roster.pdf", ContentType: "application/pdf", Data: payload, Rows: len(dataset.Rows)}, nil
}

// ExportPhotos zips every stored profile picture as {staff_id}{ext}. Missing blobs are skipped.
func (s *ExportService) ExportPhotos(ctx context.Context, filter models.StaffFilter) (*ExportResult, error) {
	profiles, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	count := 0
	for _, p := range profiles {
		if p.ProfilePicture == "" || !exportable(p) {
			continue
		}
		data, err := s.blobs.Read(p.ProfilePicture)
		if err != nil {
			s.logger.Warn("skipping missing photo", zap.String("staff_id", p.StaffID), zap.String("path", p.ProfilePicture), zap.Error(err))
			continue
		}
		w, err := zw.Create(p.StaffID + strings.ToLower(path.Ext(p.ProfilePicture)))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to build photo archive")
		}
		if _, err := w.Write(data); err != nil {
			return nil, appErrors.Internal(err, "failed to build photo archive")
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return nil, appErrors.Internal(err, "failed to build photo archive")
	}
	return &ExportResult{Filename: "staff_photos.zip", ContentType: "application/zip", Data: buf.Bytes(), Rows: count}, nil
}

func formatDate(d *models.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.String()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func csvRecord(p models.StaffProfile, c models.ChildRecords) map[string]string {
	row := map[string]string{
		"staff_id":                           p.StaffID,
		"staff_name":                         p.StaffName,
		"employment_type":                    p.EmploymentType,
		"employment_type_remark":             p.EmploymentTypeRemark,
		"dsej_registration_status":           p.DSEJRegistrationStatus,
		"dsej_registration_rank":             p.DSEJRegistrationRank,
		"entry_date":                         formatDate(p.EntryDate),
		"departure_date":                     formatDate(p.DepartureDate),
		"retirement_date":                    formatDate(p.RetirementDate),
		"position_grade":                     p.PositionGrade,
		"teaching_staff_salary_grade":        p.TeachingStaffSalaryGrade,
		"basic_salary_points":                formatDecimal(p.BasicSalaryPoints),
		"adjusted_salary_points":             formatDecimal(p.AdjustedSalaryPoints),
		"provident_fund_type":                p.ProvidentFundType,
		"remark":                             p.Remark,
		"name_chinese":                       p.NameChinese,
		"name_foreign":                       p.NameForeign,
		"gender":                             string(p.Gender),
		"marital_status":                     p.MaritalStatus,
		"birth_place":                        p.BirthPlace,
		"birth_date":                         formatDate(p.BirthDate),
		"origin":                             p.Origin,
		"id_type":                            p.IDType,
		"id_number":                          p.IDNumber,
		"id_expiry_date":                     formatDate(p.IDExpiryDate),
		"bank_account_number":                p.BankAccountNumber,
		"social_security_number":             p.SocialSecurityNumber,
		"home_phone":                         p.HomePhone,
		"mobile_phone":                       p.MobilePhone,
		"address":                            p.Address,
		"email":                              p.Email,
		"alumni_class":                       p.AlumniClass,
		"alumni_class_year":                  p.AlumniClassYear,
		"alumni_class_duration":              p.AlumniClassDuration,
		"teacher_certificate_number":         p.TeacherCertificateNumber,
		"teaching_staff_rank":                p.TeachingStaffRank,
		"teaching_staff_rank_effective_date": formatDate(p.TeachingStaffRankEffectiveDate),
		"emergency_contact_name":             p.EmergencyContactName,
		"emergency_contact_phone":            p.EmergencyContactPhone,
		"emergency_contact_relationship":     p.EmergencyContactRelationship,
		"is_foreign_national":                formatBool(p.IsForeignNational),
		"is_master":                          formatBool(p.IsMaster),
		"is_phd":                             formatBool(p.IsPhD),
		"is_overseas_study":                  formatBool(p.IsOverseasStudy),
		"is_active":                          formatBool(p.IsActive),
		"contract_number":                    p.ContractNumber,
	}
	for i, m := range c.FamilyMembers {
		if i >= familySlots {
			break
		}
		put(row, "family_member", i+1, map[string]string{
			"name": m.Name, "relationship": m.Relationship, "birth_date": formatDate(m.BirthDate),
			"age": formatInt(m.Age), "education_level": m.EducationLevel, "institution": m.Institution,
			"alumni_class": m.AlumniClass,
		})
	}
	for i, e := range c.Educations {
		if i >= educationSlots {
			break
		}
		put(row, "education", i+1, map[string]string{
			"study_period": e.StudyPeriod, "school_name": e.SchoolName, "education_level": e.EducationLevel,
			"degree_name": e.DegreeName, "certificate_date": formatDate(e.CertificateDate),
		})
	}
	for i, w := range c.WorkExperiences {
		if i >= workSlots {
			break
		}
		put(row, "work_experience", i+1, map[string]string{
			"employment_period": w.EmploymentPeriod, "organization": w.Organization,
			"position": w.Position, "salary": w.Salary,
		})
	}
	for i, q := range c.Qualifications {
		if i >= qualificationSlots {
			break
		}
		put(row, "professional_qualification", i+1, map[string]string{
			"name": q.QualificationName, "issuing_organization": q.IssuingOrganization,
			"issue_date": formatDate(q.IssueDate),
		})
	}
	for i, a := range c.AssociationPositions {
		if i >= associationSlots {
			break
		}
		put(row, "association", i+1, map[string]string{
			"name": a.AssociationName, "position": a.Position, "start_year": a.StartYear, "end_year": a.EndYear,
		})
	}
	return row
}

func put(row map[string]string, prefix string, slot int, values map[string]string) {
	for field, v := range values {
		row[slotColumn(prefix, slot, field)] = v
	}
}
