package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/repository"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

type staffStore interface {
	Create(ctx context.Context, profile *models.StaffProfile) error
	GetByID(ctx context.Context, id string) (*models.StaffProfile, error)
	ExistsByStaffID(ctx context.Context, staffID string) (bool, error)
	List(ctx context.Context, filter models.StaffFilter) ([]models.StaffProfile, int, error)
	Update(ctx context.Context, profile *models.StaffProfile) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*models.StaffStatistics, error)
}

type employmentStore interface {
	employmentLister
	Get(ctx context.Context, profileID, id string) (*models.EmploymentRecord, error)
	Create(ctx context.Context, record *models.EmploymentRecord) error
	Update(ctx context.Context, record *models.EmploymentRecord) error
	Delete(ctx context.Context, profileID, id string) error
}

type childStore interface {
	educationLister
	List(ctx context.Context, ownerID string) (*models.ChildRecords, error)
	Create(ctx context.Context, ownerID string, records models.ChildRecords) error
	Replace(ctx context.Context, ownerID string, records models.ChildRecords, kinds ...repository.ChildKind) error
	GetEducation(ctx context.Context, ownerID, id string) (*models.EducationBackground, error)
	CreateEducation(ctx context.Context, edu *models.EducationBackground) error
	UpdateEducation(ctx context.Context, edu *models.EducationBackground) error
	DeleteEducation(ctx context.Context, ownerID, id string) error
}

type profileRules struct {
	StaffID   string        `validate:"required,max=50"`
	StaffName string        `validate:"required,max=200"`
	Gender    models.Gender `validate:"omitempty,oneof=M F"`
	Email     string        `validate:"omitempty,email"`
}

// StaffService implements profile management and the child record operations that feed derived state.
type StaffService struct {
	profiles    staffStore
	employments employmentStore
	children    childStore
	derived     *DerivedStateService
	tx          transactor
	audit       auditRecorder
	cache       *CacheService
	statsTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// StaffServiceOption customises a StaffService.
type StaffServiceOption func(*StaffService)

// WithStatisticsCache caches statistics through cache for ttl.
func WithStatisticsCache(cache *CacheService, ttl time.Duration) StaffServiceOption {
	return func(s *StaffService) {
		s.cache = cache
		s.statsTTL = ttl
	}
}

// NewStaffService constructs a StaffService.
func NewStaffService(profiles staffStore, employments employmentStore, children childStore, derived *DerivedStateService, tx transactor, audit auditSink, validate *validator.Validate, logger *zap.Logger, opts ...StaffServiceOption) *StaffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StaffService{
		profiles:    profiles,
		employments: employments,
		children:    children,
		derived:     derived,
		tx:          tx,
		audit:       auditRecorder{sink: audit, logger: logger},
		validator:   validate,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StaffService) validateProfile(p *models.StaffProfile) error {
	if err := s.validator.Struct(profileRules{StaffID: p.StaffID, StaffName: p.StaffName, Gender: p.Gender, Email: p.Email}); err != nil {
		return appErrors.Validation(err, "invalid staff payload")
	}
	if p.EntryDate != nil && p.DepartureDate != nil && p.DepartureDate.Before(*p.EntryDate) {
		return appErrors.Clone(appErrors.ErrValidation, "departure_date must not be before entry_date")
	}
	return nil
}

func prepareProfile(p *models.StaffProfile) {
	p.StaffID = strings.TrimSpace(p.StaffID)
	p.NormalizeNames()
	if p.Gender == "" {
		p.Gender = models.GenderMale
	}
}

// Create validates and stores a new profile with nested records and computes its derived state.
func (s *StaffService) Create(ctx context.Context, req dto.CreateStaffRequest, actor Actor) (*models.StaffProfileDetail, error) {
	profile := req.StaffProfile
	profile.ID = ""
	profile.SeniorityDescription = models.ZeroSeniority
	profile.EducationFlags = models.EducationFlags{}
	profile.ProfilePicture = ""
	profile.CreatedBy = actor.userRef()
	prepareProfile(&profile)
	if err := s.validateProfile(&profile); err != nil {
		return nil, err
	}
	for _, rec := range req.EmploymentRecords {
		if err := validateEmploymentDates(rec.EntryDate, rec.DepartureDate); err != nil {
			return nil, err
		}
	}

	exists, err := s.profiles.ExistsByStaffID(ctx, profile.StaffID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check staff id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("staff id %s already exists", profile.StaffID))
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Create(ctx, &profile); err != nil {
			if errors.Is(err, repository.ErrDuplicateStaffID) {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("staff id %s already exists", profile.StaffID))
			}
			return err
		}
		for _, rec := range req.EmploymentRecords {
			rec := rec
			rec.ID, rec.OwnerID = "", profile.ID
			if err := s.employments.Create(ctx, &rec); err != nil {
				return err
			}
		}
		if err := s.children.Create(ctx, profile.ID, req.ChildRecords); err != nil {
			return err
		}
		_, err := s.derived.RecomputeAll(ctx, profile.ID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "", "failed to create staff profile")
	}

	s.invalidateStatistics(ctx)
	s.audit.record(ctx, actor, models.AuditActionCreate, models.ResourceStaffProfile, profile.ID, "created staff profile "+profile.StaffID)
	return s.Get(ctx, profile.ID)
}

// Get returns a profile with every owned record and its employment overlap warnings.
func (s *StaffService) Get(ctx context.Context, id string) (*models.StaffProfileDetail, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "staff profile not found", "failed to load staff profile")
	}
	employments, err := s.employments.ListByProfile(ctx, id, false)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load employment records")
	}
	children, err := s.children.List(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load staff records")
	}
	return &models.StaffProfileDetail{
		StaffProfile:      *profile,
		EmploymentRecords: employments,
		ChildRecords:      *children,
		Warnings:          DetectEmploymentOverlaps(employments),
	}, nil
}

// List returns one page of profiles. Inactive profiles are only listed for roles that may view
// and edit every profile.
func (s *StaffService) List(ctx context.Context, filter models.StaffFilter, actor Actor) ([]models.StaffProfile, *models.Pagination, error) {
	if filter.IncludeInactive && !(actor.Role.Can(models.PermViewAllStaff) && actor.Role.Can(models.PermEditStaff)) {
		filter.IncludeInactive = false
	}
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list staff profiles")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return profiles, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func seniorityKey(p *models.StaffProfile) string {
	var entry, departure string
	if p.EntryDate != nil {
		entry = p.EntryDate.String()
	}
	if p.DepartureDate != nil {
		departure = p.DepartureDate.String()
	}
	return fmt.Sprintf("%s|%s|%t", entry, departure, p.IsActive)
}

// Update applies a partial JSON document to a profile. Present child arrays replace the stored
// rows of that kind; derived fields are recomputed when their inputs changed.
func (s *StaffService) Update(ctx context.Context, id string, body []byte, actor Actor) (*models.StaffProfileDetail, error) {
	current, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "staff profile not found", "failed to load staff profile")
	}
	beforeKey := seniorityKey(current)
	beforeStaffID := current.StaffID

	updated := *current
	updated.EntryDate, updated.DepartureDate, updated.RetirementDate = copyDate(current.EntryDate), copyDate(current.DepartureDate), copyDate(current.RetirementDate)
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, appErrors.Validation(err, "invalid staff payload")
	}
	var patch dto.StaffChildPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		return nil, appErrors.Validation(err, "invalid staff payload")
	}

	updated.ID = current.ID
	updated.SeniorityDescription = current.SeniorityDescription
	updated.EducationFlags = current.EducationFlags
	updated.ProfilePicture = current.ProfilePicture
	updated.CreatedBy = current.CreatedBy
	updated.CreatedAt = current.CreatedAt
	prepareProfile(&updated)
	if err := s.validateProfile(&updated); err != nil {
		return nil, err
	}
	if patch.EmploymentRecords != nil {
		for _, rec := range *patch.EmploymentRecords {
			if err := validateEmploymentDates(rec.EntryDate, rec.DepartureDate); err != nil {
				return nil, err
			}
		}
	}
	if updated.StaffID != beforeStaffID {
		exists, err := s.profiles.ExistsByStaffID(ctx, updated.StaffID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check staff id")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("staff id %s already exists", updated.StaffID))
		}
	}

	records, kinds := patchRecords(patch)
	recomputeSeniority := seniorityKey(&updated) != beforeKey || patch.EmploymentRecords != nil
	recomputeFlags := patch.Educations != nil

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Update(ctx, &updated); err != nil {
			if errors.Is(err, repository.ErrDuplicateStaffID) {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("staff id %s already exists", updated.StaffID))
			}
			return err
		}
		if patch.EmploymentRecords != nil {
			if err := s.replaceEmployments(ctx, id, *patch.EmploymentRecords); err != nil {
				return err
			}
		}
		if len(kinds) > 0 {
			if err := s.children.Replace(ctx, id, records, kinds...); err != nil {
				return err
			}
		}
		if recomputeFlags {
			if _, err := s.derived.RecomputeEducationFlags(ctx, id); err != nil {
				return err
			}
		}
		if recomputeSeniority {
			if _, err := s.derived.RecomputeSeniority(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "staff profile not found", "failed to update staff profile")
	}

	s.invalidateStatistics(ctx)
	s.audit.record(ctx, actor, models.AuditActionUpdate, models.ResourceStaffProfile, id, "updated staff profile "+updated.StaffID)
	return s.Get(ctx, id)
}

func copyDate(d *models.Date) *models.Date {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

func patchRecords(patch dto.StaffChildPatch) (models.ChildRecords, []repository.ChildKind) {
	var records models.ChildRecords
	var kinds []repository.ChildKind
	if patch.FamilyMembers != nil {
		records.FamilyMembers = *patch.FamilyMembers
		kinds = append(kinds, repository.ChildFamily)
	}
	if patch.Educations != nil {
		records.Educations = *patch.Educations
		kinds = append(kinds, repository.ChildEducation)
	}
	if patch.WorkExperiences != nil {
		records.WorkExperiences = *patch.WorkExperiences
		kinds = append(kinds, repository.ChildWork)
	}
	if patch.Qualifications != nil {
		records.Qualifications = *patch.Qualifications
		kinds = append(kinds, repository.ChildQualification)
	}
	if patch.AssociationPositions != nil {
		records.AssociationPositions = *patch.AssociationPositions
		kinds = append(kinds, repository.ChildAssociation)
	}
	return records, kinds
}

func (s *StaffService) replaceEmployments(ctx context.Context, profileID string, records []models.EmploymentRecord) error {
	existing, err := s.employments.ListByProfile(ctx, profileID, false)
	if err != nil {
		return err
	}
	for _, rec := range existing {
		if err := s.employments.Delete(ctx, profileID, rec.ID); err != nil {
			return err
		}
	}
	for _, rec := range records {
		rec := rec
		rec.ID, rec.OwnerID = "", profileID
		if err := s.employments.Create(ctx, &rec); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a profile and everything it owns.
func (s *StaffService) Delete(ctx context.Context, id string, actor Actor) error {
	if err := s.profiles.Delete(ctx, id); err != nil {
		return storeError(err, "staff profile not found", "failed to delete staff profile")
	}
	s.invalidateStatistics(ctx)
	s.audit.record(ctx, actor, models.AuditActionDelete, models.ResourceStaffProfile, id, "deleted staff profile")
	return nil
}

func validateEmploymentDates(entry models.Date, departure *models.Date) error {
	if entry.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "entry_date is required")
	}
	if departure != nil && !departure.IsZero() && departure.Before(entry) {
		return appErrors.Clone(appErrors.ErrValidation, "departure_date must not be before entry_date")
	}
	return nil
}

func (s *StaffService) requireProfile(ctx context.Context, id string) error {
	if _, err := s.profiles.GetByID(ctx, id); err != nil {
		return storeError(err, "staff profile not found", "failed to load staff profile")
	}
	return nil
}

func employmentFromRequest(req dto.EmploymentRequest) models.EmploymentRecord {
	valid := true
	if req.IsValidForSeniority != nil {
		valid = *req.IsValidForSeniority
	}
	return models.EmploymentRecord{
		EmploymentType:      strings.TrimSpace(req.EmploymentType),
		EntryDate:           req.EntryDate,
		DepartureDate:       req.DepartureDate,
		IsValidForSeniority: valid,
		Remark:              strings.TrimSpace(req.Remark),
	}
}

// AddEmployment stores an employment record and recomputes seniority.
func (s *StaffService) AddEmployment(ctx context.Context, profileID string, req dto.EmploymentRequest, actor Actor) (*dto.EmploymentResponse, error) {
	record := employmentFromRequest(req)
	record.OwnerID = profileID
	return s.writeEmployment(ctx, profileID, &record, actor, models.AuditActionCreate, s.employments.Create)
}

// UpdateEmployment replaces an employment record and recomputes seniority.
func (s *StaffService) UpdateEmployment(ctx context.Context, profileID, recordID string, req dto.EmploymentRequest, actor Actor) (*dto.EmploymentResponse, error) {
	if _, err := s.employments.Get(ctx, profileID, recordID); err != nil {
		return nil, storeError(err, "employment record not found", "failed to load employment record")
	}
	record := employmentFromRequest(req)
	record.ID, record.OwnerID = recordID, profileID
	return s.writeEmployment(ctx, profileID, &record, actor, models.AuditActionUpdate, s.employments.Update)
}

func (s *StaffService) writeEmployment(ctx context.Context, profileID string, record *models.EmploymentRecord, actor Actor, action string, write func(context.Context, *models.EmploymentRecord) error) (*dto.EmploymentResponse, error) {
	if err := s.validator.Struct(struct {
		EmploymentType string `validate:"max=50"`
		Remark         string `validate:"max=500"`
	}{record.EmploymentType, record.Remark}); err != nil {
		return nil, appErrors.Validation(err, "invalid employment payload")
	}
	if err := validateEmploymentDates(record.EntryDate, record.DepartureDate); err != nil {
		return nil, err
	}
	if err := s.requireProfile(ctx, profileID); err != nil {
		return nil, err
	}

	var seniority string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := write(ctx, record); err != nil {
			return err
		}
		var err error
		seniority, err = s.derived.RecomputeSeniority(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "employment record not found", "failed to save employment record")
	}
	warnings, err := s.derived.EmploymentWarnings(ctx, profileID)
	if err != nil {
		s.logger.Warn("failed to compute employment warnings", zap.String("profile_id", profileID), zap.Error(err))
	}
	s.audit.record(ctx, actor, action, models.ResourceEmployment, record.ID, "employment record of profile "+profileID)
	return &dto.EmploymentResponse{Record: record, Seniority: seniority, Warnings: warnings}, nil
}

// DeleteEmployment removes an employment record and recomputes seniority.
func (s *StaffService) DeleteEmployment(ctx context.Context, profileID, recordID string, actor Actor) (*dto.EmploymentResponse, error) {
	var seniority string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.employments.Delete(ctx, profileID, recordID); err != nil {
			return err
		}
		var err error
		seniority, err = s.derived.RecomputeSeniority(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "employment record not found", "failed to delete employment record")
	}
	warnings, err := s.derived.EmploymentWarnings(ctx, profileID)
	if err != nil {
		s.logger.Warn("failed to compute employment warnings", zap.String("profile_id", profileID), zap.Error(err))
	}
	s.audit.record(ctx, actor, models.AuditActionDelete, models.ResourceEmployment, recordID, "employment record of profile "+profileID)
	return &dto.EmploymentResponse{Seniority: seniority, Warnings: warnings}, nil
}

func educationFromRequest(req dto.EducationRequest) models.EducationBackground {
	return models.EducationBackground{
		StudyPeriod:     strings.TrimSpace(req.StudyPeriod),
		SchoolName:      strings.TrimSpace(req.SchoolName),
		EducationLevel:  strings.TrimSpace(req.EducationLevel),
		DegreeName:      strings.TrimSpace(req.DegreeName),
		CertificateDate: req.CertificateDate,
		EducationFlags: models.EducationFlags{
			IsMaster:        req.IsMaster,
			IsPhD:           req.IsPhD,
			IsOverseasStudy: req.IsOverseasStudy,
		},
	}
}

// AddEducation stores an education record and recomputes the owner's flags.
func (s *StaffService) AddEducation(ctx context.Context, profileID string, req dto.EducationRequest, actor Actor) (*dto.EducationResponse, error) {
	edu := educationFromRequest(req)
	edu.OwnerID = profileID
	return s.writeEducation(ctx, profileID, req, &edu, actor, models.AuditActionCreate, s.children.CreateEducation)
}

// UpdateEducation replaces an education record and recomputes the owner's flags.
func (s *StaffService) UpdateEducation(ctx context.Context, profileID, recordID string, req dto.EducationRequest, actor Actor) (*dto.EducationResponse, error) {
	if _, err := s.children.GetEducation(ctx, profileID, recordID); err != nil {
		return nil, storeError(err, "education record not found", "failed to load education record")
	}
	edu := educationFromRequest(req)
	edu.ID, edu.OwnerID = recordID, profileID
	return s.writeEducation(ctx, profileID, req, &edu, actor, models.AuditActionUpdate, s.children.UpdateEducation)
}

func (s *StaffService) writeEducation(ctx context.Context, profileID string, req dto.EducationRequest, edu *models.EducationBackground, actor Actor, action string, write func(context.Context, *models.EducationBackground) error) (*dto.EducationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid education payload")
	}
	if err := s.requireProfile(ctx, profileID); err != nil {
		return nil, err
	}

	var flags models.EducationFlags
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := write(ctx, edu); err != nil {
			return err
		}
		var err error
		flags, err = s.derived.RecomputeEducationFlags(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "education record not found", "failed to save education record")
	}
	s.invalidateStatistics(ctx)
	s.audit.record(ctx, actor, action, models.ResourceEducation, edu.ID, "education record of profile "+profileID)
	return &dto.EducationResponse{Record: edu, Flags: flags}, nil
}

// DeleteEducation removes an education record and recomputes the owner's flags.
func (s *StaffService) DeleteEducation(ctx context.Context, profileID, recordID string, actor Actor) (*dto.EducationResponse, error) {
	var flags models.EducationFlags
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.children.DeleteEducation(ctx, profileID, recordID); err != nil {
			return err
		}
		var err error
		flags, err = s.derived.RecomputeEducationFlags(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "education record not found", "failed to delete education record")
	}
	s.invalidateStatistics(ctx)
	s.audit.record(ctx, actor, models.AuditActionDelete, models.ResourceEducation, recordID, "education record of profile "+profileID)
	return &dto.EducationResponse{Flags: flags}, nil
}

// Statistics returns profile headcounts, served from cache when enabled.
func (s *StaffService) Statistics(ctx context.Context) (*models.StaffStatistics, bool, error) {
	var cached models.StaffStatistics
	if hit, _ := s.cache.Get(ctx, cacheKeyStatistics, &cached); hit {
		return &cached, true, nil
	}
	stats, err := s.profiles.Statistics(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to compute statistics")
	}
	stats.GeneratedAt = s.derived.Now().UTC()
	_ = s.cache.Set(ctx, cacheKeyStatistics, stats, s.statsTTL)
	return stats, false, nil
}

func (s *StaffService) invalidateStatistics(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cachePatternStaff)
}
