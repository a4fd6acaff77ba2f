package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/repository"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

const (
	applicationPhotoDir = "application_photos"
	staffPhotoDir       = "staff_photos"
	maxStaffIDAttempts  = 5
)

type applicationStore interface {
	Create(ctx context.Context, app *models.StaffApplication) error
	GetByID(ctx context.Context, id string) (*models.StaffApplication, error)
	GetForUpdate(ctx context.Context, id string) (*models.StaffApplication, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.StaffApplication, int, error)
	MarkDecided(ctx context.Context, id string, status models.ApplicationStatus, decidedBy string, decidedAt time.Time) error
	UpdateProfilePicture(ctx context.Context, id, path string) error
}

type approvalProfileStore interface {
	FindByIdentity(ctx context.Context, nameChinese string, birthDate *models.Date) (*models.StaffProfile, error)
	ExistsByStaffID(ctx context.Context, staffID string) (bool, error)
	Create(ctx context.Context, profile *models.StaffProfile) error
	UpdateProfilePicture(ctx context.Context, id, path string) error
}

type childRecordStore interface {
	List(ctx context.Context, ownerID string) (*models.ChildRecords, error)
	Create(ctx context.Context, ownerID string, records models.ChildRecords) error
}

type blobStore interface {
	Save(name string, data []byte) (string, error)
	Copy(src, dst string) (string, error)
}

type applicationRules struct {
	NameChinese string        `validate:"required,max=200"`
	Gender      models.Gender `validate:"required,oneof=M F"`
	BirthDate   *models.Date  `validate:"required"`
	Email       string        `validate:"omitempty,email"`
}

// ApplicationService handles public onboarding submissions and their review.
type ApplicationService struct {
	applications    applicationStore
	appChildren     childRecordStore
	profiles        approvalProfileStore
	profileChildren childRecordStore
	derived         *DerivedStateService
	blobs           blobStore
	tx              transactor
	audit           auditRecorder
	metrics         *MetricsService
	cache           *CacheService
	suffix          func() string
	validator       *validator.Validate
	logger          *zap.Logger
}

// ApplicationServiceOption customises an ApplicationService.
type ApplicationServiceOption func(*ApplicationService)

// WithApplicationMetrics records decision counters.
func WithApplicationMetrics(metrics *MetricsService) ApplicationServiceOption {
	return func(s *ApplicationService) { s.metrics = metrics }
}

// WithApplicationCache invalidates cached statistics after approvals.
func WithApplicationCache(cache *CacheService) ApplicationServiceOption {
	return func(s *ApplicationService) { s.cache = cache }
}

// WithStaffIDSuffix overrides the generator of collision suffixes for temporary staff ids.
func WithStaffIDSuffix(fn func() string) ApplicationServiceOption {
	return func(s *ApplicationService) {
		if fn != nil {
			s.suffix = fn
		}
	}
}

func uuidSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(applications applicationStore, appChildren childRecordStore, profiles approvalProfileStore, profileChildren childRecordStore, derived *DerivedStateService, blobs blobStore, tx transactor, audit auditSink, validate *validator.Validate, logger *zap.Logger, opts ...ApplicationServiceOption) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ApplicationService{
		applications:    applications,
		appChildren:     appChildren,
		profiles:        profiles,
		profileChildren: profileChildren,
		derived:         derived,
		blobs:           blobs,
		tx:              tx,
		audit:           auditRecorder{sink: audit, logger: logger},
		suffix:          uuidSuffix,
		validator:       validate,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and stores a pending application with its child records.
func (s *ApplicationService) Submit(ctx context.Context, req dto.SubmitApplicationRequest) (*models.StaffApplicationDetail, error) {
	details := req.PersonalDetails
	trimStrings(&details)
	details.ProfilePicture = ""
	if err := s.validator.Struct(applicationRules{NameChinese: details.NameChinese, Gender: details.Gender, BirthDate: details.BirthDate, Email: details.Email}); err != nil {
		return nil, appErrors.Validation(err, "invalid application payload")
	}
	today := models.DateOf(s.derived.Now())
	if details.BirthDate.IsZero() || details.BirthDate.After(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must not be in the future")
	}
	if details.IDExpiryDate != nil && !details.IDExpiryDate.IsZero() && details.IDExpiryDate.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "id_expiry_date has already passed")
	}

	children := compactChildren(req.ChildRecords)
	app := &models.StaffApplication{
		Status:            models.ApplicationPending,
		IsForeignNational: req.IsForeignNational,
		PersonalDetails:   details,
		EducationFlags:    req.EducationFlags,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.applications.Create(ctx, app); err != nil {
			return err
		}
		return s.appChildren.Create(ctx, app.ID, children)
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to submit application")
	}
	s.logger.Info("application submitted", zap.String("application_id", app.ID), zap.Int64("submission_id", app.SubmissionID))
	return &models.StaffApplicationDetail{StaffApplication: *app, ChildRecords: children}, nil
}

// AttachPicture stores the applicant photo. Decided applications are immutable.
func (s *ApplicationService) AttachPicture(ctx context.Context, id, filename string, data []byte) (*models.StaffApplication, error) {
	ext, err := photoExtension(filename)
	if err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "application not found", "failed to load application")
	}
	if app.Status != models.ApplicationPending {
		return nil, appErrors.ErrApplicationDecided
	}
	name := path.Join(applicationPhotoDir, fmt.Sprintf("%d_%s%s", app.SubmissionID, app.ID, ext))
	stored, err := s.blobs.Save(name, data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store picture")
	}
	if err := s.applications.UpdateProfilePicture(ctx, id, stored); err != nil {
		return nil, storeError(err, "application not found", "failed to update application")
	}
	app.ProfilePicture = stored
	return app, nil
}

// Get returns an application with its child records.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.StaffApplicationDetail, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "application not found", "failed to load application")
	}
	children, err := s.appChildren.List(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load application records")
	}
	return &models.StaffApplicationDetail{StaffApplication: *app, ChildRecords: *children}, nil
}

// List returns one page of applications.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.StaffApplication, *models.Pagination, error) {
	apps, total, err := s.applications.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list applications")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return apps, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

type approvalOutcome struct {
	profile *models.StaffProfile
	skip    *dto.ApprovalSkip
	picture string
}

// Approve converts each pending application into a profile. Every application runs in its own
// transaction; a failure leaves that application pending and does not stop the others.
func (s *ApplicationService) Approve(ctx context.Context, ids []string, actor Actor) (*dto.ApprovalResult, error) {
	if err := s.validator.Struct(dto.IDsRequest{IDs: ids}); err != nil {
		return nil, appErrors.Validation(err, "ids are required")
	}
	result := &dto.ApprovalResult{
		Approved: []dto.ApprovedProfile{},
		Skipped:  []dto.ApprovalSkip{},
		Errors:   []string{},
		Warnings: []string{},
	}
	failed := 0
	for _, id := range ids {
		outcome, err := s.approveWithRetry(ctx, id, actor)
		if err != nil {
			failed++
			result.Errors = append(result.Errors, approvalErrorMessage(id, err))
			s.logger.Warn("application approval failed", zap.String("application_id", id), zap.Error(err))
			continue
		}
		if outcome.skip != nil {
			result.Skipped = append(result.Skipped, *outcome.skip)
			if outcome.skip.StaffID != "" {
				s.audit.record(ctx, actor, models.AuditActionApprove, models.ResourceStaffApplication, id, "approved as existing profile "+outcome.skip.StaffID)
			}
			continue
		}

		profile := outcome.profile
		if outcome.picture != "" {
			if warning := s.copyPicture(ctx, profile, outcome.picture); warning != "" {
				result.Warnings = append(result.Warnings, warning)
			}
		}
		result.ApprovedCount++
		result.Approved = append(result.Approved, dto.ApprovedProfile{ApplicationID: id, ProfileID: profile.ID, StaffID: profile.StaffID})
		s.audit.record(ctx, actor, models.AuditActionApprove, models.ResourceStaffApplication, id, "approved into profile "+profile.StaffID)
	}

	if result.ApprovedCount > 0 {
		_ = s.cache.Invalidate(ctx, cachePatternStaff)
	}
	s.metrics.RecordApplicationDecision("approved", result.ApprovedCount)
	s.metrics.RecordApplicationDecision("skipped", len(result.Skipped))
	s.metrics.RecordApplicationDecision("failed", failed)
	result.Message = fmt.Sprintf("成功批准 %d 個申請", result.ApprovedCount)
	s.logger.Info("applications approved",
		zap.Int("approved", result.ApprovedCount),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", failed))
	return result, nil
}

func approvalErrorMessage(id string, err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status < 500 {
		return fmt.Sprintf("%s: %s", id, appErr.Message)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Sprintf("%s: application not found", id)
	}
	return fmt.Sprintf("%s: failed to approve application", id)
}

func (s *ApplicationService) approveWithRetry(ctx context.Context, id string, actor Actor) (*approvalOutcome, error) {
	var lastErr error
	for attempt := 0; attempt < maxStaffIDAttempts; attempt++ {
		outcome, err := s.approveOne(ctx, id, actor, attempt > 0)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, repository.ErrDuplicateStaffID) {
			return nil, err
		}
		lastErr = err
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "could not allocate a unique staff id")
}

func (s *ApplicationService) approveOne(ctx context.Context, id string, actor Actor, forceSuffix bool) (*approvalOutcome, error) {
	outcome := &approvalOutcome{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		app, err := s.applications.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if app.Status != models.ApplicationPending {
			outcome.skip = &dto.ApprovalSkip{ApplicationID: id, Reason: "application already " + string(app.Status)}
			return nil
		}
		now := s.derived.Now()

		existing, err := s.profiles.FindByIdentity(ctx, app.NameChinese, app.BirthDate)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if existing != nil {
			outcome.skip = &dto.ApprovalSkip{ApplicationID: id, Reason: "profile already exists", StaffID: existing.StaffID}
			return s.applications.MarkDecided(ctx, id, models.ApplicationApproved, actor.UserID, now)
		}

		staffID, err := s.temporaryStaffID(ctx, app.SubmissionID, forceSuffix)
		if err != nil {
			return err
		}
		profile := profileFromApplication(app, staffID, actor)
		if err := s.profiles.Create(ctx, profile); err != nil {
			return err
		}
		children, err := s.appChildren.List(ctx, app.ID)
		if err != nil {
			return err
		}
		if err := s.profileChildren.Create(ctx, profile.ID, *children); err != nil {
			return err
		}
		if _, err := s.derived.RecomputeEducationFlags(ctx, profile.ID); err != nil {
			return err
		}
		if _, err := s.derived.RecomputeSeniority(ctx, profile.ID); err != nil {
			return err
		}
		if err := s.applications.MarkDecided(ctx, id, models.ApplicationApproved, actor.UserID, now); err != nil {
			return err
		}
		outcome.profile = profile
		outcome.picture = app.ProfilePicture
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *ApplicationService) temporaryStaffID(ctx context.Context, submissionID int64, forceSuffix bool) (string, error) {
	base := fmt.Sprintf("TEMP-%d", submissionID)
	candidate := base
	if forceSuffix {
		candidate = base + "-" + s.suffix()
	}
	for {
		taken, err := s.profiles.ExistsByStaffID(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + s.suffix()
	}
}

func profileFromApplication(app *models.StaffApplication, staffID string, actor Actor) *models.StaffProfile {
	details := app.PersonalDetails
	details.ProfilePicture = ""
	return &models.StaffProfile{
		StaffID:              staffID,
		StaffName:            app.NameChinese,
		IsActive:             true,
		SeniorityDescription: models.ZeroSeniority,
		IsForeignNational:    false,
		PersonalDetails:      details,
		EducationFlags:       models.EducationFlags{},
		CreatedBy:            actor.userRef(),
	}
}

func (s *ApplicationService) copyPicture(ctx context.Context, profile *models.StaffProfile, src string) string {
	dst := path.Join(staffPhotoDir, profile.StaffID+"_"+path.Base(src))
	stored, err := s.blobs.Copy(src, dst)
	if err == nil {
		err = s.profiles.UpdateProfilePicture(ctx, profile.ID, stored)
	}
	if err != nil {
		s.logger.Warn("failed to copy application picture",
			zap.String("staff_id", profile.StaffID),
			zap.String("source", src),
			zap.Error(err))
		return fmt.Sprintf("%s: picture was not copied", profile.StaffID)
	}
	profile.ProfilePicture = stored
	return ""
}

// Reject marks pending applications as rejected. Decided ones are left untouched.
func (s *ApplicationService) Reject(ctx context.Context, ids []string, actor Actor) (*dto.RejectionResult, error) {
	if err := s.validator.Struct(dto.IDsRequest{IDs: ids}); err != nil {
		return nil, appErrors.Validation(err, "ids are required")
	}
	result := &dto.RejectionResult{Skipped: []string{}}
	for _, id := range ids {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			app, err := s.applications.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if app.Status != models.ApplicationPending {
				return appErrors.ErrApplicationDecided
			}
			return s.applications.MarkDecided(ctx, id, models.ApplicationRejected, actor.UserID, s.derived.Now())
		})
		if err != nil {
			if !errors.Is(err, appErrors.ErrApplicationDecided) && !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("application rejection failed", zap.String("application_id", id), zap.Error(err))
			}
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.RejectedCount++
		s.audit.record(ctx, actor, models.AuditActionReject, models.ResourceStaffApplication, id, "rejected application")
	}
	s.metrics.RecordApplicationDecision("rejected", result.RejectedCount)
	result.Message = fmt.Sprintf("已拒絕 %d 個申請", result.RejectedCount)
	return result, nil
}

// trimStrings trims every string field of a flat struct in place.
func trimStrings(ptr interface{}) {
	v := reflect.ValueOf(ptr).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// blankRecord reports whether every exported field other than the keys is empty.
func blankRecord(rec interface{}) bool {
	v := reflect.ValueOf(rec)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		switch t.Field(i).Name {
		case "ID", "OwnerID":
			continue
		}
		f := v.Field(i)
		if f.Kind() == reflect.String {
			if strings.TrimSpace(f.String()) != "" {
				return false
			}
			continue
		}
		if !f.IsZero() {
			return false
		}
	}
	return true
}

func compactChildren(in models.ChildRecords) models.ChildRecords {
	var out models.ChildRecords
	for _, r := range in.FamilyMembers {
		if !blankRecord(r) {
			trimStrings(&r)
			out.FamilyMembers = append(out.FamilyMembers, r)
		}
	}
	for _, r := range in.Educations {
		if !blankRecord(r) {
			trimStrings(&r)
			out.Educations = append(out.Educations, r)
		}
	}
	for _, r := range in.WorkExperiences {
		if !blankRecord(r) {
			trimStrings(&r)
			out.WorkExperiences = append(out.WorkExperiences, r)
		}
	}
	for _, r := range in.Qualifications {
		if !blankRecord(r) {
			trimStrings(&r)
			out.Qualifications = append(out.Qualifications, r)
		}
	}
	for _, r := range in.AssociationPositions {
		if !blankRecord(r) {
			trimStrings(&r)
			out.AssociationPositions = append(out.AssociationPositions, r)
		}
	}
	return out
}
