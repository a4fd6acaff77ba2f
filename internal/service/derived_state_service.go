package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/models"
)

type derivedProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.StaffProfile, error)
	UpdateSeniority(ctx context.Context, id, description string) error
	UpdateEducationFlags(ctx context.Context, id string, flags models.EducationFlags) error
}

type employmentLister interface {
	ListByProfile(ctx context.Context, profileID string, eligibleOnly bool) ([]models.EmploymentRecord, error)
}

type educationLister interface {
	ListEducations(ctx context.Context, ownerID string) ([]models.EducationBackground, error)
}

// Clock supplies the current time.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// DerivedState is the recomputed state of one profile.
type DerivedState struct {
	Seniority string                `json:"school_seniority_description"`
	Flags     models.EducationFlags `json:"education_flags"`
}

// DerivedStateService recomputes seniority and aggregate education flags of a profile from its
// owned records. Reads and writes go through the transaction carried by ctx when there is one.
type DerivedStateService struct {
	profiles    derivedProfileStore
	employments employmentLister
	educations  educationLister
	clock       Clock
	logger      *zap.Logger
}

// DerivedStateOption customises a DerivedStateService.
type DerivedStateOption func(*DerivedStateService)

// WithClock overrides the time source used for seniority.
func WithClock(clock Clock) DerivedStateOption {
	return func(s *DerivedStateService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewDerivedStateService constructs a DerivedStateService.
func NewDerivedStateService(profiles derivedProfileStore, employments employmentLister, educations educationLister, logger *zap.Logger, opts ...DerivedStateOption) *DerivedStateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DerivedStateService{
		profiles:    profiles,
		employments: employments,
		educations:  educations,
		clock:       utcNow,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading.
func (s *DerivedStateService) Now() time.Time {
	return s.clock()
}

// SeniorityFor computes the seniority description of profile without writing it.
func (s *DerivedStateService) SeniorityFor(ctx context.Context, profile *models.StaffProfile) (string, error) {
	in := SeniorityInput{Active: profile.IsActive, EntryDate: profile.EntryDate}
	if in.Active && (in.EntryDate == nil || in.EntryDate.IsZero()) {
		records, err := s.employments.ListByProfile(ctx, profile.ID, true)
		if err != nil {
			return "", fmt.Errorf("load eligible employment for %s: %w", profile.ID, err)
		}
		for _, r := range records {
			in.EligibleStarts = append(in.EligibleStarts, r.EntryDate)
		}
	}
	return ComputeSeniority(in, s.clock()).String(), nil
}

// RecomputeSeniority recomputes and stores the seniority description of a profile.
func (s *DerivedStateService) RecomputeSeniority(ctx context.Context, profileID string) (string, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("load profile %s: %w", profileID, err)
	}
	description, err := s.SeniorityFor(ctx, profile)
	if err != nil {
		return "", err
	}
	if err := s.profiles.UpdateSeniority(ctx, profileID, description); err != nil {
		return "", fmt.Errorf("store seniority for %s: %w", profileID, err)
	}
	return description, nil
}

// RecomputeEducationFlags aggregates and stores the education flags of a profile.
func (s *DerivedStateService) RecomputeEducationFlags(ctx context.Context, profileID string) (models.EducationFlags, error) {
	records, err := s.educations.ListEducations(ctx, profileID)
	if err != nil {
		return models.EducationFlags{}, fmt.Errorf("load educations for %s: %w", profileID, err)
	}
	flags := AggregateEducationFlags(records)
	if err := s.profiles.UpdateEducationFlags(ctx, profileID, flags); err != nil {
		return models.EducationFlags{}, fmt.Errorf("store education flags for %s: %w", profileID, err)
	}
	return flags, nil
}

// RecomputeAll refreshes both derived values.
func (s *DerivedStateService) RecomputeAll(ctx context.Context, profileID string) (*DerivedState, error) {
	flags, err := s.RecomputeEducationFlags(ctx, profileID)
	if err != nil {
		return nil, err
	}
	seniority, err := s.RecomputeSeniority(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return &DerivedState{Seniority: seniority, Flags: flags}, nil
}

// EmploymentWarnings reports overlapping employment intervals of a profile. Overlaps never block
// a write.
func (s *DerivedStateService) EmploymentWarnings(ctx context.Context, profileID string) ([]models.EmploymentOverlap, error) {
	records, err := s.employments.ListByProfile(ctx, profileID, false)
	if err != nil {
		return nil, fmt.Errorf("load employment for %s: %w", profileID, err)
	}
	overlaps := DetectEmploymentOverlaps(records)
	if len(overlaps) > 0 {
		s.logger.Warn("overlapping employment records",
			zap.String("profile_id", profileID),
			zap.Int("overlaps", len(overlaps)))
	}
	return overlaps, nil
}
