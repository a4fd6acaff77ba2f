package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/pkg/jobs"
)

// JobTypeSeniorityRefresh names queue jobs handled by SeniorityRefreshService.
const JobTypeSeniorityRefresh = "seniority_refresh"

type seniorityProfileStore interface {
	ListForSeniority(ctx context.Context, staffID string, activeOnly bool) ([]models.StaffProfile, error)
	UpdateSeniority(ctx context.Context, id, description string) error
}

// SeniorityRefreshService recomputes stored seniority descriptions, which otherwise only change
// when a profile or its employment records are written.
type SeniorityRefreshService struct {
	profiles seniorityProfileStore
	derived  *DerivedStateService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSeniorityRefreshService constructs a SeniorityRefreshService.
func NewSeniorityRefreshService(profiles seniorityProfileStore, derived *DerivedStateService, metrics *MetricsService, logger *zap.Logger) *SeniorityRefreshService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeniorityRefreshService{profiles: profiles, derived: derived, metrics: metrics, logger: logger}
}

// Refresh recomputes every selected profile. A dry run reports changes without writing them.
func (s *SeniorityRefreshService) Refresh(ctx context.Context, opts dto.RefreshOptions) (*dto.RefreshReport, error) {
	profiles, err := s.profiles.ListForSeniority(ctx, opts.StaffID, opts.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("list profiles for seniority: %w", err)
	}
	report := &dto.RefreshReport{DryRun: opts.DryRun, Errors: []string{}, Changes: []dto.SeniorityChange{}}
	for i := range profiles {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p := &profiles[i]
		report.Processed++
		current, err := s.derived.SeniorityFor(ctx, p)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", p.StaffID, err))
			continue
		}
		if current == p.SeniorityDescription {
			report.Unchanged++
			continue
		}
		if !opts.DryRun {
			if err := s.profiles.UpdateSeniority(ctx, p.ID, current); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", p.StaffID, err))
				continue
			}
		}
		report.Updated++
		report.Changes = append(report.Changes, dto.SeniorityChange{StaffID: p.StaffID, Previous: p.SeniorityDescription, Current: current})
	}

	if !opts.DryRun {
		s.metrics.RecordSeniorityRefresh(report.Updated, report.Unchanged, len(report.Errors))
	}
	s.logger.Info("seniority refresh finished",
		zap.Int("processed", report.Processed),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("errors", len(report.Errors)),
		zap.Bool("dry_run", opts.DryRun))
	return report, nil
}

// Job builds a queue job that refreshes with opts.
func (s *SeniorityRefreshService) Job(opts dto.RefreshOptions) jobs.Job {
	return jobs.Job{Type: JobTypeSeniorityRefresh, Payload: opts}
}

// HandleJob is the jobs.Handler for refresh jobs. A refresh with row errors is not retried.
func (s *SeniorityRefreshService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeSeniorityRefresh {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}
	opts, _ := job.Payload.(dto.RefreshOptions)
	_, err := s.Refresh(ctx, opts)
	return err
}
