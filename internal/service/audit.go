package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

// Actor identifies who triggered an operation and from where.
type Actor struct {
	UserID    string
	Role      models.UserRole
	IP        string
	UserAgent string
}

func (a Actor) userRef() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

type auditSink interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// auditRecorder writes audit entries without ever failing the caller. Entries are written outside
// any transaction so a failed insert cannot poison it.
type auditRecorder struct {
	sink   auditSink
	logger *zap.Logger
}

func (r auditRecorder) record(ctx context.Context, actor Actor, action, resourceType, resourceID, description string) {
	if r.sink == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:       actor.userRef(),
		Action:       action,
		ResourceType: resourceType,
		Description:  description,
		IPAddress:    actor.IP,
		UserAgent:    actor.UserAgent,
	}
	if resourceID != "" {
		id := resourceID
		entry.ResourceID = &id
	}
	if err := r.sink.CreateAuditLog(ctx, entry); err != nil && r.logger != nil {
		r.logger.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.Error(err))
	}
}

type auditLister interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// AuditService exposes the audit trail to administrators.
type AuditService struct {
	store auditLister
}

// NewAuditService constructs an AuditService.
func NewAuditService(store auditLister) *AuditService {
	return &AuditService{store: store}
}

// List returns one page of audit entries, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	logs, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list audit logs")
	}
	return logs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
