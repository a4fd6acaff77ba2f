package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error)
}

// AuditHandler lists the audit trail.
type AuditHandler struct {
	audit auditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit auditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param user_id query string false "Acting user"
// @Param action query string false "Action"
// @Param resource_type query string false "Resource type"
// @Param resource_id query string false "Resource id"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		UserID:       c.Query("user_id"),
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
	}
	filter.Page, filter.PageSize = queryPage(c)
	logs, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
