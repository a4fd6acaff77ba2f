package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
	"github.com/noah-isme/staff-records-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, format service.ExportFormat, filter models.StaffFilter, actor service.Actor) (*service.ExportResult, error)
}

// ExportHandler streams staff exports as downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Export godoc
// @Summary Export staff profiles
// @Tags Staff
// @Produce octet-stream
// @Param format query string false "csv, pdf or photos"
// @Param include_inactive query bool false "Include inactive staff"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /staff/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	filter := staffFilterFromQuery(c)
	filter.Page, filter.PageSize = 0, 0
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportFormatCSV))))

	result, err := h.exports.Export(c.Request.Context(), format, filter, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}
