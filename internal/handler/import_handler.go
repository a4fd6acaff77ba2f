package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/service"
	"github.com/noah-isme/staff-records-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, r io.Reader, actor service.Actor) (*dto.ImportResult, error)
}

// ImportHandler accepts CSV uploads of staff profiles.
type ImportHandler struct {
	imports    importService
	maxUpload  int64
	errorLimit int
}

// NewImportHandler constructs ImportHandler. errorLimit caps the row errors echoed back.
func NewImportHandler(imports importService, maxUpload int64, errorLimit int) *ImportHandler {
	return &ImportHandler{imports: imports, maxUpload: maxUpload, errorLimit: errorLimit}
}

type importResponse struct {
	Status             dto.ImportStatus `json:"status"`
	ImportedCount      int              `json:"imported_count"`
	TotalRowsProcessed int              `json:"total_rows_processed"`
	Errors             []string         `json:"errors"`
}

// Import godoc
// @Summary Import staff profiles from CSV
// @Description Returns 201 when every row imported, 200 on partial success and 400 when nothing imported.
// @Tags Staff
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /staff/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	data, _, err := readUpload(c, "file", h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.imports.Import(c.Request.Context(), bytes.NewReader(data), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	body := importResponse{
		Status:             result.Status(),
		ImportedCount:      result.ImportedCount,
		TotalRowsProcessed: result.TotalRowsProcessed,
		Errors:             result.ReportedErrors(h.errorLimit),
	}
	status := http.StatusOK
	switch body.Status {
	case dto.ImportSuccess:
		status = http.StatusCreated
	case dto.ImportError:
		status = http.StatusBadRequest
	}
	response.JSON(c, status, body, nil)
}
