package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
	"github.com/noah-isme/staff-records-api/pkg/response"
)

type applicationService interface {
	Submit(ctx context.Context, req dto.SubmitApplicationRequest) (*models.StaffApplicationDetail, error)
	AttachPicture(ctx context.Context, id, filename string, data []byte) (*models.StaffApplication, error)
	Get(ctx context.Context, id string) (*models.StaffApplicationDetail, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.StaffApplication, *models.Pagination, error)
	Approve(ctx context.Context, ids []string, actor service.Actor) (*dto.ApprovalResult, error)
	Reject(ctx context.Context, ids []string, actor service.Actor) (*dto.RejectionResult, error)
}

// ApplicationHandler exposes the onboarding form and its review endpoints.
type ApplicationHandler struct {
	applications applicationService
	maxUpload    int64
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(applications applicationService, maxUpload int64) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, maxUpload: maxUpload}
}

// Submit godoc
// @Summary Submit an onboarding application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	app, err := h.applications.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// UploadPicture godoc
// @Summary Attach the applicant photo
// @Tags Applications
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Application ID"
// @Param file formData file true "Photo"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/picture [post]
func (h *ApplicationHandler) UploadPicture(c *gin.Context) {
	data, filename, err := readUpload(c, "file", h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.applications.AttachPicture(c.Request.Context(), c.Param("id"), filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// List godoc
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param search query string false "Search names"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	var filter models.ApplicationFilter
	switch status := models.ApplicationStatus(strings.ToLower(c.Query("status"))); status {
	case models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
		filter.Status = &status
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = queryPage(c)

	apps, pagination, err := h.applications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// Get godoc
// @Summary Get application with child records
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Approve godoc
// @Summary Approve applications into staff profiles
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.IDsRequest true "Application ids"
// @Success 200 {object} response.Envelope
// @Router /applications/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	var req dto.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	result, err := h.applications.Approve(c.Request.Context(), req.IDs, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject pending applications
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.IDsRequest true "Application ids"
// @Success 200 {object} response.Envelope
// @Router /applications/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	var req dto.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	result, err := h.applications.Reject(c.Request.Context(), req.IDs, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
