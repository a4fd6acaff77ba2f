package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/middleware"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
	"github.com/noah-isme/staff-records-api/pkg/response"
)

type staffService interface {
	Create(ctx context.Context, req dto.CreateStaffRequest, actor service.Actor) (*models.StaffProfileDetail, error)
	Get(ctx context.Context, id string) (*models.StaffProfileDetail, error)
	List(ctx context.Context, filter models.StaffFilter, actor service.Actor) ([]models.StaffProfile, *models.Pagination, error)
	Update(ctx context.Context, id string, body []byte, actor service.Actor) (*models.StaffProfileDetail, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
	AddEmployment(ctx context.Context, profileID string, req dto.EmploymentRequest, actor service.Actor) (*dto.EmploymentResponse, error)
	UpdateEmployment(ctx context.Context, profileID, recordID string, req dto.EmploymentRequest, actor service.Actor) (*dto.EmploymentResponse, error)
	DeleteEmployment(ctx context.Context, profileID, recordID string, actor service.Actor) (*dto.EmploymentResponse, error)
	AddEducation(ctx context.Context, profileID string, req dto.EducationRequest, actor service.Actor) (*dto.EducationResponse, error)
	UpdateEducation(ctx context.Context, profileID, recordID string, req dto.EducationRequest, actor service.Actor) (*dto.EducationResponse, error)
	DeleteEducation(ctx context.Context, profileID, recordID string, actor service.Actor) (*dto.EducationResponse, error)
	Statistics(ctx context.Context) (*models.StaffStatistics, bool, error)
}

// StaffHandler exposes staff profile endpoints.
type StaffHandler struct {
	staff staffService
}

// NewStaffHandler constructs StaffHandler.
func NewStaffHandler(staff staffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

func staffFilterFromQuery(c *gin.Context) models.StaffFilter {
	var filter models.StaffFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.StaffID = strings.TrimSpace(c.Query("staff_id"))
	filter.EmploymentType = c.Query("employment_type")
	if g := strings.ToUpper(c.Query("gender")); g == string(models.GenderMale) || g == string(models.GenderFemale) {
		gender := models.Gender(g)
		filter.Gender = &gender
	}
	filter.IsMaster = queryBool(c, "is_master")
	filter.IsPhD = queryBool(c, "is_phd")
	filter.IsOverseasStudy = queryBool(c, "is_overseas_study")
	filter.IsForeignNational = queryBool(c, "is_foreign_national")
	if inactive := queryBool(c, "include_inactive"); inactive != nil {
		filter.IncludeInactive = *inactive
	}
	filter.Page, filter.PageSize = queryPage(c)
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")
	return filter
}

// List godoc
// @Summary List staff profiles
// @Tags Staff
// @Produce json
// @Param search query string false "Search staff id or names"
// @Param gender query string false "M or F"
// @Param is_master query bool false "Master flag"
// @Param is_phd query bool false "PhD flag"
// @Param include_inactive query bool false "Include inactive staff (requires edit rights)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	profiles, pagination, err := h.staff.List(c.Request.Context(), staffFilterFromQuery(c), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}

// Get godoc
// @Summary Get staff profile with all records
// @Tags Staff
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/{id} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	profile, err := h.staff.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Create godoc
// @Summary Create staff profile
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body dto.CreateStaffRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	req := dto.NewCreateStaffRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	profile, err := h.staff.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Update godoc
// @Summary Partially update staff profile
// @Description Scalar fields present in the body are overwritten; nested arrays replace that kind of record.
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	profile, err := h.staff.Update(c.Request.Context(), c.Param("id"), body, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Delete godoc
// @Summary Delete staff profile and its records
// @Tags Staff
// @Param id path string true "Profile ID"
// @Success 204
// @Router /staff/{id} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	if err := h.staff.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddEmployment godoc
// @Summary Add employment record
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body dto.EmploymentRequest true "Employment record"
// @Success 201 {object} response.Envelope
// @Router /staff/{id}/employment [post]
func (h *StaffHandler) AddEmployment(c *gin.Context) {
	var req dto.EmploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	res, err := h.staff.AddEmployment(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// UpdateEmployment godoc
// @Summary Replace employment record
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param recordId path string true "Record ID"
// @Param payload body dto.EmploymentRequest true "Employment record"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/employment/{recordId} [put]
func (h *StaffHandler) UpdateEmployment(c *gin.Context) {
	var req dto.EmploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	res, err := h.staff.UpdateEmployment(c.Request.Context(), c.Param("id"), c.Param("recordId"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// DeleteEmployment godoc
// @Summary Delete employment record
// @Tags Staff
// @Produce json
// @Param id path string true "Profile ID"
// @Param recordId path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/employment/{recordId} [delete]
func (h *StaffHandler) DeleteEmployment(c *gin.Context) {
	res, err := h.staff.DeleteEmployment(c.Request.Context(), c.Param("id"), c.Param("recordId"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// AddEducation godoc
// @Summary Add education record
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body dto.EducationRequest true "Education record"
// @Success 201 {object} response.Envelope
// @Router /staff/{id}/education [post]
func (h *StaffHandler) AddEducation(c *gin.Context) {
	var req dto.EducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	res, err := h.staff.AddEducation(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// UpdateEducation godoc
// @Summary Replace education record
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param recordId path string true "Record ID"
// @Param payload body dto.EducationRequest true "Education record"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/education/{recordId} [put]
func (h *StaffHandler) UpdateEducation(c *gin.Context) {
	var req dto.EducationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	res, err := h.staff.UpdateEducation(c.Request.Context(), c.Param("id"), c.Param("recordId"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// DeleteEducation godoc
// @Summary Delete education record
// @Tags Staff
// @Produce json
// @Param id path string true "Profile ID"
// @Param recordId path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/education/{recordId} [delete]
func (h *StaffHandler) DeleteEducation(c *gin.Context) {
	res, err := h.staff.DeleteEducation(c.Request.Context(), c.Param("id"), c.Param("recordId"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Statistics godoc
// @Summary Staff headcounts
// @Tags Staff
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statistics [get]
func (h *StaffHandler) Statistics(c *gin.Context) {
	stats, hit, err := h.staff.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
