package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
	"github.com/noah-isme/staff-records-api/pkg/response"
)

type photoService interface {
	UploadProfilePhoto(ctx context.Context, profileID, filename string, data []byte, actor service.Actor) (*models.StaffProfile, error)
	BatchUpload(ctx context.Context, archive []byte, actor service.Actor) (*dto.PhotoBatchResult, error)
	SignedURL(ctx context.Context, profileID string) (*service.SignedPhotoURL, error)
	Resolve(token string) ([]byte, string, error)
}

// PhotoHandler manages profile photos.
type PhotoHandler struct {
	photos     photoService
	maxUpload  int64
	maxArchive int64
}

// NewPhotoHandler constructs PhotoHandler. maxUpload bounds a single image, maxArchive a ZIP batch.
func NewPhotoHandler(photos photoService, maxUpload, maxArchive int64) *PhotoHandler {
	return &PhotoHandler{photos: photos, maxUpload: maxUpload, maxArchive: maxArchive}
}

// Upload godoc
// @Summary Upload a profile photo
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Profile ID"
// @Param file formData file true "jpg, jpeg, png or gif"
// @Success 200 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /staff/{id}/photo [post]
func (h *PhotoHandler) Upload(c *gin.Context) {
	data, filename, err := readUpload(c, "file", h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.photos.UploadProfilePhoto(c.Request.Context(), c.Param("id"), filename, data, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Batch godoc
// @Summary Upload photos in a ZIP named by staff id
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "ZIP archive"
// @Success 200 {object} response.Envelope
// @Router /staff/photos/batch [post]
func (h *PhotoHandler) Batch(c *gin.Context) {
	data, _, err := readUpload(c, "file", h.maxArchive)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.photos.BatchUpload(c.Request.Context(), data, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SignedURL godoc
// @Summary Issue a temporary photo link
// @Tags Photos
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/{id}/photo-url [get]
func (h *PhotoHandler) SignedURL(c *gin.Context) {
	link, err := h.photos.SignedURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Serve godoc
// @Summary Download a photo through a signed link
// @Tags Photos
// @Produce image/jpeg,image/png,image/gif
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /photos/{token} [get]
func (h *PhotoHandler) Serve(c *gin.Context) {
	data, contentType, err := h.photos.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, contentType, data)
}
