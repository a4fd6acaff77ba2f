package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-records-api/internal/middleware"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext describes the caller for audit purposes. Public routes yield an actor without
// a user id.
func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := claimsFromContext(c); claims != nil {
		actor.UserID = claims.UserID
		actor.Role = claims.Role
	}
	return actor
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func queryBool(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func queryPage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

func invalidPayload(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg)
}

// readUpload reads the multipart file field into memory, refusing anything over maxBytes.
func readUpload(c *gin.Context, field string, maxBytes int64) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", invalidPayload(err, "file field "+field+" is required")
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, "", appErrors.Clone(appErrors.ErrPayloadTooLarge, "uploaded file is too large")
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to open upload")
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, "", appErrors.Internal(err, "failed to read upload")
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return nil, "", appErrors.Clone(appErrors.ErrPayloadTooLarge, "uploaded file is too large")
	}
	return buf.Bytes(), strings.TrimSpace(header.Filename), nil
}
