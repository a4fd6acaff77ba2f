package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func runWithHeader(value string) (string, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var seen string
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.Header.Set(headerKey, value)
	}
	r.ServeHTTP(w, req)
	return seen, w.Header().Get(headerKey)
}

func TestMiddlewareReusesInboundID(t *testing.T) {
	seen, header := runWithHeader("abc-123")
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", header)
}

func TestMiddlewareReplacesOversizedID(t *testing.T) {
	seen, header := runWithHeader(strings.Repeat("x", 200))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, header)
}
