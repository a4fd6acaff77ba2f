package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

type authServiceMock struct {
	loginReq     models.LoginRequest
	loggedOut    string
	loggedOutFor string
	created      models.CreateUserRequest
	loginErr     error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginReq = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{TokenPair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{TokenPair: models.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string, userID string, client models.ClientInfo) error {
	m.loggedOut, m.loggedOutFor = refreshToken, userID
	return nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return nil
}

func (m *authServiceMock) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	m.created = req
	return &models.User{ID: "u-2", Email: req.Email, Role: req.Role}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)
	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"hr@example.com","password":"secret123"}`))
	c.Request.Header.Set("User-Agent", "test-agent")

	h.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hr@example.com", mock.loginReq.Email)
	assert.Equal(t, "test-agent", mock.loginReq.UserAgent)

	var res models.LoginResponse
	decode(t, w, &res)
	assert.Equal(t, "access", res.AccessToken)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	mock.loginErr = appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	c, w = newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"hr@example.com","password":"wrong"}`))
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogoutRequiresClaims(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)

	c, w := newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"refresh"}`))
	h.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"refresh"}`))
	withUser(c, models.RoleHR)
	h.Logout(c)
	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "refresh", mock.loggedOut)
	assert.Equal(t, "user-1", mock.loggedOutFor)

	c, w = newGinContext(http.MethodPost, "/auth/logout", []byte(`{}`))
	withUser(c, models.RoleHR)
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMeListsPermissions(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	withUser(c, models.RoleSupervisor)

	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.UserInfo
	decode(t, w, &info)
	assert.Equal(t, models.RoleSupervisor, info.Role)
	assert.ElementsMatch(t, []models.Permission{models.PermViewAllStaff, models.PermViewStatistics}, info.Permissions)
}

func TestAuthHandlerCreateUser(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)
	c, w := newGinContext(http.MethodPost, "/users", []byte(`{"email":"new@example.com","password":"longenough","full_name":"New","role":"HR"}`))

	h.CreateUser(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RoleHR, mock.created.Role)
}

type auditServiceMock struct {
	filter models.AuditLogFilter
}

func (m *auditServiceMock) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	m.filter = filter
	return []models.AuditLog{{ID: "log-1", Action: models.AuditActionView}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func TestAuditHandlerList(t *testing.T) {
	mock := &auditServiceMock{}
	h := NewAuditHandler(mock)
	c, w := newGinContext(http.MethodGet, "/audit-logs?action=VIEW&resource_type=staff_profile&resource_id=p-1&page=2", nil)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AuditLogFilter{Action: "VIEW", ResourceType: "staff_profile", ResourceID: "p-1", Page: 2, PageSize: 20}, mock.filter)

	var logs []models.AuditLog
	env := decode(t, w, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, 2, env.Pagination.Page)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return nil }))
	c, w := newGinContext(http.MethodGet, "/readyz", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return errors.New("connection refused") }))
	c, w = newGinContext(http.MethodGet, "/readyz", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, _ = newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, c.Writer.Status())
}
