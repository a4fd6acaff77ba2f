package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

type importServiceMock struct {
	result *dto.ImportResult
	body   string
}

func (m *importServiceMock) Import(ctx context.Context, r io.Reader, actor service.Actor) (*dto.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.body = string(data)
	return m.result, nil
}

func TestImportHandlerStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		result dto.ImportResult
		status int
	}{
		{"success", dto.ImportResult{ImportedCount: 2, TotalRowsProcessed: 2}, http.StatusCreated},
		{"warning", dto.ImportResult{ImportedCount: 1, TotalRowsProcessed: 2, Errors: []string{"第3行: 缺少必要欄位 (staff_id, staff_name)"}}, http.StatusOK},
		{"error", dto.ImportResult{TotalRowsProcessed: 1, Errors: []string{"第2行處理錯誤: 無法儲存員工資料"}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.result
			mock := &importServiceMock{result: &result}
			h := NewImportHandler(mock, 1024, 10)
			c, w := newMultipartContext(t, "/staff/import", "file", "staff.csv", []byte("staff_id,staff_name\n"))

			h.Import(c)
			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, "staff_id,staff_name\n", mock.body)

			var body importResponse
			decode(t, w, &body)
			assert.Equal(t, dto.ImportStatus(tc.name), body.Status)
			assert.Equal(t, tc.result.TotalRowsProcessed, body.TotalRowsProcessed)
		})
	}
}

func TestImportHandlerCapsReportedErrors(t *testing.T) {
	result := dto.ImportResult{ImportedCount: 1, TotalRowsProcessed: 6}
	for i := 0; i < 5; i++ {
		result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 缺少必要欄位 (staff_id, staff_name)", i+3))
	}
	h := NewImportHandler(&importServiceMock{result: &result}, 1024, 2)
	c, w := newMultipartContext(t, "/staff/import", "file", "staff.csv", []byte("x"))

	h.Import(c)
	require.Equal(t, http.StatusOK, w.Code)
	var body importResponse
	decode(t, w, &body)
	assert.Equal(t, result.ReportedErrors(2), body.Errors)
	assert.Less(t, len(body.Errors), len(result.Errors))
}

type exportServiceMock struct {
	format service.ExportFormat
	filter models.StaffFilter
	err    error
}

func (m *exportServiceMock) Export(ctx context.Context, format service.ExportFormat, filter models.StaffFilter, actor service.Actor) (*service.ExportResult, error) {
	m.format, m.filter = format, filter
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportResult{Filename: "員工資料.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("\ufeffstaff_id\n")}, nil
}

func TestExportHandlerAttachment(t *testing.T) {
	mock := &exportServiceMock{}
	h := NewExportHandler(mock)
	c, w := newGinContext(http.MethodGet, "/staff/export?is_master=true&page=3", nil)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, mock.format)
	require.NotNil(t, mock.filter.IsMaster)
	assert.Zero(t, mock.filter.Page)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=UTF-8''")
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "\ufeffstaff_id\n", w.Body.String())
}

func TestExportHandlerUnknownFormat(t *testing.T) {
	mock := &exportServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	h := NewExportHandler(mock)
	c, w := newGinContext(http.MethodGet, "/staff/export?format=XLSX", nil)

	h.Export(c)
	assert.Equal(t, service.ExportFormat("xlsx"), mock.format)
	assert.Equal(t, appErrors.ErrValidation.Status, w.Code)
}

type photoServiceMock struct {
	uploadedFor string
	archive     []byte
	resolveErr  error
}

func (m *photoServiceMock) UploadProfilePhoto(ctx context.Context, profileID, filename string, data []byte, actor service.Actor) (*models.StaffProfile, error) {
	m.uploadedFor = profileID
	return &models.StaffProfile{ID: profileID}, nil
}

func (m *photoServiceMock) BatchUpload(ctx context.Context, archive []byte, actor service.Actor) (*dto.PhotoBatchResult, error) {
	m.archive = archive
	return &dto.PhotoBatchResult{SuccessCount: 1}, nil
}

func (m *photoServiceMock) SignedURL(ctx context.Context, profileID string) (*service.SignedPhotoURL, error) {
	return &service.SignedPhotoURL{URL: "/api/v1/photos/tok", Token: "tok"}, nil
}

func (m *photoServiceMock) Resolve(token string) ([]byte, string, error) {
	if m.resolveErr != nil {
		return nil, "", m.resolveErr
	}
	return []byte("img"), "image/png", nil
}

func TestPhotoHandlerUploadAndBatch(t *testing.T) {
	mock := &photoServiceMock{}
	h := NewPhotoHandler(mock, 8, 64)

	c, w := newMultipartContext(t, "/staff/p-1/photo", "file", "S1.png", []byte("img"))
	c.Params = gin.Params{{Key: "id", Value: "p-1"}}
	h.Upload(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p-1", mock.uploadedFor)

	c, w = newMultipartContext(t, "/staff/photos/batch", "file", "photos.zip", make([]byte, 32))
	h.Batch(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, mock.archive, 32)

	c, w = newMultipartContext(t, "/staff/p-1/photo", "file", "S1.png", make([]byte, 32))
	c.Params = gin.Params{{Key: "id", Value: "p-1"}}
	h.Upload(c)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPhotoHandlerServe(t *testing.T) {
	mock := &photoServiceMock{}
	h := NewPhotoHandler(mock, 0, 0)
	c, w := newGinContext(http.MethodGet, "/photos/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}

	h.Serve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=300", w.Header().Get("Cache-Control"))
	assert.Equal(t, "img", w.Body.String())

	mock.resolveErr = appErrors.Clone(appErrors.ErrForbidden, "invalid photo token")
	c, w = newGinContext(http.MethodGet, "/photos/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Serve(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
