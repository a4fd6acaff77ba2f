package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/models"
)

func TestApplicationRepositoryCreateReturnsSubmissionID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("INSERT INTO staff_applications .* RETURNING submission_id").
		WillReturnRows(sqlmock.NewRows([]string{"submission_id"}).AddRow(42))

	app := &models.StaffApplication{PersonalDetails: models.PersonalDetails{NameChinese: "陳大文"}}
	require.NoError(t, repo.Create(context.Background(), app))
	assert.Equal(t, int64(42), app.SubmissionID)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.NotEmpty(t, app.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryMarkDecidedOnlyPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)
	decidedAt := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff_applications SET status = $2, decided_by = $3, decided_at = $4, updated_at = $4 WHERE id = $1 AND status = 'pending'")).
		WithArgs("a1", models.ApplicationApproved, "u1", decidedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff_applications SET status = $2")).
		WithArgs("a1", models.ApplicationRejected, nil, decidedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkDecided(context.Background(), "a1", models.ApplicationApproved, "u1", decidedAt))
	assert.ErrorIs(t, repo.MarkDecided(context.Background(), "a1", models.ApplicationRejected, "", decidedAt), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	status := models.ApplicationPending
	mock.ExpectQuery(regexp.QuoteMeta("FROM staff_applications WHERE 1=1 AND status = $1 ORDER BY application_date DESC LIMIT 20 OFFSET 0")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows(applicationColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM staff_applications WHERE 1=1 AND status = $1")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	apps, total, err := repo.List(context.Background(), models.ApplicationFilter{Status: &status})
	require.NoError(t, err)
	assert.Empty(t, apps)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
