package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/pkg/database"
)

var applicationInsertColumns = concatColumns(
	[]string{"id", "application_date", "status", "is_foreign_national"},
	personalColumns,
	flagColumns,
	[]string{"created_at", "updated_at"},
)

var applicationColumns = concatColumns(
	[]string{"id", "submission_id", "application_date", "status", "is_foreign_national"},
	personalColumns,
	flagColumns,
	[]string{"decided_by", "decided_at", "created_at", "updated_at"},
)

var applicationSelect = "SELECT " + columnList(applicationColumns) + " FROM staff_applications"

// ApplicationRepository persists onboarding applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a pending application and fills its database-assigned submission number.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.StaffApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.ApplicationDate.IsZero() {
		app.ApplicationDate = now
	}
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	app.CreatedAt = now
	app.UpdatedAt = now

	q := database.QueryerFromContext(ctx, r.db)
	named := "INSERT INTO staff_applications (" + columnList(applicationInsertColumns) + ") VALUES (" + namedList(applicationInsertColumns) + ") RETURNING submission_id"
	query, args, err := q.BindNamed(named, app)
	if err != nil {
		return fmt.Errorf("bind application insert: %w", err)
	}
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&app.SubmissionID); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID returns an application.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.StaffApplication, error) {
	return r.getOne(ctx, applicationSelect+" WHERE id = $1", id)
}

// GetForUpdate loads an application and locks its row until the surrounding transaction ends.
func (r *ApplicationRepository) GetForUpdate(ctx context.Context, id string) (*models.StaffApplication, error) {
	return r.getOne(ctx, applicationSelect+" WHERE id = $1 FOR UPDATE", id)
}

func (r *ApplicationRepository) getOne(ctx context.Context, query, id string) (*models.StaffApplication, error) {
	var app models.StaffApplication
	if err := database.QueryerFromContext(ctx, r.db).GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}

// List returns a page of applications, newest first.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.StaffApplication, int, error) {
	base := "FROM staff_applications WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(name_chinese) LIKE $%d OR LOWER(name_foreign) LIKE $%d OR LOWER(email) LIKE $%d)", n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	q := database.QueryerFromContext(ctx, r.db)
	query := fmt.Sprintf("SELECT %s %s ORDER BY application_date DESC LIMIT %d OFFSET %d", columnList(applicationColumns), base, size, offset)
	var apps []models.StaffApplication
	if err := q.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	var total int
	if err := q.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// MarkDecided moves a pending application to status. It returns sql.ErrNoRows when the
// application is missing or no longer pending.
func (r *ApplicationRepository) MarkDecided(ctx context.Context, id string, status models.ApplicationStatus, decidedBy string, decidedAt time.Time) error {
	const query = `UPDATE staff_applications SET status = $2, decided_by = $3, decided_at = $4, updated_at = $4 WHERE id = $1 AND status = 'pending'`
	var by interface{}
	if decidedBy != "" {
		by = decidedBy
	}
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, query, id, status, by, decidedAt)
	if err != nil {
		return fmt.Errorf("mark application decided: %w", err)
	}
	return requireAffected(res, "mark application decided")
}

// UpdateProfilePicture stores the storage key of the applicant photo.
func (r *ApplicationRepository) UpdateProfilePicture(ctx context.Context, id, path string) error {
	const query = `UPDATE staff_applications SET profile_picture = $2, updated_at = $3 WHERE id = $1`
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, query, id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application picture: %w", err)
	}
	return requireAffected(res, "update application picture")
}
