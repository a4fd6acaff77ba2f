package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/pkg/database"
)

const employmentSelect = `SELECT id, owner_id, employment_type, entry_date, departure_date, is_valid_for_seniority, remark, created_at, updated_at FROM staff_employment_records`

// EmploymentRepository persists employment intervals of profiles.
type EmploymentRepository struct {
	db *sqlx.DB
}

// NewEmploymentRepository constructs an EmploymentRepository.
func NewEmploymentRepository(db *sqlx.DB) *EmploymentRepository {
	return &EmploymentRepository{db: db}
}

// ListByProfile returns a profile's records ordered by entry date. eligibleOnly keeps only
// records flagged valid for seniority.
func (r *EmploymentRepository) ListByProfile(ctx context.Context, profileID string, eligibleOnly bool) ([]models.EmploymentRecord, error) {
	query := employmentSelect + " WHERE owner_id = $1"
	if eligibleOnly {
		query += " AND is_valid_for_seniority = TRUE"
	}
	query += " ORDER BY entry_date ASC, created_at ASC"

	var records []models.EmploymentRecord
	if err := database.QueryerFromContext(ctx, r.db).SelectContext(ctx, &records, query, profileID); err != nil {
		return nil, fmt.Errorf("list employment records: %w", err)
	}
	return records, nil
}

// Get returns one record scoped to its profile.
func (r *EmploymentRepository) Get(ctx context.Context, profileID, id string) (*models.EmploymentRecord, error) {
	var record models.EmploymentRecord
	err := database.QueryerFromContext(ctx, r.db).GetContext(ctx, &record, employmentSelect+" WHERE owner_id = $1 AND id = $2", profileID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get employment record: %w", err)
	}
	return &record, nil
}

// Create inserts an employment record.
func (r *EmploymentRepository) Create(ctx context.Context, record *models.EmploymentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO staff_employment_records (id, owner_id, employment_type, entry_date, departure_date, is_valid_for_seniority, remark, created_at, updated_at) VALUES (:id, :owner_id, :employment_type, :entry_date, :departure_date, :is_valid_for_seniority, :remark, :created_at, :updated_at)`
	if _, err := database.QueryerFromContext(ctx, r.db).NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create employment record: %w", err)
	}
	return nil
}

// Update rewrites an employment record.
func (r *EmploymentRepository) Update(ctx context.Context, record *models.EmploymentRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff_employment_records SET employment_type = :employment_type, entry_date = :entry_date, departure_date = :departure_date, is_valid_for_seniority = :is_valid_for_seniority, remark = :remark, updated_at = :updated_at WHERE id = :id AND owner_id = :owner_id`
	res, err := database.QueryerFromContext(ctx, r.db).NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update employment record: %w", err)
	}
	return requireAffected(res, "update employment record")
}

// Delete removes an employment record.
func (r *EmploymentRepository) Delete(ctx context.Context, profileID, id string) error {
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, `DELETE FROM staff_employment_records WHERE owner_id = $1 AND id = $2`, profileID, id)
	if err != nil {
		return fmt.Errorf("delete employment record: %w", err)
	}
	return requireAffected(res, "delete employment record")
}
