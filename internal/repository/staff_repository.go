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

// ErrDuplicateStaffID is returned when the staff_id unique constraint rejects a write.
var ErrDuplicateStaffID = errors.New("staff id already exists")

const staffIDConstraint = "staff_profiles_staff_id_key"

var staffScalarColumns = []string{
	"staff_id", "staff_name", "employment_type", "employment_type_remark", "dsej_registration_status",
	"dsej_registration_rank", "entry_date", "departure_date", "retirement_date", "position_grade",
	"teaching_staff_salary_grade", "basic_salary_points", "adjusted_salary_points", "provident_fund_type",
	"remark", "contract_number", "is_active", "is_foreign_national",
}

// updatable columns exclude derived state, which only the recompute paths write.
var staffUpdatableColumns = concatColumns(staffScalarColumns, personalColumns)

var staffColumns = concatColumns(
	[]string{"id"},
	staffScalarColumns,
	[]string{"school_seniority_description"},
	personalColumns,
	flagColumns,
	[]string{"created_by", "created_at", "updated_at"},
)

var staffSelect = "SELECT " + columnList(staffColumns) + " FROM staff_profiles"

// StaffRepository manages persistence for staff profiles.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs a StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create inserts a profile. Unique staff_id violations surface as ErrDuplicateStaffID.
func (r *StaffRepository) Create(ctx context.Context, profile *models.StaffProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if profile.SeniorityDescription == "" {
		profile.SeniorityDescription = models.ZeroSeniority
	}

	query := "INSERT INTO staff_profiles (" + columnList(staffColumns) + ") VALUES (" + namedList(staffColumns) + ")"
	if _, err := database.QueryerFromContext(ctx, r.db).NamedExecContext(ctx, query, profile); err != nil {
		if database.IsUniqueViolation(err, staffIDConstraint) {
			return fmt.Errorf("create staff profile %s: %w", profile.StaffID, ErrDuplicateStaffID)
		}
		return fmt.Errorf("create staff profile: %w", err)
	}
	return nil
}

// GetByID returns a profile by its primary key.
func (r *StaffRepository) GetByID(ctx context.Context, id string) (*models.StaffProfile, error) {
	return r.getOne(ctx, "get staff profile", staffSelect+" WHERE id = $1", id)
}

// GetByStaffID returns a profile by its business identifier.
func (r *StaffRepository) GetByStaffID(ctx context.Context, staffID string) (*models.StaffProfile, error) {
	return r.getOne(ctx, "get staff profile by staff id", staffSelect+" WHERE staff_id = $1", staffID)
}

// FindByIdentity returns the first profile matching a Chinese name and birth date. A nil birth
// date matches profiles without one.
func (r *StaffRepository) FindByIdentity(ctx context.Context, nameChinese string, birthDate *models.Date) (*models.StaffProfile, error) {
	return r.getOne(ctx, "find staff profile by identity",
		staffSelect+" WHERE name_chinese = $1 AND birth_date IS NOT DISTINCT FROM $2 ORDER BY created_at LIMIT 1",
		nameChinese, birthDate)
}

func (r *StaffRepository) getOne(ctx context.Context, op, query string, args ...interface{}) (*models.StaffProfile, error) {
	var profile models.StaffProfile
	if err := database.QueryerFromContext(ctx, r.db).GetContext(ctx, &profile, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &profile, nil
}

// ExistsByStaffID reports whether a profile already uses staffID.
func (r *StaffRepository) ExistsByStaffID(ctx context.Context, staffID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM staff_profiles WHERE staff_id = $1)`
	if err := database.QueryerFromContext(ctx, r.db).GetContext(ctx, &exists, query, staffID); err != nil {
		return false, fmt.Errorf("check staff id: %w", err)
	}
	return exists, nil
}

func staffConditions(filter models.StaffFilter) (string, []interface{}) {
	base := "FROM staff_profiles WHERE 1=1"
	var conditions []string
	var args []interface{}

	if !filter.IncludeInactive {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.StaffID != "" {
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", len(args)+1))
		args = append(args, filter.StaffID)
	}
	if filter.Gender != nil {
		conditions = append(conditions, fmt.Sprintf("gender = $%d", len(args)+1))
		args = append(args, *filter.Gender)
	}
	if filter.EmploymentType != "" {
		conditions = append(conditions, fmt.Sprintf("employment_type = $%d", len(args)+1))
		args = append(args, filter.EmploymentType)
	}
	boolFilters := []struct {
		column string
		value  *bool
	}{
		{"is_master", filter.IsMaster},
		{"is_phd", filter.IsPhD},
		{"is_overseas_study", filter.IsOverseasStudy},
		{"is_foreign_national", filter.IsForeignNational},
	}
	for _, f := range boolFilters {
		if f.value == nil {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", f.column, len(args)+1))
		args = append(args, *f.value)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(staff_id) LIKE $%d OR LOWER(staff_name) LIKE $%d OR LOWER(name_chinese) LIKE $%d OR LOWER(name_foreign) LIKE $%d)", n, n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	return base, args
}

func staffOrder(filter models.StaffFilter) string {
	allowedSorts := map[string]string{
		"staff_id":   "staff_id",
		"staff_name": "staff_name",
		"entry_date": "entry_date",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "staff_id"
	}
	order := normalizeOrder(filter.SortOrder)
	if filter.SortOrder == "" {
		order = "ASC"
	}
	return column + " " + order
}

// List returns one page of profiles with the total match count.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffProfile, int, error) {
	base, args := staffConditions(filter)
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	q := database.QueryerFromContext(ctx, r.db)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", columnList(staffColumns), base, staffOrder(filter), size, offset)
	var profiles []models.StaffProfile
	if err := q.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff profiles: %w", err)
	}

	var total int
	if err := q.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff profiles: %w", err)
	}
	return profiles, total, nil
}

// ListAll returns every profile matching filter without pagination.
func (r *StaffRepository) ListAll(ctx context.Context, filter models.StaffFilter) ([]models.StaffProfile, error) {
	base, args := staffConditions(filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s", columnList(staffColumns), base, staffOrder(filter))
	var profiles []models.StaffProfile
	if err := database.QueryerFromContext(ctx, r.db).SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("list all staff profiles: %w", err)
	}
	return profiles, nil
}

// ListForSeniority returns the profiles a seniority refresh should visit.
func (r *StaffRepository) ListForSeniority(ctx context.Context, staffID string, activeOnly bool) ([]models.StaffProfile, error) {
	query := staffSelect + " WHERE 1=1"
	var args []interface{}
	if staffID != "" {
		args = append(args, staffID)
		query += fmt.Sprintf(" AND staff_id = $%d", len(args))
	}
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY staff_id"

	var profiles []models.StaffProfile
	if err := database.QueryerFromContext(ctx, r.db).SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("list staff for seniority: %w", err)
	}
	return profiles, nil
}

// Update writes the editable columns of a profile.
func (r *StaffRepository) Update(ctx context.Context, profile *models.StaffProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	query := "UPDATE staff_profiles SET " + namedAssignments(staffUpdatableColumns) + ", updated_at = :updated_at WHERE id = :id"
	res, err := database.QueryerFromContext(ctx, r.db).NamedExecContext(ctx, query, profile)
	if err != nil {
		if database.IsUniqueViolation(err, staffIDConstraint) {
			return fmt.Errorf("update staff profile %s: %w", profile.StaffID, ErrDuplicateStaffID)
		}
		return fmt.Errorf("update staff profile: %w", err)
	}
	return requireAffected(res, "update staff profile")
}

// UpdateSeniority stores a recomputed seniority description.
func (r *StaffRepository) UpdateSeniority(ctx context.Context, id, description string) error {
	const query = `UPDATE staff_profiles SET school_seniority_description = $2, updated_at = $3 WHERE id = $1`
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, query, id, description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update seniority: %w", err)
	}
	return requireAffected(res, "update seniority")
}

// UpdateEducationFlags stores recomputed education flags.
func (r *StaffRepository) UpdateEducationFlags(ctx context.Context, id string, flags models.EducationFlags) error {
	const query = `UPDATE staff_profiles SET is_master = $2, is_phd = $3, is_overseas_study = $4, updated_at = $5 WHERE id = $1`
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, query, id, flags.IsMaster, flags.IsPhD, flags.IsOverseasStudy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update education flags: %w", err)
	}
	return requireAffected(res, "update education flags")
}

// UpdateProfilePicture stores the storage key of a profile photo.
func (r *StaffRepository) UpdateProfilePicture(ctx context.Context, id, path string) error {
	const query = `UPDATE staff_profiles SET profile_picture = $2, updated_at = $3 WHERE id = $1`
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, query, id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile picture: %w", err)
	}
	return requireAffected(res, "update profile picture")
}

// Delete removes a profile. Owned records go with it through ON DELETE CASCADE.
func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, `DELETE FROM staff_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staff profile: %w", err)
	}
	return requireAffected(res, "delete staff profile")
}

// Statistics aggregates headcounts over the profile table.
func (r *StaffRepository) Statistics(ctx context.Context) (*models.StaffStatistics, error) {
	const query = `SELECT
		COUNT(*) AS total_staff,
		COUNT(*) FILTER (WHERE is_active) AS active_staff,
		COUNT(*) FILTER (WHERE NOT is_active) AS inactive_staff,
		COUNT(*) FILTER (WHERE is_master) AS master_count,
		COUNT(*) FILTER (WHERE is_phd) AS phd_count,
		COUNT(*) FILTER (WHERE is_overseas_study) AS overseas_count,
		COUNT(*) FILTER (WHERE is_foreign_national) AS foreign_count
		FROM staff_profiles`
	var stats models.StaffStatistics
	if err := database.QueryerFromContext(ctx, r.db).GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("staff statistics: %w", err)
	}
	stats.GeneratedAt = time.Now().UTC()
	return &stats, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
