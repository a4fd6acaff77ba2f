package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/pkg/database"
)

// ChildKind names one kind of record owned by a profile or an application.
type ChildKind string

const (
	ChildFamily        ChildKind = "family_members"
	ChildEducation     ChildKind = "educations"
	ChildWork          ChildKind = "work_experiences"
	ChildQualification ChildKind = "professional_qualifications"
	ChildAssociation   ChildKind = "association_positions"
)

// AllChildKinds lists every owned record kind.
var AllChildKinds = []ChildKind{ChildFamily, ChildEducation, ChildWork, ChildQualification, ChildAssociation}

// ChildTables maps each kind to the table holding it for one owner type.
type ChildTables map[ChildKind]string

var (
	// ProfileChildTables are owned by staff_profiles.
	ProfileChildTables = ChildTables{
		ChildFamily:        "staff_family_members",
		ChildEducation:     "staff_education_backgrounds",
		ChildWork:          "staff_work_experiences",
		ChildQualification: "staff_professional_qualifications",
		ChildAssociation:   "staff_association_positions",
	}
	// ApplicationChildTables are owned by staff_applications.
	ApplicationChildTables = ChildTables{
		ChildFamily:        "application_family_members",
		ChildEducation:     "application_education_backgrounds",
		ChildWork:          "application_work_experiences",
		ChildQualification: "application_professional_qualifications",
		ChildAssociation:   "application_association_positions",
	}
)

var childColumns = map[ChildKind][]string{
	ChildFamily:        {"id", "owner_id", "name", "relationship", "birth_date", "age", "education_level", "institution", "alumni_class"},
	ChildEducation:     {"id", "owner_id", "study_period", "school_name", "education_level", "degree_name", "certificate_date", "is_master", "is_phd", "is_overseas_study"},
	ChildWork:          {"id", "owner_id", "employment_period", "organization", "position", "salary"},
	ChildQualification: {"id", "owner_id", "qualification_name", "issuing_organization", "issue_date"},
	ChildAssociation:   {"id", "owner_id", "association_name", "position", "start_year", "end_year"},
}

// ChildRepository persists the owned records of one owner type.
type ChildRepository struct {
	db     *sqlx.DB
	tables ChildTables
}

// NewProfileChildRepository serves the records owned by staff profiles.
func NewProfileChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db, tables: ProfileChildTables}
}

// NewApplicationChildRepository serves the records owned by applications.
func NewApplicationChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db, tables: ApplicationChildTables}
}

func (r *ChildRepository) selectQuery(kind ChildKind) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE owner_id = $1 ORDER BY seq", columnList(childColumns[kind]), r.tables[kind])
}

func (r *ChildRepository) insertQuery(kind ChildKind) string {
	cols := childColumns[kind]
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.tables[kind], columnList(cols), namedList(cols))
}

// List loads every owned record of ownerID.
func (r *ChildRepository) List(ctx context.Context, ownerID string) (*models.ChildRecords, error) {
	q := database.QueryerFromContext(ctx, r.db)
	records := &models.ChildRecords{}
	targets := map[ChildKind]interface{}{
		ChildFamily:        &records.FamilyMembers,
		ChildEducation:     &records.Educations,
		ChildWork:          &records.WorkExperiences,
		ChildQualification: &records.Qualifications,
		ChildAssociation:   &records.AssociationPositions,
	}
	for _, kind := range AllChildKinds {
		if err := q.SelectContext(ctx, targets[kind], r.selectQuery(kind), ownerID); err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
	}
	return records, nil
}

// ListEducations loads the education records of ownerID.
func (r *ChildRepository) ListEducations(ctx context.Context, ownerID string) ([]models.EducationBackground, error) {
	var educations []models.EducationBackground
	if err := database.QueryerFromContext(ctx, r.db).SelectContext(ctx, &educations, r.selectQuery(ChildEducation), ownerID); err != nil {
		return nil, fmt.Errorf("list educations: %w", err)
	}
	return educations, nil
}

// GetEducation returns one education record scoped to its owner.
func (r *ChildRepository) GetEducation(ctx context.Context, ownerID, id string) (*models.EducationBackground, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE owner_id = $1 AND id = $2", columnList(childColumns[ChildEducation]), r.tables[ChildEducation])
	var edu models.EducationBackground
	if err := database.QueryerFromContext(ctx, r.db).GetContext(ctx, &edu, query, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get education: %w", err)
	}
	return &edu, nil
}

// CreateEducation inserts one education record.
func (r *ChildRepository) CreateEducation(ctx context.Context, edu *models.EducationBackground) error {
	if edu.ID == "" {
		edu.ID = uuid.NewString()
	}
	if _, err := database.QueryerFromContext(ctx, r.db).NamedExecContext(ctx, r.insertQuery(ChildEducation), edu); err != nil {
		return fmt.Errorf("create education: %w", err)
	}
	return nil
}

// UpdateEducation rewrites one education record.
func (r *ChildRepository) UpdateEducation(ctx context.Context, edu *models.EducationBackground) error {
	cols := childColumns[ChildEducation][2:]
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id AND owner_id = :owner_id", r.tables[ChildEducation], namedAssignments(cols))
	res, err := database.QueryerFromContext(ctx, r.db).NamedExecContext(ctx, query, edu)
	if err != nil {
		return fmt.Errorf("update education: %w", err)
	}
	return requireAffected(res, "update education")
}

// DeleteEducation removes one education record.
func (r *ChildRepository) DeleteEducation(ctx context.Context, ownerID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE owner_id = $1 AND id = $2", r.tables[ChildEducation])
	res, err := database.QueryerFromContext(ctx, r.db).ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete education: %w", err)
	}
	return requireAffected(res, "delete education")
}

// Create inserts every record in records under ownerID, assigning fresh ids.
func (r *ChildRepository) Create(ctx context.Context, ownerID string, records models.ChildRecords) error {
	return r.insert(ctx, ownerID, records, AllChildKinds)
}

// Replace deletes the listed kinds for ownerID and inserts the given records of those kinds.
func (r *ChildRepository) Replace(ctx context.Context, ownerID string, records models.ChildRecords, kinds ...ChildKind) error {
	q := database.QueryerFromContext(ctx, r.db)
	for _, kind := range kinds {
		if _, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE owner_id = $1", r.tables[kind]), ownerID); err != nil {
			return fmt.Errorf("clear %s: %w", kind, err)
		}
	}
	return r.insert(ctx, ownerID, records, kinds)
}

func (r *ChildRepository) insert(ctx context.Context, ownerID string, records models.ChildRecords, kinds []ChildKind) error {
	q := database.QueryerFromContext(ctx, r.db)
	exec := func(kind ChildKind, row interface{}) error {
		if _, err := q.NamedExecContext(ctx, r.insertQuery(kind), row); err != nil {
			return fmt.Errorf("create %s: %w", kind, err)
		}
		return nil
	}

	for _, kind := range kinds {
		var err error
		switch kind {
		case ChildFamily:
			for i := range records.FamilyMembers {
				row := records.FamilyMembers[i]
				row.ID, row.OwnerID = uuid.NewString(), ownerID
				if err = exec(kind, &row); err != nil {
					break
				}
			}
		case ChildEducation:
			for i := range records.Educations {
				row := records.Educations[i]
				row.ID, row.OwnerID = uuid.NewString(), ownerID
				if err = exec(kind, &row); err != nil {
					break
				}
			}
		case ChildWork:
			for i := range records.WorkExperiences {
				row := records.WorkExperiences[i]
				row.ID, row.OwnerID = uuid.NewString(), ownerID
				if err = exec(kind, &row); err != nil {
					break
				}
			}
		case ChildQualification:
			for i := range records.Qualifications {
				row := records.Qualifications[i]
				row.ID, row.OwnerID = uuid.NewString(), ownerID
				if err = exec(kind, &row); err != nil {
					break
				}
			}
		case ChildAssociation:
			for i := range records.AssociationPositions {
				row := records.AssociationPositions[i]
				row.ID, row.OwnerID = uuid.NewString(), ownerID
				if err = exec(kind, &row); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
