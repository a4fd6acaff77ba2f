package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/pkg/database"
)

func TestChildRepositoryListUsesOwnerTables(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationChildRepository(db)

	for _, kind := range AllChildKinds {
		rows := sqlmock.NewRows(childColumns[kind])
		if kind == ChildEducation {
			rows.AddRow("e1", "a1", "2010-2014", "University of Macau", "Bachelor", "BA", nil, false, false, false)
		}
		mock.ExpectQuery(regexp.QuoteMeta("FROM " + ApplicationChildTables[kind] + " WHERE owner_id = $1 ORDER BY seq")).
			WithArgs("a1").
			WillReturnRows(rows)
	}

	records, err := repo.List(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, records.Educations, 1)
	assert.Equal(t, "University of Macau", records.Educations[0].SchoolName)
	assert.Empty(t, records.FamilyMembers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryCreateAssignsOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileChildRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO staff_family_members").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO staff_education_backgrounds").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO staff_education_backgrounds").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO staff_professional_qualifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	source := models.ChildRecords{
		FamilyMembers:  []models.FamilyMember{{ID: "app-child", OwnerID: "a1", Name: "Chan Siu Ming"}},
		Educations:     []models.EducationBackground{{SchoolName: "Oxford"}, {SchoolName: "澳門大學"}},
		Qualifications: []models.ProfessionalQualification{{QualificationName: "CPA", IssueDate: models.DatePtr(time.Now())}},
	}
	err := database.NewTxManager(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.Create(ctx, "p1", source)
	})
	require.NoError(t, err)
	assert.Equal(t, "app-child", source.FamilyMembers[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryReplaceOnlyListedKinds(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileChildRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM staff_work_experiences WHERE owner_id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO staff_work_experiences").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Replace(context.Background(), "p1", models.ChildRecords{
		WorkExperiences: []models.WorkExperience{{Organization: "ABC School", Position: "Teacher"}},
		Educations:      []models.EducationBackground{{SchoolName: "ignored"}},
	}, ChildWork)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildRepositoryEducationCRUD(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileChildRepository(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO staff_education_backgrounds").WillReturnResult(sqlmock.NewResult(1, 1))
	edu := &models.EducationBackground{OwnerID: "p1", SchoolName: "HKU", EducationFlags: models.EducationFlags{IsMaster: true}}
	require.NoError(t, repo.CreateEducation(ctx, edu))
	assert.NotEmpty(t, edu.ID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff_education_backgrounds SET study_period = ")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateEducation(ctx, edu))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM staff_education_backgrounds WHERE owner_id = $1 AND id = $2")).
		WithArgs("p1", edu.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteEducation(ctx, "p1", edu.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
