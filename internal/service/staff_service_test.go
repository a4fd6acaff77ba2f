package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

var hrActor = Actor{UserID: "hr-1", Role: models.RoleHR}

func createRequest(staffID, name string) dto.CreateStaffRequest {
	req := dto.NewCreateStaffRequest()
	req.StaffID = staffID
	req.StaffName = name
	return req
}

func TestStaffServiceCreateComputesDerivedState(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	svc := f.staffService()

	req := createRequest(" T100 ", "Chan Tai Man")
	req.EntryDate = datePtr(2020, time.January, 15)
	req.SeniorityDescription = "99年0個月"
	req.IsPhD = true
	req.Educations = []models.EducationBackground{{SchoolName: "University of Toronto", EducationFlags: models.EducationFlags{IsMaster: true, IsOverseasStudy: true}}}

	detail, err := svc.Create(context.Background(), req, hrActor)
	require.NoError(t, err)
	assert.Equal(t, "T100", detail.StaffID)
	assert.Equal(t, "Chan Tai Man", detail.NameChinese)
	assert.Equal(t, models.GenderMale, detail.Gender)
	assert.Equal(t, "4年1個月", detail.SeniorityDescription)
	assert.Equal(t, models.EducationFlags{IsMaster: true, IsOverseasStudy: true}, detail.EducationFlags)
	require.Len(t, detail.Educations, 1)
	require.NotNil(t, detail.CreatedBy)
	assert.Equal(t, "hr-1", *detail.CreatedBy)
	assert.Contains(t, f.store.auditActions(), models.AuditActionCreate)

	_, err = svc.Create(context.Background(), createRequest("T100", "Other"), hrActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceCreateValidates(t *testing.T) {
	svc := newFixture(fixedClock(2024, time.March, 10)).staffService()

	_, err := svc.Create(context.Background(), createRequest("", "Nameless"), hrActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req := createRequest("T101", "Backwards")
	req.EntryDate = datePtr(2020, time.January, 1)
	req.DepartureDate = datePtr(2019, time.January, 1)
	_, err = svc.Create(context.Background(), req, hrActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceUpdatePartial(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	svc := f.staffService()
	req := createRequest("T200", "Lee")
	req.EntryDate = datePtr(2020, time.January, 15)
	req.Remark = "keep me"
	req.Educations = []models.EducationBackground{{SchoolName: "澳門大學", EducationFlags: models.EducationFlags{IsMaster: true}}}
	created, err := svc.Create(context.Background(), req, hrActor)
	require.NoError(t, err)

	body := []byte(`{"entry_date":"2022-03-10","educations":[{"school_name":"Oxford","is_phd":true,"is_overseas_study":true}],"school_seniority_description":"hacked","is_master":true}`)
	updated, err := svc.Update(context.Background(), created.ID, body, hrActor)
	require.NoError(t, err)
	assert.Equal(t, "keep me", updated.Remark)
	assert.Equal(t, "2年0個月", updated.SeniorityDescription)
	assert.Equal(t, models.EducationFlags{IsPhD: true, IsOverseasStudy: true}, updated.EducationFlags)
	require.Len(t, updated.Educations, 1)
	assert.Equal(t, "Oxford", updated.Educations[0].SchoolName)

	deactivated, err := svc.Update(context.Background(), created.ID, []byte(`{"is_active":false}`), hrActor)
	require.NoError(t, err)
	assert.Equal(t, models.ZeroSeniority, deactivated.SeniorityDescription)

	_, err = svc.Update(context.Background(), "missing", []byte(`{}`), hrActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceEmploymentWarnings(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	svc := f.staffService()
	created, err := svc.Create(context.Background(), createRequest("T300", "Wong"), hrActor)
	require.NoError(t, err)
	assert.Equal(t, models.ZeroSeniority, created.SeniorityDescription)

	first, err := svc.AddEmployment(context.Background(), created.ID, dto.EmploymentRequest{EntryDate: models.NewDate(2019, time.March, 1), DepartureDate: datePtr(2021, time.June, 30)}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, "5年0個月", first.Seniority)
	assert.Empty(t, first.Warnings)

	second, err := svc.AddEmployment(context.Background(), created.ID, dto.EmploymentRequest{EntryDate: models.NewDate(2021, time.January, 1)}, hrActor)
	require.NoError(t, err)
	assert.Len(t, second.Warnings, 1)

	_, err = svc.AddEmployment(context.Background(), created.ID, dto.EmploymentRequest{EntryDate: models.NewDate(2021, time.January, 1), DepartureDate: datePtr(2020, time.January, 1)}, hrActor)
	require.Error(t, err)

	deleted, err := svc.DeleteEmployment(context.Background(), created.ID, first.Record.ID, hrActor)
	require.NoError(t, err)
	assert.Equal(t, "3年2個月", deleted.Seniority)
	assert.Empty(t, deleted.Warnings)
}

func TestStaffServiceEducationCRUD(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	svc := f.staffService()
	created, err := svc.Create(context.Background(), createRequest("T400", "Ho"), hrActor)
	require.NoError(t, err)

	added, err := svc.AddEducation(context.Background(), created.ID, dto.EducationRequest{SchoolName: "MIT", IsMaster: true}, hrActor)
	require.NoError(t, err)
	assert.True(t, added.Flags.IsMaster)

	updated, err := svc.UpdateEducation(context.Background(), created.ID, added.Record.ID, dto.EducationRequest{SchoolName: "MIT", IsPhD: true}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, models.EducationFlags{IsPhD: true}, updated.Flags)

	removed, err := svc.DeleteEducation(context.Background(), created.ID, added.Record.ID, hrActor)
	require.NoError(t, err)
	assert.False(t, removed.Flags.Any())
	assert.False(t, f.store.profiles[created.ID].EducationFlags.Any())

	_, err = svc.AddEducation(context.Background(), created.ID, dto.EducationRequest{}, hrActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStaffServiceListHidesInactiveForReaders(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	svc := f.staffService()
	_, err := svc.Create(context.Background(), createRequest("A1", "Active"), hrActor)
	require.NoError(t, err)
	inactive := createRequest("A2", "Gone")
	inactive.IsActive = false
	_, err = svc.Create(context.Background(), inactive, hrActor)
	require.NoError(t, err)

	list, page, err := svc.List(context.Background(), models.StaffFilter{IncludeInactive: true}, Actor{Role: models.RoleReadOnly})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 20, page.PageSize)

	list, _, err = svc.List(context.Background(), models.StaffFilter{IncludeInactive: true}, hrActor)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	stats, hit, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, stats.TotalStaff)
	assert.Equal(t, 1, stats.InactiveStaff)
}

func TestStaffServiceDelete(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	svc := f.staffService()
	created, err := svc.Create(context.Background(), createRequest("D1", "Delete Me"), hrActor)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, hrActor))
	_, err = svc.Get(context.Background(), created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(svc.Delete(context.Background(), created.ID, hrActor)).Code)
}
