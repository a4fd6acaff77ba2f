package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
)

type fakeRefresher struct{ opts dto.RefreshOptions }

func (f *fakeRefresher) Refresh(ctx context.Context, opts dto.RefreshOptions) (*dto.RefreshReport, error) {
	f.opts = opts
	return &dto.RefreshReport{Processed: 2, Updated: 1, Unchanged: 1, DryRun: opts.DryRun, Errors: []string{}}, nil
}

type fakeImporter struct {
	body   string
	result dto.ImportResult
}

func (f *fakeImporter) Import(ctx context.Context, r io.Reader, actor service.Actor) (*dto.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	return &f.result, nil
}

type fakeUsers struct{ req models.CreateUserRequest }

func (f *fakeUsers) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	f.req = req
	return &models.User{ID: "u-1", Email: req.Email, Role: req.Role}, nil
}

func run(t *testing.T, d *deps, args ...string) (string, error) {
	t.Helper()
	closed := false
	d.close = func() { closed = true }
	cmd := newRootCmd(func() (*deps, error) { return d, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, closed)
	}
	return out.String(), err
}

func TestUpdateSeniorityFlags(t *testing.T) {
	refresher := &fakeRefresher{}
	out, err := run(t, &deps{seniority: refresher}, "update-seniority", "--staff-id", " S001 ", "--active-only", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, dto.RefreshOptions{StaffID: "S001", ActiveOnly: true, DryRun: true}, refresher.opts)

	var report dto.RefreshReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Updated)
	assert.True(t, report.DryRun)
}

func TestImportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staff.csv")
	require.NoError(t, os.WriteFile(path, []byte("staff_id,staff_name\nS1,Chan\n"), 0o600))

	importer := &fakeImporter{result: dto.ImportResult{ImportedCount: 1, TotalRowsProcessed: 1}}
	out, err := run(t, &deps{imports: importer}, "import", path)
	require.NoError(t, err)
	assert.Equal(t, "staff_id,staff_name\nS1,Chan\n", importer.body)
	assert.Contains(t, out, `"status": "success"`)

	importer.result = dto.ImportResult{TotalRowsProcessed: 1, Errors: []string{"第2行: 缺少必要欄位 (staff_id, staff_name)"}}
	out, err = run(t, &deps{imports: importer}, "import", path)
	require.Error(t, err)
	assert.Contains(t, out, "缺少必要欄位")

	_, err = run(t, &deps{imports: importer}, "import", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestCreateUserCommand(t *testing.T) {
	users := &fakeUsers{}
	_, err := run(t, &deps{users: users}, "create-user", "--email", "admin@example.com", "--name", "Admin", "--password", "longenough", "--role", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, users.req.Role)
	assert.Equal(t, "longenough", users.req.Password)

	_, err = run(t, &deps{users: users}, "create-user", "--email", "x@example.com", "--name", "X", "--role", "guest")
	assert.Error(t, err)

	_, err = run(t, &deps{users: users}, "create-user", "--name", "X")
	assert.Error(t, err)
}

func TestLoaderFailureIsReturned(t *testing.T) {
	cmd := newRootCmd(func() (*deps, error) { return nil, errors.New("db down") })
	cmd.SetArgs([]string{"update-seniority"})
	cmd.SetOut(io.Discard)
	assert.EqualError(t, cmd.ExecuteContext(context.Background()), "db down")
}
