package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/repository"
	"github.com/noah-isme/staff-records-api/pkg/storage"
)

// memStore is an in-memory stand-in for the postgres repositories. WithinTx snapshots the state
// and restores it when fn fails.
type memStore struct {
	mu          sync.Mutex
	profiles    map[string]models.StaffProfile
	employments map[string][]models.EmploymentRecord
	children    map[string]models.ChildRecords
	apps        map[string]models.StaffApplication
	appChildren map[string]models.ChildRecords
	audits      []models.AuditLog
	nextSubmit  int64
	inTx        bool

	failChildCreate   error
	failEducationList error
	failProfileCreate func(p *models.StaffProfile) error
}

func newMemStore() *memStore {
	return &memStore{
		profiles:    map[string]models.StaffProfile{},
		employments: map[string][]models.EmploymentRecord{},
		children:    map[string]models.ChildRecords{},
		apps:        map[string]models.StaffApplication{},
		appChildren: map[string]models.ChildRecords{},
		nextSubmit:  1,
	}
}

type memSnapshot struct {
	profiles    map[string]models.StaffProfile
	employments map[string][]models.EmploymentRecord
	children    map[string]models.ChildRecords
	apps        map[string]models.StaffApplication
	appChildren map[string]models.ChildRecords
}

func copyChildren(c models.ChildRecords) models.ChildRecords {
	return models.ChildRecords{
		FamilyMembers:        append([]models.FamilyMember(nil), c.FamilyMembers...),
		Educations:           append([]models.EducationBackground(nil), c.Educations...),
		WorkExperiences:      append([]models.WorkExperience(nil), c.WorkExperiences...),
		Qualifications:       append([]models.ProfessionalQualification(nil), c.Qualifications...),
		AssociationPositions: append([]models.AssociationPosition(nil), c.AssociationPositions...),
	}
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		profiles:    map[string]models.StaffProfile{},
		employments: map[string][]models.EmploymentRecord{},
		children:    map[string]models.ChildRecords{},
		apps:        map[string]models.StaffApplication{},
		appChildren: map[string]models.ChildRecords{},
	}
	for k, v := range m.profiles {
		s.profiles[k] = v
	}
	for k, v := range m.employments {
		s.employments[k] = append([]models.EmploymentRecord(nil), v...)
	}
	for k, v := range m.children {
		s.children[k] = copyChildren(v)
	}
	for k, v := range m.apps {
		s.apps[k] = v
	}
	for k, v := range m.appChildren {
		s.appChildren[k] = copyChildren(v)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.profiles, m.employments, m.children, m.apps, m.appChildren = s.profiles, s.employments, s.children, s.apps, s.appChildren
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.inTx {
		return fn(ctx)
	}
	m.mu.Lock()
	snap := m.snapshot()
	m.inTx = true
	m.mu.Unlock()

	err := fn(ctx)

	m.mu.Lock()
	m.inTx = false
	if err != nil {
		m.restore(snap)
	}
	m.mu.Unlock()
	return err
}

func (m *memStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *log)
	return nil
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		out = append(out, a.Action)
	}
	return out
}

// profileFake implements the profile store interfaces.
type profileFake struct{ *memStore }

func (f profileFake) Create(ctx context.Context, p *models.StaffProfile) error {
	if f.failProfileCreate != nil {
		if err := f.failProfileCreate(p); err != nil {
			return err
		}
	}
	for _, existing := range f.profiles {
		if existing.StaffID == p.StaffID {
			return repository.ErrDuplicateStaffID
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.SeniorityDescription == "" {
		p.SeniorityDescription = models.ZeroSeniority
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	f.profiles[p.ID] = *p
	return nil
}

func (f profileFake) GetByID(ctx context.Context, id string) (*models.StaffProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (f profileFake) GetByStaffID(ctx context.Context, staffID string) (*models.StaffProfile, error) {
	for _, p := range f.profiles {
		if p.StaffID == staffID {
			p := p
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f profileFake) FindByIdentity(ctx context.Context, name string, birth *models.Date) (*models.StaffProfile, error) {
	for _, p := range f.profiles {
		sameBirth := (p.BirthDate == nil && birth == nil) || (p.BirthDate != nil && birth != nil && p.BirthDate.String() == birth.String())
		if p.NameChinese == name && sameBirth {
			p := p
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f profileFake) ExistsByStaffID(ctx context.Context, staffID string) (bool, error) {
	_, err := f.GetByStaffID(ctx, staffID)
	return err == nil, nil
}

func (f profileFake) sorted(filter models.StaffFilter) []models.StaffProfile {
	var out []models.StaffProfile
	for _, p := range f.profiles {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.StaffID+" "+p.StaffName), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffID < out[j].StaffID })
	return out
}

func (f profileFake) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffProfile, int, error) {
	out := f.sorted(filter)
	return out, len(out), nil
}

func (f profileFake) ListAll(ctx context.Context, filter models.StaffFilter) ([]models.StaffProfile, error) {
	return f.sorted(filter), nil
}

func (f profileFake) ListForSeniority(ctx context.Context, staffID string, activeOnly bool) ([]models.StaffProfile, error) {
	out := f.sorted(models.StaffFilter{IncludeInactive: !activeOnly})
	if staffID == "" {
		return out, nil
	}
	var filtered []models.StaffProfile
	for _, p := range out {
		if p.StaffID == staffID {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (f profileFake) Update(ctx context.Context, p *models.StaffProfile) error {
	if _, ok := f.profiles[p.ID]; !ok {
		return sql.ErrNoRows
	}
	for id, existing := range f.profiles {
		if id != p.ID && existing.StaffID == p.StaffID {
			return repository.ErrDuplicateStaffID
		}
	}
	p.UpdatedAt = time.Now().UTC()
	f.profiles[p.ID] = *p
	return nil
}

func (f profileFake) mutate(id string, fn func(p *models.StaffProfile)) error {
	p, ok := f.profiles[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(&p)
	f.profiles[id] = p
	return nil
}

func (f profileFake) UpdateSeniority(ctx context.Context, id, description string) error {
	return f.mutate(id, func(p *models.StaffProfile) { p.SeniorityDescription = description })
}

func (f profileFake) UpdateEducationFlags(ctx context.Context, id string, flags models.EducationFlags) error {
	return f.mutate(id, func(p *models.StaffProfile) { p.EducationFlags = flags })
}

func (f profileFake) UpdateProfilePicture(ctx context.Context, id, path string) error {
	return f.mutate(id, func(p *models.StaffProfile) { p.ProfilePicture = path })
}

func (f profileFake) Delete(ctx context.Context, id string) error {
	if _, ok := f.profiles[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.profiles, id)
	delete(f.employments, id)
	delete(f.children, id)
	return nil
}

func (f profileFake) Statistics(ctx context.Context) (*models.StaffStatistics, error) {
	stats := &models.StaffStatistics{}
	for _, p := range f.profiles {
		stats.TotalStaff++
		if p.IsActive {
			stats.ActiveStaff++
		} else {
			stats.InactiveStaff++
		}
		if p.IsMaster {
			stats.MasterCount++
		}
		if p.IsPhD {
			stats.PhDCount++
		}
	}
	return stats, nil
}

// employmentFake implements employmentStore.
type employmentFake struct{ *memStore }

func (f employmentFake) ListByProfile(ctx context.Context, profileID string, eligibleOnly bool) ([]models.EmploymentRecord, error) {
	var out []models.EmploymentRecord
	for _, r := range f.employments[profileID] {
		if eligibleOnly && !r.IsValidForSeniority {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out, nil
}

func (f employmentFake) Get(ctx context.Context, profileID, id string) (*models.EmploymentRecord, error) {
	for _, r := range f.employments[profileID] {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f employmentFake) Create(ctx context.Context, r *models.EmploymentRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	f.employments[r.OwnerID] = append(f.employments[r.OwnerID], *r)
	return nil
}

func (f employmentFake) Update(ctx context.Context, r *models.EmploymentRecord) error {
	list := f.employments[r.OwnerID]
	for i := range list {
		if list[i].ID == r.ID {
			list[i] = *r
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f employmentFake) Delete(ctx context.Context, profileID, id string) error {
	list := f.employments[profileID]
	for i := range list {
		if list[i].ID == id {
			f.employments[profileID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// childFake implements the child record stores for profiles or applications.
type childFake struct {
	*memStore
	applications bool
}

func (f childFake) table() map[string]models.ChildRecords {
	if f.applications {
		return f.appChildren
	}
	return f.children
}

func (f childFake) List(ctx context.Context, ownerID string) (*models.ChildRecords, error) {
	c := copyChildren(f.table()[ownerID])
	return &c, nil
}

func (f childFake) ListEducations(ctx context.Context, ownerID string) ([]models.EducationBackground, error) {
	if f.failEducationList != nil {
		return nil, f.failEducationList
	}
	return append([]models.EducationBackground(nil), f.table()[ownerID].Educations...), nil
}

func (f childFake) Create(ctx context.Context, ownerID string, records models.ChildRecords) error {
	if f.failChildCreate != nil && !f.applications {
		return f.failChildCreate
	}
	c := f.table()[ownerID]
	for _, r := range records.FamilyMembers {
		r.ID, r.OwnerID = uuid.NewString(), ownerID
		c.FamilyMembers = append(c.FamilyMembers, r)
	}
	for _, r := range records.Educations {
		r.ID, r.OwnerID = uuid.NewString(), ownerID
		c.Educations = append(c.Educations, r)
	}
	for _, r := range records.WorkExperiences {
		r.ID, r.OwnerID = uuid.NewString(), ownerID
		c.WorkExperiences = append(c.WorkExperiences, r)
	}
	for _, r := range records.Qualifications {
		r.ID, r.OwnerID = uuid.NewString(), ownerID
		c.Qualifications = append(c.Qualifications, r)
	}
	for _, r := range records.AssociationPositions {
		r.ID, r.OwnerID = uuid.NewString(), ownerID
		c.AssociationPositions = append(c.AssociationPositions, r)
	}
	f.table()[ownerID] = c
	return nil
}

func (f childFake) Replace(ctx context.Context, ownerID string, records models.ChildRecords, kinds ...repository.ChildKind) error {
	c := f.table()[ownerID]
	for _, k := range kinds {
		switch k {
		case repository.ChildFamily:
			c.FamilyMembers = nil
		case repository.ChildEducation:
			c.Educations = nil
		case repository.ChildWork:
			c.WorkExperiences = nil
		case repository.ChildQualification:
			c.Qualifications = nil
		case repository.ChildAssociation:
			c.AssociationPositions = nil
		}
	}
	f.table()[ownerID] = c
	return f.Create(ctx, ownerID, records)
}

func (f childFake) GetEducation(ctx context.Context, ownerID, id string) (*models.EducationBackground, error) {
	for _, e := range f.table()[ownerID].Educations {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f childFake) CreateEducation(ctx context.Context, edu *models.EducationBackground) error {
	if edu.ID == "" {
		edu.ID = uuid.NewString()
	}
	c := f.table()[edu.OwnerID]
	c.Educations = append(c.Educations, *edu)
	f.table()[edu.OwnerID] = c
	return nil
}

func (f childFake) UpdateEducation(ctx context.Context, edu *models.EducationBackground) error {
	c := f.table()[edu.OwnerID]
	for i := range c.Educations {
		if c.Educations[i].ID == edu.ID {
			c.Educations[i] = *edu
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f childFake) DeleteEducation(ctx context.Context, ownerID, id string) error {
	c := f.table()[ownerID]
	for i := range c.Educations {
		if c.Educations[i].ID == id {
			c.Educations = append(c.Educations[:i:i], c.Educations[i+1:]...)
			f.table()[ownerID] = c
			return nil
		}
	}
	return sql.ErrNoRows
}

// applicationFake implements applicationStore.
type applicationFake struct{ *memStore }

func (f applicationFake) Create(ctx context.Context, app *models.StaffApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	app.SubmissionID = f.nextSubmit
	f.nextSubmit++
	f.apps[app.ID] = *app
	return nil
}

func (f applicationFake) GetByID(ctx context.Context, id string) (*models.StaffApplication, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &app, nil
}

func (f applicationFake) GetForUpdate(ctx context.Context, id string) (*models.StaffApplication, error) {
	return f.GetByID(ctx, id)
}

func (f applicationFake) List(ctx context.Context, filter models.ApplicationFilter) ([]models.StaffApplication, int, error) {
	var out []models.StaffApplication
	for _, a := range f.apps {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionID > out[j].SubmissionID })
	return out, len(out), nil
}

func (f applicationFake) MarkDecided(ctx context.Context, id string, status models.ApplicationStatus, decidedBy string, decidedAt time.Time) error {
	app, ok := f.apps[id]
	if !ok || app.Status != models.ApplicationPending {
		return sql.ErrNoRows
	}
	app.Status = status
	if decidedBy != "" {
		app.DecidedBy = &decidedBy
	}
	app.DecidedAt = &decidedAt
	f.apps[id] = app
	return nil
}

func (f applicationFake) UpdateProfilePicture(ctx context.Context, id, path string) error {
	app, ok := f.apps[id]
	if !ok {
		return sql.ErrNoRows
	}
	app.ProfilePicture = path
	f.apps[id] = app
	return nil
}

// blobFake is a map backed blob store.
type blobFake struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failCpy bool
}

func newBlobFake() *blobFake { return &blobFake{blobs: map[string][]byte{}} }

func (b *blobFake) Save(name string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[name] = append([]byte(nil), data...)
	return name, nil
}

func (b *blobFake) Read(name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (b *blobFake) Copy(src, dst string) (string, error) {
	if b.failCpy {
		return "", fmt.Errorf("copy %s: disk full", src)
	}
	data, err := b.Read(src)
	if err != nil {
		return "", err
	}
	return b.Save(dst, data)
}

func fixedClock(year int, month time.Month, day int) Clock {
	return func() time.Time { return time.Date(year, month, day, 9, 0, 0, 0, time.UTC) }
}

// fixture wires every service over one memStore.
type fixture struct {
	store   *memStore
	blobs   *blobFake
	derived *DerivedStateService
	metrics *MetricsService
}

func newFixture(clock Clock) *fixture {
	store := newMemStore()
	derived := NewDerivedStateService(profileFake{store}, employmentFake{store}, childFake{memStore: store}, zap.NewNop(), WithClock(clock))
	return &fixture{store: store, blobs: newBlobFake(), derived: derived, metrics: NewMetricsService()}
}

func (f *fixture) staffService() *StaffService {
	return NewStaffService(profileFake{f.store}, employmentFake{f.store}, childFake{memStore: f.store}, f.derived, f.store, f.store, nil, nil)
}

func (f *fixture) applicationService(opts ...ApplicationServiceOption) *ApplicationService {
	opts = append([]ApplicationServiceOption{WithApplicationMetrics(f.metrics)}, opts...)
	return NewApplicationService(applicationFake{f.store}, childFake{memStore: f.store, applications: true}, profileFake{f.store},
		childFake{memStore: f.store}, f.derived, f.blobs, f.store, f.store, nil, nil, opts...)
}

func (f *fixture) importService() *ImportService {
	return NewImportService(profileFake{f.store}, childFake{memStore: f.store}, f.derived, f.store, f.store, f.metrics, nil, nil)
}

func (f *fixture) profileByStaffID(staffID string) *models.StaffProfile {
	p, err := profileFake{f.store}.GetByStaffID(context.Background(), staffID)
	if err != nil {
		return nil
	}
	return p
}

func (f *fixture) exportService() *ExportService {
	return NewExportService(profileFake{f.store}, childFake{memStore: f.store}, f.blobs, f.store, nil, nil, nil)
}

func (f *fixture) photoService(signer urlSigner, maxBytes int64) *PhotoService {
	return NewPhotoService(profileFake{f.store}, f.blobs, signer, "/api/v1/", maxBytes, f.store, nil)
}

func (f *fixture) refreshService() *SeniorityRefreshService {
	return NewSeniorityRefreshService(profileFake{f.store}, f.derived, f.metrics, nil)
}
