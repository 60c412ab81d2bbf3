package services

import (
	"context"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/tenant"
)

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeDepartmentStore struct {
	nextID int64
	byCode map[string]datasource.Department
}

func newFakeDepartmentStore() *fakeDepartmentStore {
	return &fakeDepartmentStore{byCode: make(map[string]datasource.Department)}
}

func (s *fakeDepartmentStore) seed(dataSourceID int64, codeNames ...string) {
	for i := 0; i+1 < len(codeNames); i += 2 {
		s.nextID++
		s.byCode[codeNames[i]] = datasource.Department{
			ID:           s.nextID,
			DataSourceID: dataSourceID,
			Code:         codeNames[i],
			Name:         codeNames[i+1],
		}
	}
}

func (s *fakeDepartmentStore) MapByCode(_ context.Context, _ int64) (map[string]datasource.Department, error) {
	out := make(map[string]datasource.Department, len(s.byCode))
	for code, d := range s.byCode {
		out[code] = d
	}
	return out, nil
}

func (s *fakeDepartmentStore) BulkCreate(_ context.Context, departments []datasource.Department) error {
	for _, d := range departments {
		s.nextID++
		d.ID = s.nextID
		s.byCode[d.Code] = d
	}
	return nil
}

func (s *fakeDepartmentStore) BulkUpdate(_ context.Context, departments []datasource.Department) error {
	for _, d := range departments {
		s.byCode[d.Code] = d
	}
	return nil
}

func (s *fakeDepartmentStore) BulkDeleteByCodes(_ context.Context, _ int64, codes []string) error {
	for _, code := range codes {
		delete(s.byCode, code)
	}
	return nil
}

type fakeDepartmentRelationStore struct {
	depts  *fakeDepartmentStore
	nextID int64
	rows   map[int64]*datasource.DepartmentRelation
}

func newFakeDepartmentRelationStore(depts *fakeDepartmentStore) *fakeDepartmentRelationStore {
	return &fakeDepartmentRelationStore{
		depts: depts,
		rows:  make(map[int64]*datasource.DepartmentRelation),
	}
}

func (s *fakeDepartmentRelationStore) codeOf(departmentID int64) string {
	for code, d := range s.depts.byCode {
		if d.ID == departmentID {
			return code
		}
	}
	return ""
}

func (s *fakeDepartmentRelationStore) ParentCodes(_ context.Context, _ int64) (map[string]string, error) {
	out := make(map[string]string, len(s.rows))
	for _, rel := range s.rows {
		code := s.codeOf(rel.DepartmentID)
		if code == "" {
			continue
		}
		parentCode := ""
		if rel.ParentID != nil {
			if parent, ok := s.rows[*rel.ParentID]; ok {
				parentCode = s.codeOf(parent.DepartmentID)
			}
		}
		out[code] = parentCode
	}
	return out, nil
}

func (s *fakeDepartmentRelationStore) DeleteAll(_ context.Context, _ int64) error {
	s.rows = make(map[int64]*datasource.DepartmentRelation)
	return nil
}

func (s *fakeDepartmentRelationStore) BulkInsert(_ context.Context, relations []*datasource.DepartmentRelation) error {
	for _, rel := range relations {
		s.nextID++
		rel.ID = s.nextID
		stored := *rel
		s.rows[rel.ID] = &stored
	}
	return nil
}

func (s *fakeDepartmentRelationStore) UpdateCoordinates(_ context.Context, relations []datasource.DepartmentRelation) error {
	for _, rel := range relations {
		stored, ok := s.rows[rel.ID]
		if !ok {
			continue
		}
		stored.TreeID = rel.TreeID
		stored.Left = rel.Left
		stored.Right = rel.Right
		stored.Level = rel.Level
	}
	return nil
}

// relationsByCode returns the stored relation rows keyed by department code,
// for assertions.
func (s *fakeDepartmentRelationStore) relationsByCode() map[string]datasource.DepartmentRelation {
	out := make(map[string]datasource.DepartmentRelation, len(s.rows))
	for _, rel := range s.rows {
		if code := s.codeOf(rel.DepartmentID); code != "" {
			out[code] = *rel
		}
	}
	return out
}

type fakeUserStore struct {
	nextID int64
	byCode map[string]datasource.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byCode: make(map[string]datasource.User)}
}

func (s *fakeUserStore) seed(users ...datasource.User) {
	for _, u := range users {
		s.nextID++
		u.ID = s.nextID
		s.byCode[u.Code] = u
	}
}

func (s *fakeUserStore) MapByCode(_ context.Context, _ int64) (map[string]datasource.User, error) {
	out := make(map[string]datasource.User, len(s.byCode))
	for code, u := range s.byCode {
		out[code] = u
	}
	return out, nil
}

func (s *fakeUserStore) BulkCreate(_ context.Context, users []datasource.User) error {
	for _, u := range users {
		s.nextID++
		u.ID = s.nextID
		s.byCode[u.Code] = u
	}
	return nil
}

func (s *fakeUserStore) BulkUpdate(_ context.Context, users []datasource.User) error {
	for _, u := range users {
		s.byCode[u.Code] = u
	}
	return nil
}

func (s *fakeUserStore) BulkDeleteByCodes(_ context.Context, _ int64, codes []string) error {
	for _, code := range codes {
		delete(s.byCode, code)
	}
	return nil
}

type fakeRelationStore struct {
	edges map[EdgeKind]map[Edge]struct{}
}

func newFakeRelationStore() *fakeRelationStore {
	return &fakeRelationStore{edges: map[EdgeKind]map[Edge]struct{}{
		EdgeLeader:     {},
		EdgeDepartment: {},
	}}
}

func (s *fakeRelationStore) ListByUserIDs(_ context.Context, kind EdgeKind, userIDs []int64) ([]Edge, error) {
	scope := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		scope[id] = true
	}
	var out []Edge
	for e := range s.edges[kind] {
		if scope[e.UserID] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

func (s *fakeRelationStore) BulkCreate(_ context.Context, kind EdgeKind, edges []Edge) error {
	for _, e := range edges {
		s.edges[kind][e] = struct{}{}
	}
	return nil
}

func (s *fakeRelationStore) BulkDelete(_ context.Context, kind EdgeKind, edges []Edge) error {
	for _, e := range edges {
		delete(s.edges[kind], e)
	}
	return nil
}

type fakeTaskStore struct {
	nextID     int64
	created    []synctask.SyncTask
	finished   []synctask.SyncTask
	changeLogs []synctask.ChangeLog

	createErr     error
	finishErr     error
	changeLogsErr error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{}
}

func (s *fakeTaskStore) Create(_ context.Context, task *synctask.SyncTask) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	task.ID = s.nextID
	s.created = append(s.created, *task)
	return nil
}

func (s *fakeTaskStore) Finish(_ context.Context, task *synctask.SyncTask) error {
	if s.finishErr != nil {
		return s.finishErr
	}
	s.finished = append(s.finished, *task)
	return nil
}

func (s *fakeTaskStore) BulkInsertChangeLogs(_ context.Context, logs []synctask.ChangeLog) error {
	if s.changeLogsErr != nil {
		return s.changeLogsErr
	}
	s.changeLogs = append(s.changeLogs, logs...)
	return nil
}

type fakeTenantStore struct {
	tenants map[uuid.UUID]tenant.Tenant
}

func newFakeTenantStore(tenants ...tenant.Tenant) *fakeTenantStore {
	s := &fakeTenantStore{tenants: make(map[uuid.UUID]tenant.Tenant)}
	for _, tn := range tenants {
		s.tenants[tn.ID] = tn
	}
	return s
}

func (s *fakeTenantStore) Get(_ context.Context, id uuid.UUID) (tenant.Tenant, error) {
	tn, ok := s.tenants[id]
	if !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	return tn, nil
}

type fakeTenantDepartmentStore struct {
	source  map[int64]map[int64]datasource.Department
	nextID  int64
	mirrors []tenant.Department
}

func newFakeTenantDepartmentStore() *fakeTenantDepartmentStore {
	return &fakeTenantDepartmentStore{source: make(map[int64]map[int64]datasource.Department)}
}

func (s *fakeTenantDepartmentStore) seedSource(d datasource.Department) {
	if s.source[d.DataSourceID] == nil {
		s.source[d.DataSourceID] = make(map[int64]datasource.Department)
	}
	s.source[d.DataSourceID][d.ID] = d
}

func (s *fakeTenantDepartmentStore) SourceDepartments(_ context.Context, dataSourceID int64) (map[int64]datasource.Department, error) {
	out := make(map[int64]datasource.Department, len(s.source[dataSourceID]))
	for id, d := range s.source[dataSourceID] {
		out[id] = d
	}
	return out, nil
}

func (s *fakeTenantDepartmentStore) Mirrors(_ context.Context, tenantID uuid.UUID, dataSourceID int64) ([]tenant.Department, error) {
	var out []tenant.Department
	for _, m := range s.mirrors {
		if m.TenantID == tenantID && m.DataSourceID == dataSourceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeTenantDepartmentStore) BulkCreate(_ context.Context, mirrors []tenant.Department) error {
	for _, m := range mirrors {
		s.nextID++
		m.ID = s.nextID
		s.mirrors = append(s.mirrors, m)
	}
	return nil
}

func (s *fakeTenantDepartmentStore) BulkDelete(_ context.Context, ids []int64) error {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.mirrors[:0]
	for _, m := range s.mirrors {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	s.mirrors = kept
	return nil
}

type fakeTenantUserStore struct {
	source  map[int64]map[int64]datasource.User
	nextID  int64
	mirrors []tenant.User
}

func newFakeTenantUserStore() *fakeTenantUserStore {
	return &fakeTenantUserStore{source: make(map[int64]map[int64]datasource.User)}
}

func (s *fakeTenantUserStore) seedSource(u datasource.User) {
	if s.source[u.DataSourceID] == nil {
		s.source[u.DataSourceID] = make(map[int64]datasource.User)
	}
	s.source[u.DataSourceID][u.ID] = u
}

func (s *fakeTenantUserStore) SourceUsers(_ context.Context, dataSourceID int64) (map[int64]datasource.User, error) {
	out := make(map[int64]datasource.User, len(s.source[dataSourceID]))
	for id, u := range s.source[dataSourceID] {
		out[id] = u
	}
	return out, nil
}

func (s *fakeTenantUserStore) Mirrors(_ context.Context, tenantID uuid.UUID, dataSourceID int64) ([]tenant.User, error) {
	var out []tenant.User
	for _, m := range s.mirrors {
		if m.TenantID == tenantID && m.DataSourceID == dataSourceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeTenantUserStore) BulkCreate(_ context.Context, mirrors []tenant.User) error {
	for _, m := range mirrors {
		s.nextID++
		m.ID = s.nextID
		s.mirrors = append(s.mirrors, m)
	}
	return nil
}

func (s *fakeTenantUserStore) BulkDelete(_ context.Context, ids []int64) error {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.mirrors[:0]
	for _, m := range s.mirrors {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	s.mirrors = kept
	return nil
}

type fakeLockStore struct {
	held     map[int64]bool
	acquired int
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{held: make(map[int64]bool)}
}

func (s *fakeLockStore) Acquire(_ context.Context, dataSourceID int64) (func(), error) {
	if s.held[dataSourceID] {
		return nil, ErrSyncInProgress
	}
	s.held[dataSourceID] = true
	s.acquired++
	return func() { s.held[dataSourceID] = false }, nil
}

type fakeDataSourceStore struct {
	sources map[int64]datasource.DataSource
}

func newFakeDataSourceStore(sources ...datasource.DataSource) *fakeDataSourceStore {
	s := &fakeDataSourceStore{sources: make(map[int64]datasource.DataSource)}
	for _, ds := range sources {
		s.sources[ds.ID] = ds
	}
	return s
}

func (s *fakeDataSourceStore) GetByID(_ context.Context, id int64) (datasource.DataSource, error) {
	ds, ok := s.sources[id]
	if !ok {
		return datasource.DataSource{}, datasource.ErrNotFound
	}
	return ds, nil
}
