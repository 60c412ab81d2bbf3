package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/tenant"
)

type DataSourceStore interface {
	GetByID(ctx context.Context, id int64) (datasource.DataSource, error)
}

type DepartmentStore interface {
	MapByCode(ctx context.Context, dataSourceID int64) (map[string]datasource.Department, error)
	BulkCreate(ctx context.Context, departments []datasource.Department) error
	BulkUpdate(ctx context.Context, departments []datasource.Department) error
	BulkDeleteByCodes(ctx context.Context, dataSourceID int64, codes []string) error
}

type DepartmentRelationStore interface {
	// ParentCodes returns child code -> parent code for the existing
	// relation rows of one data source. Roots map to an empty string.
	ParentCodes(ctx context.Context, dataSourceID int64) (map[string]string, error)
	DeleteAll(ctx context.Context, dataSourceID int64) error
	// BulkInsert persists relations with placeholder traversal coordinates
	// and fills the generated IDs. Callers insert parents before children.
	BulkInsert(ctx context.Context, relations []*datasource.DepartmentRelation) error
	UpdateCoordinates(ctx context.Context, relations []datasource.DepartmentRelation) error
}

type UserStore interface {
	MapByCode(ctx context.Context, dataSourceID int64) (map[string]datasource.User, error)
	BulkCreate(ctx context.Context, users []datasource.User) error
	BulkUpdate(ctx context.Context, users []datasource.User) error
	BulkDeleteByCodes(ctx context.Context, dataSourceID int64, codes []string) error
}

// EdgeKind selects one of the two many-to-many relation graphs.
type EdgeKind string

const (
	EdgeLeader     EdgeKind = "leader"
	EdgeDepartment EdgeKind = "department"
)

// Edge is a directed relation edge. TargetID is a leader's user id or a
// department id, depending on the kind.
type Edge struct {
	UserID   int64
	TargetID int64
}

type RelationStore interface {
	ListByUserIDs(ctx context.Context, kind EdgeKind, userIDs []int64) ([]Edge, error)
	BulkCreate(ctx context.Context, kind EdgeKind, edges []Edge) error
	BulkDelete(ctx context.Context, kind EdgeKind, edges []Edge) error
}

type TaskStore interface {
	Create(ctx context.Context, task *synctask.SyncTask) error
	Finish(ctx context.Context, task *synctask.SyncTask) error
	BulkInsertChangeLogs(ctx context.Context, logs []synctask.ChangeLog) error
}

type TenantStore interface {
	Get(ctx context.Context, id uuid.UUID) (tenant.Tenant, error)
}

type TenantDepartmentStore interface {
	SourceDepartments(ctx context.Context, dataSourceID int64) (map[int64]datasource.Department, error)
	Mirrors(ctx context.Context, tenantID uuid.UUID, dataSourceID int64) ([]tenant.Department, error)
	BulkCreate(ctx context.Context, mirrors []tenant.Department) error
	BulkDelete(ctx context.Context, ids []int64) error
}

type TenantUserStore interface {
	SourceUsers(ctx context.Context, dataSourceID int64) (map[int64]datasource.User, error)
	Mirrors(ctx context.Context, tenantID uuid.UUID, dataSourceID int64) ([]tenant.User, error)
	BulkCreate(ctx context.Context, mirrors []tenant.User) error
	BulkDelete(ctx context.Context, ids []int64) error
}

// LockStore provides the per-data-source exclusive lease held for the
// duration of a sync pipeline.
type LockStore interface {
	// Acquire fails fast with ErrSyncInProgress when the lease is already
	// held. The returned release func is safe to call exactly once.
	Acquire(ctx context.Context, dataSourceID int64) (release func(), err error)
}
