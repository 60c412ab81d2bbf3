package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/tenant"
)

func TestTenantDepartmentSyncer_MirrorsCreateAndDelete(t *testing.T) {
	tn := tenant.Tenant{ID: uuid.New()}
	ds := datasource.DataSource{ID: 1, TenantID: tn.ID}

	store := newFakeTenantDepartmentStore()
	store.seedSource(datasource.Department{ID: 10, DataSourceID: 1, Code: "hr", Name: "HR"})
	store.seedSource(datasource.Department{ID: 11, DataSourceID: 1, Code: "it", Name: "IT"})
	// Mirror of a department that no longer exists in the source.
	require.NoError(t, store.BulkCreate(context.Background(), []tenant.Department{
		{TenantID: tn.ID, DataSourceID: 1, DepartmentID: 99},
	}))

	changes, err := NewTenantDepartmentSyncer(store, ds, tn, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	byOp := changesByOp(changes)
	require.ElementsMatch(t, []string{"hr", "it"}, byOp[synctask.OpCreate])
	require.Equal(t, []string{"99"}, byOp[synctask.OpDelete])

	mirrors, err := store.Mirrors(context.Background(), tn.ID, ds.ID)
	require.NoError(t, err)
	require.Len(t, mirrors, 2)
}

func TestTenantDepartmentSyncer_OtherSourcesUntouched(t *testing.T) {
	tn := tenant.Tenant{ID: uuid.New()}
	ds := datasource.DataSource{ID: 1, TenantID: tn.ID}

	store := newFakeTenantDepartmentStore()
	store.seedSource(datasource.Department{ID: 10, DataSourceID: 1, Code: "hr", Name: "HR"})
	// A mirror from a sibling data source under the same tenant.
	require.NoError(t, store.BulkCreate(context.Background(), []tenant.Department{
		{TenantID: tn.ID, DataSourceID: 2, DepartmentID: 77},
	}))

	_, err := NewTenantDepartmentSyncer(store, ds, tn, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	sibling, err := store.Mirrors(context.Background(), tn.ID, 2)
	require.NoError(t, err)
	require.Len(t, sibling, 1)
}

func TestTenantUserSyncer_ValidityPeriod(t *testing.T) {
	tn := tenant.Tenant{ID: uuid.New(), UserValidityPeriod: 3600}
	ds := datasource.DataSource{ID: 1, TenantID: tn.ID}

	store := newFakeTenantUserStore()
	store.seedSource(datasource.User{ID: 10, DataSourceID: 1, Code: "u1", FullName: "Alice"})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	syncer := NewTenantUserSyncer(store, ds, tn, newTestLogger())
	syncer.now = func() time.Time { return now }

	changes, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 1)

	mirrors, err := store.Mirrors(context.Background(), tn.ID, ds.ID)
	require.NoError(t, err)
	require.Len(t, mirrors, 1)
	require.Equal(t, now.Add(time.Hour), mirrors[0].ExpiredAt)
}

func TestTenantUserSyncer_NoExpirySentinel(t *testing.T) {
	tn := tenant.Tenant{ID: uuid.New(), UserValidityPeriod: -1}
	ds := datasource.DataSource{ID: 1, TenantID: tn.ID}

	store := newFakeTenantUserStore()
	store.seedSource(datasource.User{ID: 10, DataSourceID: 1, Code: "u1"})

	_, err := NewTenantUserSyncer(store, ds, tn, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	mirrors, err := store.Mirrors(context.Background(), tn.ID, ds.ID)
	require.NoError(t, err)
	require.Equal(t, tenant.EndOfTime, mirrors[0].ExpiredAt)
}

func TestTenantUserSyncer_ExistingMirrorKeepsExpiration(t *testing.T) {
	tn := tenant.Tenant{ID: uuid.New(), UserValidityPeriod: 3600}
	ds := datasource.DataSource{ID: 1, TenantID: tn.ID}

	store := newFakeTenantUserStore()
	store.seedSource(datasource.User{ID: 10, DataSourceID: 1, Code: "u1"})
	original := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.BulkCreate(context.Background(), []tenant.User{
		{TenantID: tn.ID, DataSourceID: 1, UserID: 10, ExpiredAt: original},
	}))

	changes, err := NewTenantUserSyncer(store, ds, tn, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, changes)

	mirrors, err := store.Mirrors(context.Background(), tn.ID, ds.ID)
	require.NoError(t, err)
	require.Equal(t, original, mirrors[0].ExpiredAt)
}

func TestTenantUserSyncer_DeletesDanglingMirror(t *testing.T) {
	tn := tenant.Tenant{ID: uuid.New()}
	ds := datasource.DataSource{ID: 1, TenantID: tn.ID}

	store := newFakeTenantUserStore()
	require.NoError(t, store.BulkCreate(context.Background(), []tenant.User{
		{TenantID: tn.ID, DataSourceID: 1, UserID: 42, ExpiredAt: tenant.EndOfTime},
	}))

	changes, err := NewTenantUserSyncer(store, ds, tn, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	byOp := changesByOp(changes)
	require.Equal(t, []string{"42"}, byOp[synctask.OpDelete])

	mirrors, err := store.Mirrors(context.Background(), tn.ID, ds.ID)
	require.NoError(t, err)
	require.Empty(t, mirrors)
}
