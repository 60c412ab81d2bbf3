package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
)

func TestUserLeaderRelationSyncer_Diff(t *testing.T) {
	users := newFakeUserStore()
	users.seed(
		datasource.User{DataSourceID: 1, Code: "boss"},
		datasource.User{DataSourceID: 1, Code: "alice"},
		datasource.User{DataSourceID: 1, Code: "bob"},
	)
	edges := newFakeRelationStore()
	// alice currently reports to bob; the batch moves her under boss.
	edges.edges[EdgeLeader][Edge{UserID: users.byCode["alice"].ID, TargetID: users.byCode["bob"].ID}] = struct{}{}

	records := []datasource.RawUser{
		{Code: "alice", Leaders: []string{"boss"}},
	}
	_, err := NewUserLeaderRelationSyncer(users, edges, datasource.DataSource{ID: 1},
		records, SyncOptions{}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	got := edges.edges[EdgeLeader]
	require.Len(t, got, 1)
	require.Contains(t, got, Edge{UserID: users.byCode["alice"].ID, TargetID: users.byCode["boss"].ID})
}

func TestUserLeaderRelationSyncer_SelfEdgeSkipped(t *testing.T) {
	users := newFakeUserStore()
	users.seed(datasource.User{DataSourceID: 1, Code: "alice"})
	edges := newFakeRelationStore()

	records := []datasource.RawUser{
		{Code: "alice", Leaders: []string{"alice"}},
	}
	_, err := NewUserLeaderRelationSyncer(users, edges, datasource.DataSource{ID: 1},
		records, SyncOptions{}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, edges.edges[EdgeLeader])
}

func TestUserLeaderRelationSyncer_UnresolvedReferenceWarns(t *testing.T) {
	users := newFakeUserStore()
	users.seed(datasource.User{DataSourceID: 1, Code: "alice"})
	edges := newFakeRelationStore()

	records := []datasource.RawUser{
		{Code: "alice", Leaders: []string{"ghost"}},
	}

	tc := newTaskContext(newFakeTaskStore(), newTask())
	syncer := NewUserLeaderRelationSyncer(users, edges, datasource.DataSource{ID: 1},
		records, SyncOptions{}, tc.Logger())
	_, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, tc.warning.raised)
	require.Empty(t, edges.edges[EdgeLeader])
}

func TestUserLeaderRelationSyncer_IncrementalUnresolvedIsInfo(t *testing.T) {
	users := newFakeUserStore()
	users.seed(datasource.User{DataSourceID: 1, Code: "alice"})
	edges := newFakeRelationStore()

	records := []datasource.RawUser{
		{Code: "alice", Leaders: []string{"ghost"}},
	}

	tc := newTaskContext(newFakeTaskStore(), newTask())
	syncer := NewUserLeaderRelationSyncer(users, edges, datasource.DataSource{ID: 1},
		records, SyncOptions{Incremental: true}, tc.Logger())
	_, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, tc.warning.raised)
}

func TestUserDepartmentRelationSyncer_Diff(t *testing.T) {
	users := newFakeUserStore()
	users.seed(datasource.User{DataSourceID: 1, Code: "alice"})
	depts := newFakeDepartmentStore()
	depts.seed(1, "hr", "HR", "it", "IT")
	edges := newFakeRelationStore()
	edges.edges[EdgeDepartment][Edge{UserID: users.byCode["alice"].ID, TargetID: depts.byCode["it"].ID}] = struct{}{}

	records := []datasource.RawUser{
		{Code: "alice", Departments: []string{"hr"}},
	}
	_, err := NewUserDepartmentRelationSyncer(users, depts, edges, datasource.DataSource{ID: 1},
		records, SyncOptions{}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	got := edges.edges[EdgeDepartment]
	require.Len(t, got, 1)
	require.Contains(t, got, Edge{UserID: users.byCode["alice"].ID, TargetID: depts.byCode["hr"].ID})
}

func TestUserRelationSyncer_IncrementalLeavesOtherUsersAlone(t *testing.T) {
	users := newFakeUserStore()
	users.seed(
		datasource.User{DataSourceID: 1, Code: "alice"},
		datasource.User{DataSourceID: 1, Code: "bob"},
		datasource.User{DataSourceID: 1, Code: "boss"},
	)
	edges := newFakeRelationStore()
	bobEdge := Edge{UserID: users.byCode["bob"].ID, TargetID: users.byCode["boss"].ID}
	edges.edges[EdgeLeader][bobEdge] = struct{}{}

	records := []datasource.RawUser{
		{Code: "alice", Leaders: []string{"boss"}},
	}
	_, err := NewUserLeaderRelationSyncer(users, edges, datasource.DataSource{ID: 1},
		records, SyncOptions{Incremental: true}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	require.Contains(t, edges.edges[EdgeLeader], bobEdge)
	require.Len(t, edges.edges[EdgeLeader], 2)
}
