package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
)

func rawUser(code string, props map[string]string) datasource.RawUser {
	return datasource.RawUser{Code: code, Properties: props}
}

func TestUserSyncer_FullSetDiff(t *testing.T) {
	store := newFakeUserStore()
	store.seed(
		datasource.User{DataSourceID: 1, Code: "u1", Username: "alice", FullName: "Alice"},
		datasource.User{DataSourceID: 1, Code: "u2", Username: "bob", FullName: "Bob"},
	)

	records := []datasource.RawUser{
		rawUser("u1", map[string]string{"username": "alice", "full_name": "Alice Smith"}),
		rawUser("u3", map[string]string{"username": "carol", "full_name": "Carol"}),
	}

	changes, err := NewUserSyncer(store, datasource.DataSource{ID: 1}, records,
		SyncOptions{Overwrite: true}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)

	byOp := changesByOp(changes)
	require.Equal(t, []string{"u3"}, byOp[synctask.OpCreate])
	require.Equal(t, []string{"u1"}, byOp[synctask.OpUpdate])
	require.Equal(t, []string{"u2"}, byOp[synctask.OpDelete])
	require.Equal(t, "Alice Smith", store.byCode["u1"].FullName)
	require.NotContains(t, store.byCode, "u2")
}

func TestUserSyncer_OverwriteGating(t *testing.T) {
	store := newFakeUserStore()
	store.seed(datasource.User{DataSourceID: 1, Code: "u1", Username: "alice", FullName: "Alice"})

	records := []datasource.RawUser{
		rawUser("u1", map[string]string{"username": "alice2", "full_name": "Alice Smith"}),
	}

	changes, err := NewUserSyncer(store, datasource.DataSource{ID: 1}, records,
		SyncOptions{}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, changes)
	require.Equal(t, "Alice", store.byCode["u1"].FullName)
}

func TestUserSyncer_NamingRuleExcludesUsername(t *testing.T) {
	store := newFakeUserStore()
	store.seed(datasource.User{DataSourceID: 1, Code: "u1", Username: "ruled.alice", FullName: "Alice"})

	ds := datasource.DataSource{ID: 1, UsernameRule: "{surname}.{given}"}
	records := []datasource.RawUser{
		rawUser("u1", map[string]string{"username": "raw.alice", "full_name": "Alice Smith"}),
	}

	changes, err := NewUserSyncer(store, ds, records,
		SyncOptions{Overwrite: true}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 1)

	updated := store.byCode["u1"]
	require.Equal(t, "ruled.alice", updated.Username)
	require.Equal(t, "Alice Smith", updated.FullName)
}

func TestUserSyncer_NamingRuleUsernameOnlyDriftIsNoop(t *testing.T) {
	store := newFakeUserStore()
	store.seed(datasource.User{DataSourceID: 1, Code: "u1", Username: "ruled.alice", FullName: "Alice"})

	ds := datasource.DataSource{ID: 1, UsernameRule: "{surname}.{given}"}
	records := []datasource.RawUser{
		rawUser("u1", map[string]string{"username": "raw.alice", "full_name": "Alice"}),
	}

	changes, err := NewUserSyncer(store, ds, records,
		SyncOptions{Overwrite: true}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, changes)
	require.Equal(t, "ruled.alice", store.byCode["u1"].Username)
}

func TestUserSyncer_ExtrasRoundTrip(t *testing.T) {
	store := newFakeUserStore()
	records := []datasource.RawUser{
		rawUser("u1", map[string]string{"username": "alice", "badge_color": "green"}),
	}

	_, err := NewUserSyncer(store, datasource.DataSource{ID: 1}, records,
		SyncOptions{}, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, "green", store.byCode["u1"].Extras["badge_color"])
}

func TestUserSyncer_Idempotent(t *testing.T) {
	store := newFakeUserStore()
	ds := datasource.DataSource{ID: 1}
	records := []datasource.RawUser{
		rawUser("u1", map[string]string{"username": "alice", "full_name": "Alice", "dept": "hr"}),
	}
	opts := SyncOptions{Overwrite: true}

	first, err := NewUserSyncer(store, ds, records, opts, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := NewUserSyncer(store, ds, records, opts, newTestLogger()).Sync(context.Background())
	require.NoError(t, err)
	require.Empty(t, second)
}
