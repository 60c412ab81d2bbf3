package persistence

import (
	"context"
	"sync"

	gerrors "github.com/go-faster/errors"

	"github.com/iota-uz/dirsync/modules/directory/services"
	"github.com/iota-uz/dirsync/pkg/composables"
)

// lockClass namespaces this engine's advisory locks so they cannot collide
// with other advisory-lock users of the same database.
const lockClass int64 = 0x64737963 // "dsyc"

// leaseKey folds the namespace into the upper bits of the 64-bit advisory
// lock key. XOR keeps the mapping injective over the full id range, so data
// sources whose ids differ by a multiple of 2^32 still get distinct keys.
func leaseKey(dataSourceID int64) int64 {
	return dataSourceID ^ lockClass<<32
}

// LockRepository implements the per-data-source lease with Postgres advisory
// locks. Session locks are tied to a connection, so each lease pins one
// pooled connection until released.
type LockRepository struct{}

func NewLockRepository() *LockRepository {
	return &LockRepository{}
}

func (r *LockRepository) Acquire(ctx context.Context, dataSourceID int64) (func(), error) {
	pool, err := composables.UsePool(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "acquire lock connection")
	}

	var acquired bool
	err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, leaseKey(dataSourceID)).Scan(&acquired)
	if err != nil {
		conn.Release()
		return nil, gerrors.Wrap(err, "try advisory lock")
	}
	if !acquired {
		conn.Release()
		return nil, services.ErrSyncInProgress
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Unlock with a fresh context; the caller's may be done.
			_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, leaseKey(dataSourceID))
			conn.Release()
		})
	}
	return release, nil
}
