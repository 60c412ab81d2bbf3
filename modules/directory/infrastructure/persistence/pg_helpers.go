package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/dirsync/pkg/repo"
)

// execBatch sends a queued batch and drains every result, so a failure in
// any statement surfaces instead of being silently dropped.
func execBatch(ctx context.Context, tx repo.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return gerrors.Wrapf(err, "batch statement %d", i)
		}
	}
	return br.Close()
}
