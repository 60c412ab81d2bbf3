package persistence

import (
	"context"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
	"github.com/iota-uz/dirsync/modules/directory/infrastructure/persistence/models"
	"github.com/iota-uz/dirsync/pkg/composables"
	"github.com/iota-uz/dirsync/pkg/configuration"
	"github.com/iota-uz/dirsync/pkg/repo"
)

type SyncTaskRepository struct{}

func NewSyncTaskRepository() *SyncTaskRepository {
	return &SyncTaskRepository{}
}

func (r *SyncTaskRepository) Create(ctx context.Context, task *synctask.SyncTask) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if task.StartedAt.IsZero() {
		task.StartedAt = time.Now()
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO sync_tasks (
			type, data_source_id, tenant_id, status, trigger,
			overwrite, incremental, has_warning, logs, started_at, duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		string(task.Type),
		task.DataSourceID,
		task.TenantID,
		string(task.Status),
		string(task.Trigger),
		task.Overwrite,
		task.Incremental,
		task.HasWarning,
		task.Logs,
		task.StartedAt,
		task.Duration.Milliseconds(),
	).Scan(&task.ID)
	if err != nil {
		return gerrors.Wrap(err, "insert sync task")
	}
	return nil
}

func (r *SyncTaskRepository) Finish(ctx context.Context, task *synctask.SyncTask) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE sync_tasks
		SET status = $2, has_warning = $3, logs = $4, duration_ms = $5
		WHERE id = $1
	`,
		task.ID,
		string(task.Status),
		task.HasWarning,
		task.Logs,
		task.Duration.Milliseconds(),
	)
	if err != nil {
		return gerrors.Wrap(err, "finish sync task")
	}
	if tag.RowsAffected() == 0 {
		return gerrors.Errorf("sync task %d not found", task.ID)
	}
	return nil
}

func (r *SyncTaskRepository) BulkInsertChangeLogs(ctx context.Context, logs []synctask.ChangeLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range repo.ChunkSlice(logs, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, cl := range chunk {
			batch.Queue(`
				INSERT INTO sync_change_logs (task_id, entity_type, operation, code, name)
				VALUES ($1, $2, $3, $4, $5)
			`, cl.TaskID, string(cl.EntityType), string(cl.Operation), cl.Code, cl.Name)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

// ListByDataSource returns tasks for one data source, newest first.
func (r *SyncTaskRepository) ListByDataSource(ctx context.Context, dataSourceID int64, limit, offset int) ([]synctask.SyncTask, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, type, data_source_id, tenant_id, status, trigger,
		       overwrite, incremental, has_warning, logs, started_at, duration_ms
		FROM sync_tasks
		WHERE data_source_id = $1
		ORDER BY started_at DESC
	`+repo.FormatLimitOffset(limit, offset), dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []synctask.SyncTask
	for rows.Next() {
		var row models.SyncTask
		if err := rows.Scan(
			&row.ID, &row.Type, &row.DataSourceID, &row.TenantID, &row.Status, &row.Trigger,
			&row.Overwrite, &row.Incremental, &row.HasWarning, &row.Logs, &row.StartedAt, &row.DurationMS,
		); err != nil {
			return nil, err
		}
		out = append(out, synctask.SyncTask{
			ID:           row.ID,
			Type:         synctask.Type(row.Type),
			DataSourceID: row.DataSourceID,
			TenantID:     row.TenantID,
			Status:       synctask.Status(row.Status),
			Trigger:      synctask.Trigger(row.Trigger),
			Overwrite:    row.Overwrite,
			Incremental:  row.Incremental,
			HasWarning:   row.HasWarning,
			Logs:         row.Logs,
			StartedAt:    row.StartedAt,
			Duration:     time.Duration(row.DurationMS) * time.Millisecond,
		})
	}
	return out, rows.Err()
}
