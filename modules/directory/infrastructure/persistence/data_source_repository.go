package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/infrastructure/persistence/models"
	"github.com/iota-uz/dirsync/pkg/composables"
)

type DataSourceRepository struct{}

func NewDataSourceRepository() *DataSourceRepository {
	return &DataSourceRepository{}
}

func (r *DataSourceRepository) GetByID(ctx context.Context, id int64) (datasource.DataSource, error) {
	return r.getOne(ctx, `
		SELECT id, tenant_id, code, name, username_rule, created_at
		FROM data_sources
		WHERE id = $1
	`, id)
}

func (r *DataSourceRepository) GetByCode(ctx context.Context, code string) (datasource.DataSource, error) {
	return r.getOne(ctx, `
		SELECT id, tenant_id, code, name, username_rule, created_at
		FROM data_sources
		WHERE code = $1
	`, code)
}

func (r *DataSourceRepository) getOne(ctx context.Context, query string, arg any) (datasource.DataSource, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return datasource.DataSource{}, err
	}

	var row models.DataSource
	err = tx.QueryRow(ctx, query, arg).
		Scan(&row.ID, &row.TenantID, &row.Code, &row.Name, &row.UsernameRule, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return datasource.DataSource{}, datasource.ErrNotFound
		}
		return datasource.DataSource{}, err
	}
	return datasource.DataSource(row), nil
}
