package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/infrastructure/persistence/models"
	"github.com/iota-uz/dirsync/pkg/composables"
	"github.com/iota-uz/dirsync/pkg/configuration"
	"github.com/iota-uz/dirsync/pkg/repo"
)

type DepartmentRepository struct{}

func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{}
}

func (r *DepartmentRepository) MapByCode(ctx context.Context, dataSourceID int64) (map[string]datasource.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, data_source_id, code, name
		FROM data_source_departments
		WHERE data_source_id = $1
	`, dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]datasource.Department)
	for rows.Next() {
		var row models.Department
		if err := rows.Scan(&row.ID, &row.DataSourceID, &row.Code, &row.Name); err != nil {
			return nil, err
		}
		out[row.Code] = datasource.Department(row)
	}
	return out, rows.Err()
}

func (r *DepartmentRepository) BulkCreate(ctx context.Context, departments []datasource.Department) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(departments, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, d := range chunk {
			batch.Queue(`
				INSERT INTO data_source_departments (data_source_id, code, name)
				VALUES ($1, $2, $3)
			`, d.DataSourceID, d.Code, d.Name)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *DepartmentRepository) BulkUpdate(ctx context.Context, departments []datasource.Department) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(departments, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, d := range chunk {
			batch.Queue(`
				UPDATE data_source_departments SET name = $2 WHERE id = $1
			`, d.ID, d.Name)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *DepartmentRepository) BulkDeleteByCodes(ctx context.Context, dataSourceID int64, codes []string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(codes, configuration.Use().Sync.BatchSize) {
		if _, err := tx.Exec(ctx, `
			DELETE FROM data_source_departments
			WHERE data_source_id = $1 AND code = ANY($2)
		`, dataSourceID, chunk); err != nil {
			return err
		}
	}
	return nil
}
