package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/pkg/composables"
	"github.com/iota-uz/dirsync/pkg/configuration"
	"github.com/iota-uz/dirsync/pkg/repo"
)

type DepartmentRelationRepository struct{}

func NewDepartmentRelationRepository() *DepartmentRelationRepository {
	return &DepartmentRelationRepository{}
}

func (r *DepartmentRelationRepository) ParentCodes(ctx context.Context, dataSourceID int64) (map[string]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT c.code, COALESCE(p.code, '')
		FROM data_source_department_relations r
		JOIN data_source_departments c ON c.id = r.department_id
		LEFT JOIN data_source_department_relations pr ON pr.id = r.parent_id
		LEFT JOIN data_source_departments p ON p.id = pr.department_id
		WHERE r.data_source_id = $1
	`, dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var code, parentCode string
		if err := rows.Scan(&code, &parentCode); err != nil {
			return nil, err
		}
		out[code] = parentCode
	}
	return out, rows.Err()
}

func (r *DepartmentRelationRepository) DeleteAll(ctx context.Context, dataSourceID int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM data_source_department_relations
		WHERE data_source_id = $1
	`, dataSourceID)
	return err
}

// BulkInsert writes relation rows with placeholder coordinates and fills the
// generated ids. Within one call no row may reference another row of the
// same call as its parent: the relation syncer inserts level by level.
func (r *DepartmentRelationRepository) BulkInsert(ctx context.Context, relations []*datasource.DepartmentRelation) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(relations, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, rel := range chunk {
			batch.Queue(`
				INSERT INTO data_source_department_relations
					(data_source_id, department_id, parent_id, tree_id, lft, rght, level)
				VALUES ($1, $2, $3, $4, 0, 0, 0)
				RETURNING id
			`, rel.DataSourceID, rel.DepartmentID, rel.ParentID, rel.TreeID)
		}
		br := tx.SendBatch(ctx, batch)
		for _, rel := range chunk {
			if err := br.QueryRow().Scan(&rel.ID); err != nil {
				_ = br.Close()
				return gerrors.Wrap(err, "insert department relation")
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (r *DepartmentRelationRepository) UpdateCoordinates(ctx context.Context, relations []datasource.DepartmentRelation) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(relations, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, rel := range chunk {
			batch.Queue(`
				UPDATE data_source_department_relations
				SET tree_id = $2, lft = $3, rght = $4, level = $5
				WHERE id = $1
			`, rel.ID, rel.TreeID, rel.Left, rel.Right, rel.Level)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

// ListByDataSource returns the relation rows of one data source ordered for
// subtree traversal.
func (r *DepartmentRelationRepository) ListByDataSource(ctx context.Context, dataSourceID int64) ([]datasource.DepartmentRelation, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, data_source_id, department_id, parent_id, tree_id, lft, rght, level
		FROM data_source_department_relations
		WHERE data_source_id = $1
		ORDER BY tree_id, lft
	`, dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []datasource.DepartmentRelation
	for rows.Next() {
		var rel datasource.DepartmentRelation
		if err := rows.Scan(&rel.ID, &rel.DataSourceID, &rel.DepartmentID, &rel.ParentID, &rel.TreeID, &rel.Left, &rel.Right, &rel.Level); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
