package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/dirsync/modules/directory/services"
	"github.com/iota-uz/dirsync/pkg/composables"
	"github.com/iota-uz/dirsync/pkg/configuration"
	"github.com/iota-uz/dirsync/pkg/repo"
)

// RelationRepository persists both relation graphs; the edge kind selects
// the table.
type RelationRepository struct{}

func NewRelationRepository() *RelationRepository {
	return &RelationRepository{}
}

type edgeTable struct {
	name      string
	targetCol string
}

func tableFor(kind services.EdgeKind) (edgeTable, error) {
	switch kind {
	case services.EdgeLeader:
		return edgeTable{name: "data_source_user_leader_relations", targetCol: "leader_id"}, nil
	case services.EdgeDepartment:
		return edgeTable{name: "data_source_department_user_relations", targetCol: "department_id"}, nil
	default:
		return edgeTable{}, gerrors.Errorf("unknown edge kind %q", kind)
	}
}

func (r *RelationRepository) ListByUserIDs(ctx context.Context, kind services.EdgeKind, userIDs []int64) ([]services.Edge, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var out []services.Edge
	for _, chunk := range repo.ChunkSlice(userIDs, configuration.Use().Sync.BatchSize) {
		rows, err := tx.Query(ctx, `
			SELECT user_id, `+t.targetCol+` FROM `+t.name+` WHERE user_id = ANY($1)
		`, chunk)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var e services.Edge
			if err := rows.Scan(&e.UserID, &e.TargetID); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *RelationRepository) BulkCreate(ctx context.Context, kind services.EdgeKind, edges []services.Edge) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(edges, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, e := range chunk {
			batch.Queue(`
				INSERT INTO `+t.name+` (user_id, `+t.targetCol+`)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, e.UserID, e.TargetID)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *RelationRepository) BulkDelete(ctx context.Context, kind services.EdgeKind, edges []services.Edge) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(edges, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, e := range chunk {
			batch.Queue(`
				DELETE FROM `+t.name+` WHERE user_id = $1 AND `+t.targetCol+` = $2
			`, e.UserID, e.TargetID)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}
