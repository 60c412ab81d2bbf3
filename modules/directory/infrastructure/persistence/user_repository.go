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

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) MapByCode(ctx context.Context, dataSourceID int64) (map[string]datasource.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, data_source_id, code, username, full_name, email, phone, phone_country_code, extras
		FROM data_source_users
		WHERE data_source_id = $1
	`, dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]datasource.User)
	for rows.Next() {
		var row models.User
		if err := rows.Scan(
			&row.ID,
			&row.DataSourceID,
			&row.Code,
			&row.Username,
			&row.FullName,
			&row.Email,
			&row.Phone,
			&row.PhoneCountryCode,
			&row.Extras,
		); err != nil {
			return nil, err
		}
		out[row.Code] = datasource.User(row)
	}
	return out, rows.Err()
}

func (r *UserRepository) BulkCreate(ctx context.Context, users []datasource.User) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(users, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, u := range chunk {
			batch.Queue(`
				INSERT INTO data_source_users
					(data_source_id, code, username, full_name, email, phone, phone_country_code, extras)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, u.DataSourceID, u.Code, u.Username, u.FullName, u.Email, u.Phone, u.PhoneCountryCode, u.Extras)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepository) BulkUpdate(ctx context.Context, users []datasource.User) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(users, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, u := range chunk {
			batch.Queue(`
				UPDATE data_source_users
				SET username = $2, full_name = $3, email = $4, phone = $5, phone_country_code = $6, extras = $7
				WHERE id = $1
			`, u.ID, u.Username, u.FullName, u.Email, u.Phone, u.PhoneCountryCode, u.Extras)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepository) BulkDeleteByCodes(ctx context.Context, dataSourceID int64, codes []string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	for _, chunk := range repo.ChunkSlice(codes, configuration.Use().Sync.BatchSize) {
		if _, err := tx.Exec(ctx, `
			DELETE FROM data_source_users
			WHERE data_source_id = $1 AND code = ANY($2)
		`, dataSourceID, chunk); err != nil {
			return err
		}
	}
	return nil
}
