package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/tenant"
	"github.com/iota-uz/dirsync/pkg/composables"
	"github.com/iota-uz/dirsync/pkg/configuration"
	"github.com/iota-uz/dirsync/pkg/repo"
)

type TenantRepository struct{}

func NewTenantRepository() *TenantRepository {
	return &TenantRepository{}
}

func (r *TenantRepository) Get(ctx context.Context, id uuid.UUID) (tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return tenant.Tenant{}, err
	}
	var tn tenant.Tenant
	err = tx.QueryRow(ctx, `
		SELECT id, name, user_validity_period, created_at
		FROM tenants
		WHERE id = $1
	`, id).Scan(&tn.ID, &tn.Name, &tn.UserValidityPeriod, &tn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, gerrors.Wrap(err, "get tenant")
	}
	return tn, nil
}

// TenantDepartmentRepository maintains the tenant-scoped department mirrors.
type TenantDepartmentRepository struct{}

func NewTenantDepartmentRepository() *TenantDepartmentRepository {
	return &TenantDepartmentRepository{}
}

func (r *TenantDepartmentRepository) SourceDepartments(ctx context.Context, dataSourceID int64) (map[int64]datasource.Department, error) {
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

	out := make(map[int64]datasource.Department)
	for rows.Next() {
		var d datasource.Department
		if err := rows.Scan(&d.ID, &d.DataSourceID, &d.Code, &d.Name); err != nil {
			return nil, err
		}
		out[d.ID] = d
	}
	return out, rows.Err()
}

func (r *TenantDepartmentRepository) Mirrors(ctx context.Context, tenantID uuid.UUID, dataSourceID int64) ([]tenant.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, data_source_id, department_id
		FROM tenant_departments
		WHERE tenant_id = $1 AND data_source_id = $2
	`, tenantID, dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenant.Department
	for rows.Next() {
		var m tenant.Department
		if err := rows.Scan(&m.ID, &m.TenantID, &m.DataSourceID, &m.DepartmentID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *TenantDepartmentRepository) BulkCreate(ctx context.Context, mirrors []tenant.Department) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range repo.ChunkSlice(mirrors, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, m := range chunk {
			batch.Queue(`
				INSERT INTO tenant_departments (tenant_id, data_source_id, department_id)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, m.TenantID, m.DataSourceID, m.DepartmentID)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *TenantDepartmentRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range repo.ChunkSlice(ids, configuration.Use().Sync.BatchSize) {
		if _, err := tx.Exec(ctx, `DELETE FROM tenant_departments WHERE id = ANY($1)`, chunk); err != nil {
			return gerrors.Wrap(err, "delete tenant departments")
		}
	}
	return nil
}

// TenantUserRepository maintains the tenant-scoped user mirrors.
type TenantUserRepository struct{}

func NewTenantUserRepository() *TenantUserRepository {
	return &TenantUserRepository{}
}

func (r *TenantUserRepository) SourceUsers(ctx context.Context, dataSourceID int64) (map[int64]datasource.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, data_source_id, code, username, full_name, email,
		       phone, phone_country_code, extras
		FROM data_source_users
		WHERE data_source_id = $1
	`, dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]datasource.User)
	for rows.Next() {
		var u datasource.User
		if err := rows.Scan(
			&u.ID, &u.DataSourceID, &u.Code, &u.Username, &u.FullName,
			&u.Email, &u.Phone, &u.PhoneCountryCode, &u.Extras,
		); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (r *TenantUserRepository) Mirrors(ctx context.Context, tenantID uuid.UUID, dataSourceID int64) ([]tenant.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, data_source_id, user_id, expired_at
		FROM tenant_users
		WHERE tenant_id = $1 AND data_source_id = $2
	`, tenantID, dataSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenant.User
	for rows.Next() {
		var m tenant.User
		if err := rows.Scan(&m.ID, &m.TenantID, &m.DataSourceID, &m.UserID, &m.ExpiredAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *TenantUserRepository) BulkCreate(ctx context.Context, mirrors []tenant.User) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range repo.ChunkSlice(mirrors, configuration.Use().Sync.BatchSize) {
		batch := &pgx.Batch{}
		for _, m := range chunk {
			batch.Queue(`
				INSERT INTO tenant_users (tenant_id, data_source_id, user_id, expired_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT DO NOTHING
			`, m.TenantID, m.DataSourceID, m.UserID, m.ExpiredAt)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *TenantUserRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range repo.ChunkSlice(ids, configuration.Use().Sync.BatchSize) {
		if _, err := tx.Exec(ctx, `DELETE FROM tenant_users WHERE id = ANY($1)`, chunk); err != nil {
			return gerrors.Wrap(err, "delete tenant users")
		}
	}
	return nil
}
