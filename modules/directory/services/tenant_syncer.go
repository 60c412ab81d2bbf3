package services

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/tenant"
)

// TenantDepartmentSyncer mirrors one data source's departments into a
// tenant: create mirrors for newly visible departments, delete mirrors whose
// source department disappeared. Mirrors of other data sources under the
// same tenant are never touched.
type TenantDepartmentSyncer struct {
	store TenantDepartmentStore
	ds    datasource.DataSource
	tn    tenant.Tenant
	log   *logrus.Logger
}

func NewTenantDepartmentSyncer(store TenantDepartmentStore, ds datasource.DataSource, tn tenant.Tenant, log *logrus.Logger) *TenantDepartmentSyncer {
	return &TenantDepartmentSyncer{store: store, ds: ds, tn: tn, log: log}
}

func (s *TenantDepartmentSyncer) Name() string { return "tenant_departments" }

func (s *TenantDepartmentSyncer) Sync(ctx context.Context) ([]Change, error) {
	source, err := s.store.SourceDepartments(ctx, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load source departments")
	}
	mirrors, err := s.store.Mirrors(ctx, s.tn.ID, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load tenant department mirrors")
	}

	var (
		changes   []Change
		deleteIDs []int64
	)
	mirrored := make(map[int64]bool, len(mirrors))
	for _, m := range mirrors {
		if _, ok := source[m.DepartmentID]; ok {
			mirrored[m.DepartmentID] = true
			continue
		}
		deleteIDs = append(deleteIDs, m.ID)
		changes = append(changes, Change{
			Entity: synctask.EntityTenantDepartment,
			Op:     synctask.OpDelete,
			Code:   strconv.FormatInt(m.DepartmentID, 10),
		})
	}

	var creates []tenant.Department
	for id, dept := range source {
		if mirrored[id] {
			continue
		}
		creates = append(creates, tenant.Department{
			TenantID:     s.tn.ID,
			DataSourceID: s.ds.ID,
			DepartmentID: id,
		})
		changes = append(changes, Change{
			Entity: synctask.EntityTenantDepartment,
			Op:     synctask.OpCreate,
			Code:   dept.Code,
			Name:   dept.Name,
		})
	}

	if len(deleteIDs) > 0 {
		if err := s.store.BulkDelete(ctx, deleteIDs); err != nil {
			return nil, errors.Wrap(err, "delete tenant department mirrors")
		}
	}
	if len(creates) > 0 {
		if err := s.store.BulkCreate(ctx, creates); err != nil {
			return nil, errors.Wrap(err, "create tenant department mirrors")
		}
	}

	s.log.Infof("tenant departments synced: %d created, %d deleted", len(creates), len(deleteIDs))
	return changes, nil
}

// TenantUserSyncer mirrors one data source's users into a tenant. New
// mirrors receive an account-expiration timestamp from the tenant
// validity-period policy.
type TenantUserSyncer struct {
	store TenantUserStore
	ds    datasource.DataSource
	tn    tenant.Tenant
	log   *logrus.Logger
	now   func() time.Time
}

func NewTenantUserSyncer(store TenantUserStore, ds datasource.DataSource, tn tenant.Tenant, log *logrus.Logger) *TenantUserSyncer {
	return &TenantUserSyncer{store: store, ds: ds, tn: tn, log: log, now: time.Now}
}

func (s *TenantUserSyncer) Name() string { return "tenant_users" }

func (s *TenantUserSyncer) Sync(ctx context.Context) ([]Change, error) {
	source, err := s.store.SourceUsers(ctx, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load source users")
	}
	mirrors, err := s.store.Mirrors(ctx, s.tn.ID, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load tenant user mirrors")
	}

	var (
		changes   []Change
		deleteIDs []int64
	)
	mirrored := make(map[int64]bool, len(mirrors))
	for _, m := range mirrors {
		if _, ok := source[m.UserID]; ok {
			mirrored[m.UserID] = true
			continue
		}
		deleteIDs = append(deleteIDs, m.ID)
		changes = append(changes, Change{
			Entity: synctask.EntityTenantUser,
			Op:     synctask.OpDelete,
			Code:   strconv.FormatInt(m.UserID, 10),
		})
	}

	expiredAt := s.tn.AccountExpiration(s.now())
	var creates []tenant.User
	for id, user := range source {
		if mirrored[id] {
			continue
		}
		creates = append(creates, tenant.User{
			TenantID:     s.tn.ID,
			DataSourceID: s.ds.ID,
			UserID:       id,
			ExpiredAt:    expiredAt,
		})
		changes = append(changes, Change{
			Entity: synctask.EntityTenantUser,
			Op:     synctask.OpCreate,
			Code:   user.Code,
			Name:   user.FullName,
		})
	}

	if len(deleteIDs) > 0 {
		if err := s.store.BulkDelete(ctx, deleteIDs); err != nil {
			return nil, errors.Wrap(err, "delete tenant user mirrors")
		}
	}
	if len(creates) > 0 {
		if err := s.store.BulkCreate(ctx, creates); err != nil {
			return nil, errors.Wrap(err, "create tenant user mirrors")
		}
	}

	s.log.Infof("tenant users synced: %d created, %d deleted", len(creates), len(deleteIDs))
	return changes, nil
}
