package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
)

// DepartmentSyncer reconciles the department records of one data source
// against the raw batch: create = raw − existing, delete = existing − raw
// (suppressed in incremental mode), update = the intersection, applied only
// in overwrite mode.
type DepartmentSyncer struct {
	store   DepartmentStore
	ds      datasource.DataSource
	records []datasource.RawDepartment
	opts    SyncOptions
	log     *logrus.Logger
}

func NewDepartmentSyncer(store DepartmentStore, ds datasource.DataSource, records []datasource.RawDepartment, opts SyncOptions, log *logrus.Logger) *DepartmentSyncer {
	return &DepartmentSyncer{store: store, ds: ds, records: records, opts: opts, log: log}
}

func (s *DepartmentSyncer) Name() string { return "departments" }

func (s *DepartmentSyncer) Sync(ctx context.Context) ([]Change, error) {
	existing, err := s.store.MapByCode(ctx, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load existing departments")
	}

	rawByCode := make(map[string]datasource.RawDepartment, len(s.records))
	order := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		if _, dup := rawByCode[rec.Code]; dup {
			s.log.Warnf("duplicate department code %q in raw batch, keeping the last record", rec.Code)
		} else {
			order = append(order, rec.Code)
		}
		rawByCode[rec.Code] = rec
	}

	var (
		creates []datasource.Department
		updates []datasource.Department
		deletes []string
		changes []Change
	)

	for _, code := range order {
		rec := rawByCode[code]
		current, ok := existing[code]
		if !ok {
			creates = append(creates, datasource.Department{
				DataSourceID: s.ds.ID,
				Code:         rec.Code,
				Name:         rec.Name,
			})
			changes = append(changes, Change{
				Entity: synctask.EntityDepartment,
				Op:     synctask.OpCreate,
				Code:   rec.Code,
				Name:   rec.Name,
			})
			continue
		}
		if s.opts.Overwrite && current.Name != rec.Name {
			current.Name = rec.Name
			updates = append(updates, current)
			changes = append(changes, Change{
				Entity: synctask.EntityDepartment,
				Op:     synctask.OpUpdate,
				Code:   rec.Code,
				Name:   rec.Name,
			})
		}
	}

	if !s.opts.Incremental {
		for code, dept := range existing {
			if _, ok := rawByCode[code]; ok {
				continue
			}
			deletes = append(deletes, code)
			changes = append(changes, Change{
				Entity: synctask.EntityDepartment,
				Op:     synctask.OpDelete,
				Code:   dept.Code,
				Name:   dept.Name,
			})
		}
	}

	if len(deletes) > 0 {
		if err := s.store.BulkDeleteByCodes(ctx, s.ds.ID, deletes); err != nil {
			return nil, errors.Wrap(err, "delete departments")
		}
	}
	if len(creates) > 0 {
		if err := s.store.BulkCreate(ctx, creates); err != nil {
			return nil, errors.Wrap(err, "create departments")
		}
	}
	if len(updates) > 0 {
		if err := s.store.BulkUpdate(ctx, updates); err != nil {
			return nil, errors.Wrap(err, "update departments")
		}
	}

	s.log.Infof("departments synced: %d created, %d updated, %d deleted",
		len(creates), len(updates), len(deletes))
	return changes, nil
}
