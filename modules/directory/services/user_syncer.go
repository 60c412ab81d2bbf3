package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
)

// UserSyncer reconciles the user records of one data source against the raw
// batch, set-diff semantics identical to DepartmentSyncer. When the data
// source's username is governed by a naming rule, that one field is excluded
// from overwrite: the rule, not the source, is authoritative for it.
type UserSyncer struct {
	store   UserStore
	ds      datasource.DataSource
	records []datasource.RawUser
	opts    SyncOptions
	log     *logrus.Logger
}

func NewUserSyncer(store UserStore, ds datasource.DataSource, records []datasource.RawUser, opts SyncOptions, log *logrus.Logger) *UserSyncer {
	return &UserSyncer{store: store, ds: ds, records: records, opts: opts, log: log}
}

func (s *UserSyncer) Name() string { return "users" }

func (s *UserSyncer) Sync(ctx context.Context) ([]Change, error) {
	existing, err := s.store.MapByCode(ctx, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load existing users")
	}

	rawByCode := make(map[string]datasource.RawUser, len(s.records))
	order := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		if _, dup := rawByCode[rec.Code]; dup {
			s.log.Warnf("duplicate user code %q in raw batch, keeping the last record", rec.Code)
		} else {
			order = append(order, rec.Code)
		}
		rawByCode[rec.Code] = rec
	}

	overwriteUsername := !s.ds.UsernameGoverned()

	var (
		creates []datasource.User
		updates []datasource.User
		deletes []string
		changes []Change
	)

	for _, code := range order {
		incoming := rawByCode[code].ToUser(s.ds.ID)
		current, ok := existing[code]
		if !ok {
			creates = append(creates, incoming)
			changes = append(changes, Change{
				Entity: synctask.EntityUser,
				Op:     synctask.OpCreate,
				Code:   incoming.Code,
				Name:   incoming.FullName,
			})
			continue
		}
		if !s.opts.Overwrite || current.FieldsEqual(incoming, overwriteUsername) {
			continue
		}
		incoming.ID = current.ID
		if !overwriteUsername {
			incoming.Username = current.Username
		}
		updates = append(updates, incoming)
		changes = append(changes, Change{
			Entity: synctask.EntityUser,
			Op:     synctask.OpUpdate,
			Code:   incoming.Code,
			Name:   incoming.FullName,
		})
	}

	if !s.opts.Incremental {
		for code, user := range existing {
			if _, ok := rawByCode[code]; ok {
				continue
			}
			deletes = append(deletes, code)
			changes = append(changes, Change{
				Entity: synctask.EntityUser,
				Op:     synctask.OpDelete,
				Code:   user.Code,
				Name:   user.FullName,
			})
		}
	}

	if len(deletes) > 0 {
		if err := s.store.BulkDeleteByCodes(ctx, s.ds.ID, deletes); err != nil {
			return nil, errors.Wrap(err, "delete users")
		}
	}
	if len(creates) > 0 {
		if err := s.store.BulkCreate(ctx, creates); err != nil {
			return nil, errors.Wrap(err, "create users")
		}
	}
	if len(updates) > 0 {
		if err := s.store.BulkUpdate(ctx, updates); err != nil {
			return nil, errors.Wrap(err, "update users")
		}
	}

	s.log.Infof("users synced: %d created, %d updated, %d deleted",
		len(creates), len(updates), len(deletes))
	return changes, nil
}
