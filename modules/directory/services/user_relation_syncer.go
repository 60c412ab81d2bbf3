package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
)

// UserRelationSyncer reconciles one of the two relation graphs implied by
// the raw user records: user->leader or user->department edges. An edge
// either exists or it does not; the diff knows no update operation. The
// existing-edge scope is the edge set of the users present in the raw batch,
// so incremental syncs never touch edges of users outside the batch.
type UserRelationSyncer struct {
	kind    EdgeKind
	users   UserStore
	depts   DepartmentStore
	store   RelationStore
	ds      datasource.DataSource
	records []datasource.RawUser
	opts    SyncOptions
	log     *logrus.Logger
}

func NewUserLeaderRelationSyncer(users UserStore, store RelationStore, ds datasource.DataSource, records []datasource.RawUser, opts SyncOptions, log *logrus.Logger) *UserRelationSyncer {
	return &UserRelationSyncer{
		kind:    EdgeLeader,
		users:   users,
		store:   store,
		ds:      ds,
		records: records,
		opts:    opts,
		log:     log,
	}
}

func NewUserDepartmentRelationSyncer(users UserStore, depts DepartmentStore, store RelationStore, ds datasource.DataSource, records []datasource.RawUser, opts SyncOptions, log *logrus.Logger) *UserRelationSyncer {
	return &UserRelationSyncer{
		kind:    EdgeDepartment,
		users:   users,
		depts:   depts,
		store:   store,
		ds:      ds,
		records: records,
		opts:    opts,
		log:     log,
	}
}

func (s *UserRelationSyncer) Name() string {
	if s.kind == EdgeLeader {
		return "user_leader_relations"
	}
	return "user_department_relations"
}

func (s *UserRelationSyncer) Sync(ctx context.Context) ([]Change, error) {
	userIDs, err := s.users.MapByCode(ctx, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load users")
	}

	resolveTarget, err := s.targetResolver(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	desired := make(map[Edge]struct{})
	batchUserIDs := make([]int64, 0, len(s.records))
	for _, rec := range s.records {
		user, ok := userIDs[rec.Code]
		if !ok {
			// The user stage runs first, so this only happens for raw
			// records the entity sync itself skipped.
			s.log.Warnf("user %q missing from store, skipping its %s relations", rec.Code, s.kind)
			continue
		}
		batchUserIDs = append(batchUserIDs, user.ID)

		for _, targetCode := range s.targetCodes(rec) {
			targetID, ok := resolveTarget(targetCode)
			if !ok {
				s.logUnresolved(rec.Code, targetCode)
				continue
			}
			if s.kind == EdgeLeader && targetID == user.ID {
				s.log.Warnf("user %q lists itself as leader, skipping the self edge", rec.Code)
				continue
			}
			desired[Edge{UserID: user.ID, TargetID: targetID}] = struct{}{}
		}
	}

	existingEdges, err := s.store.ListByUserIDs(ctx, s.kind, batchUserIDs)
	if err != nil {
		return nil, errors.Wrapf(err, "load existing %s relations", s.kind)
	}
	existing := make(map[Edge]struct{}, len(existingEdges))
	for _, e := range existingEdges {
		existing[e] = struct{}{}
	}

	var creates, deletes []Edge
	for e := range desired {
		if _, ok := existing[e]; !ok {
			creates = append(creates, e)
		}
	}
	for e := range existing {
		if _, ok := desired[e]; !ok {
			deletes = append(deletes, e)
		}
	}

	if len(deletes) > 0 {
		if err := s.store.BulkDelete(ctx, s.kind, deletes); err != nil {
			return nil, errors.Wrapf(err, "delete %s relations", s.kind)
		}
	}
	if len(creates) > 0 {
		if err := s.store.BulkCreate(ctx, s.kind, creates); err != nil {
			return nil, errors.Wrapf(err, "create %s relations", s.kind)
		}
	}

	s.log.Infof("%s relations synced: %d created, %d deleted", s.kind, len(creates), len(deletes))
	return nil, nil
}

func (s *UserRelationSyncer) targetCodes(rec datasource.RawUser) []string {
	if s.kind == EdgeLeader {
		return rec.Leaders
	}
	return rec.Departments
}

// targetResolver resolves referenced codes against the store's full code
// map, so references to entities synced in earlier runs resolve in
// incremental mode.
func (s *UserRelationSyncer) targetResolver(ctx context.Context, users map[string]datasource.User) (func(code string) (int64, bool), error) {
	if s.kind == EdgeLeader {
		return func(code string) (int64, bool) {
			u, ok := users[code]
			return u.ID, ok
		}, nil
	}
	departments, err := s.depts.MapByCode(ctx, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load departments")
	}
	return func(code string) (int64, bool) {
		d, ok := departments[code]
		return d.ID, ok
	}, nil
}

// logUnresolved records a missing reference. In full mode a dangling code is
// an anomaly worth a warning; in incremental mode the batch is partial by
// definition, so the skip is only informational.
func (s *UserRelationSyncer) logUnresolved(userCode, targetCode string) {
	if s.opts.Incremental {
		s.log.Infof("user %q references unknown %s %q, edge skipped", userCode, s.kind, targetCode)
		return
	}
	s.log.Warnf("user %q references unknown %s %q, edge skipped", userCode, s.kind, targetCode)
}
