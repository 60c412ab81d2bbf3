package services

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
	"github.com/iota-uz/dirsync/pkg/composables"
	"github.com/iota-uz/dirsync/pkg/eventbus"
)

// ErrSyncInProgress is returned when a sync is requested for a data source
// whose lease is already held. No task row is created for the rejected
// request.
var ErrSyncInProgress = errors.New("a sync task is already running for this data source")

// SyncCompletedEvent is published after every task scope exits, success or
// failure.
type SyncCompletedEvent struct {
	Task    *synctask.SyncTask
	Changes []Change
}

// SyncResult is the outcome of one engine invocation.
type SyncResult struct {
	DataSourceTask *synctask.SyncTask
	TenantTask     *synctask.SyncTask
	Changes        []Change
	TenantChanges  []Change
}

// SyncService runs the sync pipeline: the four data-source stage syncers in
// sequence inside a data-source task, then, on success, the two tenant
// propagation syncers inside a tenant task for the owning tenant. Stages run
// strictly in sequence, each inside its own transaction.
type SyncService struct {
	sources     DataSourceStore
	tenants     TenantStore
	depts       DepartmentStore
	rels        DepartmentRelationStore
	users       UserStore
	edges       RelationStore
	tenantDepts TenantDepartmentStore
	tenantUsers TenantUserStore
	tasks       TaskStore
	locks       LockStore
	bus         eventbus.EventBus
	logger      *logrus.Logger
	maxRoots    int

	// atomic wraps one pipeline stage in a transaction.
	atomic func(ctx context.Context, fn func(context.Context) error) error
}

type SyncServiceParams struct {
	Sources     DataSourceStore
	Tenants     TenantStore
	Departments DepartmentStore
	Relations   DepartmentRelationStore
	Users       UserStore
	Edges       RelationStore
	TenantDepts TenantDepartmentStore
	TenantUsers TenantUserStore
	Tasks       TaskStore
	Locks       LockStore
	Bus         eventbus.EventBus
	Logger      *logrus.Logger
	// MaxRoots caps the root-department count per data source; zero means
	// the full tree_id index space.
	MaxRoots int
}

func NewSyncService(p SyncServiceParams) *SyncService {
	return &SyncService{
		sources:     p.Sources,
		tenants:     p.Tenants,
		depts:       p.Departments,
		rels:        p.Relations,
		users:       p.Users,
		edges:       p.Edges,
		tenantDepts: p.TenantDepts,
		tenantUsers: p.TenantUsers,
		tasks:       p.Tasks,
		locks:       p.Locks,
		bus:         p.Bus,
		logger:      p.Logger,
		maxRoots:    p.MaxRoots,
		atomic:      composables.InTx,
	}
}

// SyncDataSource ingests one raw record batch for the given data source.
func (s *SyncService) SyncDataSource(ctx context.Context, dataSourceID int64, records *datasource.RawRecords, opts SyncOptions) (*SyncResult, error) {
	ds, err := s.sources.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load data source")
	}
	if records == nil {
		records = &datasource.RawRecords{}
	}
	if opts.Trigger == "" {
		opts.Trigger = synctask.TriggerManual
	}

	release, err := s.locks.Acquire(ctx, ds.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	tracer := otel.Tracer("dirsync")
	ctx, span := tracer.Start(ctx, "sync.data_source",
		trace.WithAttributes(attribute.Int64("data_source.id", ds.ID)))
	defer span.End()

	result := &SyncResult{}

	tc := NewDataSourceTaskContext(s.tasks, ds, opts)
	err = tc.Execute(ctx, func(ctx context.Context) error {
		return s.runStages(ctx, tracer, tc, s.sourceSyncers(ds, records, opts, tc.Logger()))
	})
	result.DataSourceTask = tc.Task()
	result.Changes = tc.Changes()
	s.publish(tc)
	if err != nil {
		return result, pkgerrors.Wrapf(err, "data source %d sync", ds.ID)
	}

	tenantTask, tenantChanges, err := s.propagate(ctx, tracer, ds, opts)
	result.TenantTask = tenantTask
	result.TenantChanges = tenantChanges
	if err != nil {
		return result, pkgerrors.Wrapf(err, "tenant propagation for data source %d", ds.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"data_source": ds.Code,
		"changes":     len(result.Changes) + len(result.TenantChanges),
	}).Info("sync completed")
	return result, nil
}

func (s *SyncService) sourceSyncers(ds datasource.DataSource, records *datasource.RawRecords, opts SyncOptions, log *logrus.Logger) []Syncer {
	return []Syncer{
		NewDepartmentSyncer(s.depts, ds, records.Departments, opts, log),
		NewDepartmentRelationSyncer(s.depts, s.rels, ds, records.Departments, log, s.maxRoots),
		NewUserSyncer(s.users, ds, records.Users, opts, log),
		NewUserLeaderRelationSyncer(s.users, s.edges, ds, records.Users, opts, log),
		NewUserDepartmentRelationSyncer(s.users, s.depts, s.edges, ds, records.Users, opts, log),
	}
}

func (s *SyncService) propagate(ctx context.Context, tracer trace.Tracer, ds datasource.DataSource, opts SyncOptions) (*synctask.SyncTask, []Change, error) {
	tn, err := s.tenants.Get(ctx, ds.TenantID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "load tenant")
	}

	tc := NewTenantTaskContext(s.tasks, ds, tn.ID, opts)
	err = tc.Execute(ctx, func(ctx context.Context) error {
		return s.runStages(ctx, tracer, tc, []Syncer{
			NewTenantDepartmentSyncer(s.tenantDepts, ds, tn, tc.Logger()),
			NewTenantUserSyncer(s.tenantUsers, ds, tn, tc.Logger()),
		})
	})
	s.publish(tc)
	return tc.Task(), tc.Changes(), err
}

func (s *SyncService) runStages(ctx context.Context, tracer trace.Tracer, tc *TaskContext, syncers []Syncer) error {
	for _, syncer := range syncers {
		stageCtx, span := tracer.Start(ctx, "sync.stage."+syncer.Name())
		var changes []Change
		err := s.atomic(stageCtx, func(ctx context.Context) error {
			var syncErr error
			changes, syncErr = syncer.Sync(ctx)
			return syncErr
		})
		span.End()
		if err != nil {
			return pkgerrors.Wrap(err, syncer.Name())
		}
		tc.Record(changes...)
	}
	return nil
}

func (s *SyncService) publish(tc *TaskContext) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&SyncCompletedEvent{Task: tc.Task(), Changes: tc.Changes()})
}
