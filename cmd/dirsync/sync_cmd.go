package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
	"github.com/iota-uz/dirsync/modules/directory/handlers"
	"github.com/iota-uz/dirsync/modules/directory/infrastructure/persistence"
	"github.com/iota-uz/dirsync/modules/directory/services"
	"github.com/iota-uz/dirsync/pkg/composables"
	"github.com/iota-uz/dirsync/pkg/configuration"
	"github.com/iota-uz/dirsync/pkg/eventbus"
	"github.com/iota-uz/dirsync/pkg/logging"
	"github.com/iota-uz/dirsync/pkg/metrics"
)

type syncOptions struct {
	dataSource  string
	file        string
	overwrite   bool
	incremental bool
	trigger     string
}

func newSyncCmd() *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync a raw-records batch into a data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataSource, "data-source", "", "Data source ID or code (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Raw records file, YAML or JSON (required)")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Overwrite attributes of existing entities")
	cmd.Flags().BoolVar(&opts.incremental, "incremental", false, "Treat the batch as partial; skip deletions")
	cmd.Flags().StringVar(&opts.trigger, "trigger", string(synctask.TriggerManual), "Trigger source: manual, crontab or signal")

	_ = cmd.MarkFlagRequired("data-source")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSync(ctx context.Context, opts syncOptions) error {
	trigger, err := parseTrigger(opts.trigger)
	if err != nil {
		return withCode(exitUsage, err)
	}
	records, err := loadRawRecords(opts.file)
	if err != nil {
		return withCode(exitUsage, err)
	}

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		cleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer cleanup()
	}

	pool, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	sources := persistence.NewDataSourceRepository()
	dataSourceID, err := resolveDataSource(ctx, sources, opts.dataSource)
	if err != nil {
		return withCode(exitUsage, err)
	}

	bus := eventbus.NewEventPublisher(logger)
	handlers.RegisterSyncMetricsHandlers(bus)

	svc := services.NewSyncService(services.SyncServiceParams{
		Sources:     sources,
		Tenants:     persistence.NewTenantRepository(),
		Departments: persistence.NewDepartmentRepository(),
		Relations:   persistence.NewDepartmentRelationRepository(),
		Users:       persistence.NewUserRepository(),
		Edges:       persistence.NewRelationRepository(),
		TenantDepts: persistence.NewTenantDepartmentRepository(),
		TenantUsers: persistence.NewTenantUserRepository(),
		Tasks:       persistence.NewSyncTaskRepository(),
		Locks:       persistence.NewLockRepository(),
		Bus:         bus,
		Logger:      logger,
		MaxRoots:    conf.Sync.MaxRootDepartments,
	})

	result, err := svc.SyncDataSource(ctx, dataSourceID, records, services.SyncOptions{
		Overwrite:   opts.overwrite,
		Incremental: opts.incremental,
		Trigger:     trigger,
	})
	if errors.Is(err, services.ErrSyncInProgress) {
		return withCode(exitBusy, err)
	}
	if conf.Prometheus.Enabled {
		if pushErr := metrics.Push(conf.Prometheus.PushGatewayURL, conf.Prometheus.JobName); pushErr != nil {
			logger.Warnf("push metrics to %s: %v", conf.Prometheus.PushGatewayURL, pushErr)
		}
	}
	if result != nil {
		if outErr := writeJSONLine(summarize(result)); outErr != nil && err == nil {
			err = outErr
		}
	}
	if err != nil {
		return withCode(exitDB, err)
	}
	return nil
}

func resolveDataSource(ctx context.Context, sources *persistence.DataSourceRepository, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	ds, err := sources.GetByCode(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("resolve data source %q: %w", ref, err)
	}
	return ds.ID, nil
}

func parseTrigger(s string) (synctask.Trigger, error) {
	switch synctask.Trigger(strings.ToLower(strings.TrimSpace(s))) {
	case synctask.TriggerManual:
		return synctask.TriggerManual, nil
	case synctask.TriggerCrontab:
		return synctask.TriggerCrontab, nil
	case synctask.TriggerSignal:
		return synctask.TriggerSignal, nil
	default:
		return "", fmt.Errorf("invalid --trigger %q", s)
	}
}

func loadRawRecords(path string) (*datasource.RawRecords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}
	var records datasource.RawRecords
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return &records, nil
}

type taskSummary struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	HasWarning bool   `json:"has_warning"`
	DurationMS int64  `json:"duration_ms"`
	Changes    int    `json:"changes"`
}

type syncSummary struct {
	DataSource *taskSummary `json:"data_source_task,omitempty"`
	Tenant     *taskSummary `json:"tenant_task,omitempty"`
}

func summarize(r *services.SyncResult) syncSummary {
	out := syncSummary{}
	if r.DataSourceTask != nil {
		out.DataSource = newTaskSummary(r.DataSourceTask, len(r.Changes))
	}
	if r.TenantTask != nil {
		out.Tenant = newTaskSummary(r.TenantTask, len(r.TenantChanges))
	}
	return out
}

func newTaskSummary(t *synctask.SyncTask, changes int) *taskSummary {
	return &taskSummary{
		ID:         t.ID,
		Type:       string(t.Type),
		Status:     string(t.Status),
		HasWarning: t.HasWarning,
		DurationMS: t.Duration.Milliseconds(),
		Changes:    changes,
	}
}
