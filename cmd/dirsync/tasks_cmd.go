package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/dirsync/modules/directory/infrastructure/persistence"
	"github.com/iota-uz/dirsync/pkg/composables"
)

func newTasksCmd() *cobra.Command {
	var dataSourceID int64
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List sync tasks for a data source, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd.Context(), dataSourceID, limit, offset)
		},
	}

	cmd.Flags().Int64Var(&dataSourceID, "data-source", 0, "Data source ID (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum tasks to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Tasks to skip")
	_ = cmd.MarkFlagRequired("data-source")

	return cmd
}

func runTasks(ctx context.Context, dataSourceID int64, limit, offset int) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	tasks, err := persistence.NewSyncTaskRepository().ListByDataSource(ctx, dataSourceID, limit, offset)
	if err != nil {
		return withCode(exitDB, err)
	}
	for _, t := range tasks {
		row := taskRow{
			ID:          t.ID,
			Type:        string(t.Type),
			Status:      string(t.Status),
			Trigger:     string(t.Trigger),
			Overwrite:   t.Overwrite,
			Incremental: t.Incremental,
			HasWarning:  t.HasWarning,
			StartedAt:   t.StartedAt,
			DurationMS:  t.Duration.Milliseconds(),
		}
		if err := writeJSONLine(row); err != nil {
			return err
		}
	}
	return nil
}

type taskRow struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Trigger     string    `json:"trigger"`
	Overwrite   bool      `json:"overwrite"`
	Incremental bool      `json:"incremental"`
	HasWarning  bool      `json:"has_warning"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}
