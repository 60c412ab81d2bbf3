package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iota-uz/dirsync/modules/directory/infrastructure/persistence"
	"github.com/iota-uz/dirsync/pkg/composables"
)

func newTreeCmd() *cobra.Command {
	var dataSource string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the department forest of a data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd.Context(), dataSource)
		},
	}

	cmd.Flags().StringVar(&dataSource, "data-source", "", "Data source ID or code (required)")
	_ = cmd.MarkFlagRequired("data-source")

	return cmd
}

type treeRow struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	TreeID int64  `json:"tree_id"`
	Level  int    `json:"level"`
	Left   int    `json:"lft"`
	Right  int    `json:"rght"`
}

func runTree(ctx context.Context, dataSource string) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	dataSourceID, err := resolveDataSource(ctx, persistence.NewDataSourceRepository(), dataSource)
	if err != nil {
		return withCode(exitUsage, err)
	}

	departments, err := persistence.NewDepartmentRepository().MapByCode(ctx, dataSourceID)
	if err != nil {
		return withCode(exitDB, err)
	}
	byID := make(map[int64]string, len(departments))
	for code := range departments {
		byID[departments[code].ID] = code
	}

	relations, err := persistence.NewDepartmentRelationRepository().ListByDataSource(ctx, dataSourceID)
	if err != nil {
		return withCode(exitDB, err)
	}

	for _, rel := range relations {
		code := byID[rel.DepartmentID]
		row := treeRow{
			Code:   code,
			Name:   departments[code].Name,
			TreeID: rel.TreeID,
			Level:  rel.Level,
			Left:   rel.Left,
			Right:  rel.Right,
		}
		if err := writeJSONLine(row); err != nil {
			return err
		}
	}
	return nil
}
