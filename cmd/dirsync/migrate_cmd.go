package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/dirsync/migrations"
	"github.com/iota-uz/dirsync/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	var down bool
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(down, dir)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back the latest migration instead of applying")
	cmd.Flags().StringVar(&dir, "dir", configuration.Use().MigrationsDir,
		"Read migrations from a directory instead of the embedded set")
	return cmd
}

func runMigrate(down bool, dir string) error {
	conf := configuration.Use()

	db, err := sql.Open("pgx", conf.Database.Opts)
	if err != nil {
		return withCode(exitDB, fmt.Errorf("open database: %w", err))
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return withCode(exitDB, err)
	}

	target := dir
	if target == "" {
		goose.SetBaseFS(migrations.FS)
		target = "."
	}

	if down {
		if err := goose.Down(db, target); err != nil {
			return withCode(exitDB, fmt.Errorf("migrate down: %w", err))
		}
		return nil
	}
	if err := goose.Up(db, target); err != nil {
		return withCode(exitDB, fmt.Errorf("migrate up: %w", err))
	}
	return nil
}
