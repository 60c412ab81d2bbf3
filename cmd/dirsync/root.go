package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/dirsync/pkg/configuration"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dirsync",
		Short:         "Identity data-source sync engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newTreeCmd())
	return cmd
}

func execute() {
	defer configuration.Use().Unload()
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
