package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.stop()

			a.addPostgres(true)
			if err := a.startup.Start(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Migrations applied")
			return nil
		},
	}
}
