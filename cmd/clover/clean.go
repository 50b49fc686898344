package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/linkage"
)

func newCleanCmd() *cobra.Command {
	var modeFlag string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run one clean pass and print its result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.stop()

			if modeFlag == "" {
				modeFlag = a.cfg.CleanDefaultMode
			}
			mode, err := linkage.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.start(ctx, a.cfg.DatabaseAutoMigrate); err != nil {
				return err
			}

			res, runErr := a.service.Run(ctx, mode)
			if res != nil {
				out, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			if runErr != nil {
				return fmt.Errorf("clean pass failed: %w", runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modeFlag, "mode", "", "clustering mode: naive or blocked (defaults to clean_default_mode)")
	return cmd
}
