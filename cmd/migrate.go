package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply project store migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		e := &env{}
		defer e.Close()
		if err := initProjectStore(ctx, e, cfg); err != nil {
			return err
		}
		if err := e.Projects.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("project store migrated", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
