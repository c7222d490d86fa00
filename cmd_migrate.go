package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates the raw, cleaned and maintenance tables if missing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rt.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		rt.logger.Info("Tables ready: %s, %s, %s", rt.cfg.RawTable, rt.cfg.CleanedTable, rt.cfg.MaintenanceTable)
		return nil
	},
}
