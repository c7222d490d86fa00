package main

import (
	"github.com/spf13/cobra"

	"vehicle-data-pipeline/scraper/caredge"
	"vehicle-data-pipeline/storage"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Scrapes CarEdge maintenance costs for the configured brands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := rt.cfg, rt.logger
		logger.Info("=== Maintenance scrape starting: %d brands ===", len(cfg.Brands))

		rows, err := caredge.New(cfg, logger).Scrape(cmd.Context())
		if err != nil {
			logger.Error("Maintenance scrape interrupted: %v", err)
		}
		if len(rows) == 0 {
			logger.Warn("No maintenance rows found, nothing to insert")
			return err
		}

		store, err := rt.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		var sink storage.MaintenanceWriter = store
		if err := sink.InsertMaintenance(cmd.Context(), rows); err != nil {
			return err
		}
		logger.Info("Inserted %d maintenance rows into %s", len(rows), cfg.MaintenanceTable)
		return nil
	},
}
