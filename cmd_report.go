package main

import (
	"os"

	"github.com/spf13/cobra"

	"vehicle-data-pipeline/services"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Prints summary tables over the cleaned observations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rt.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		vehicles, err := store.FetchCleaned(cmd.Context())
		if err != nil {
			return err
		}

		insights := services.NewInsightService(rt.logger)
		insights.Print(os.Stdout, insights.Generate(vehicles))
		return nil
	},
}
