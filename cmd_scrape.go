package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/scraper/carscom"
	"vehicle-data-pipeline/storage"
)

var scrapeOutput string

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--output db|csv|both]",
	Short: "Scrapes cars.com listings for the configured ZIP codes into the raw table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch scrapeOutput {
		case "db", "csv", "both":
		default:
			return fmt.Errorf("unknown --output %q, want db, csv or both", scrapeOutput)
		}

		cfg, logger := rt.cfg, rt.logger
		logger.Info("=== Cars.com scrape starting ===")
		logger.Info("Config: zips %v | pages/zip: %d | concurrency: %d | rate: %dms",
			cfg.ZipCodes, cfg.PagesPerZip, cfg.MaxConcurrency, cfg.RateLimitMs)

		fetcher, err := carscom.NewBrowserFetcher(cfg.ChromeBin, cfg.ScrapeTimeout)
		if err != nil {
			return err
		}
		defer fetcher.Close()

		records, err := carscom.New(cfg, fetcher, logger).Scrape(cmd.Context())
		if err != nil {
			logger.Error("Scrape interrupted: %v", err)
		}
		if len(records) == 0 {
			return errors.New("no listings were scraped")
		}
		logger.Info("Scraped %d raw listings", len(records))

		if scrapeOutput != "db" {
			csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
			if err != nil {
				return err
			}
			saveRaw(csvWriter, records, cfg.CSVOutputPath)
		}

		if scrapeOutput != "csv" {
			store, err := rt.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.InsertRaw(cmd.Context(), records); err != nil {
				return err
			}
			logger.Info("Raw listings saved to table %s", cfg.RawTable)
		}

		logger.Info("=== Scrape complete ===")
		return nil
	},
}

// saveRaw writes records to w and closes it. Failures are logged, so a broken
// CSV file does not block the database write.
func saveRaw(w storage.RawListingWriter, records []*models.RawVehicleRecord, dest string) {
	if err := w.WriteRaw(records); err != nil {
		rt.logger.Error("CSV write failed: %v", err)
	} else {
		rt.logger.Info("Raw listings saved to %s", dest)
	}
	if err := w.Close(); err != nil {
		rt.logger.Warn("CSV close: %v", err)
	}
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeOutput, "output", "db", "Where raw listings go: db, csv or both.")
}
