package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vehicle-data-pipeline/config"
	"vehicle-data-pipeline/storage"
	"vehicle-data-pipeline/utils"
)

// app carries what every command needs once flags and env are resolved.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

var rt = &app{}

var rootCmd = &cobra.Command{
	Use:           "vehicle-pipeline",
	Short:         "Scrapes used-car listings, decodes their VINs and stores normalized records.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rt.cfg = config.Load()
		rt.logger = utils.NewLoggerWithLevel(utils.ParseLevel(rt.cfg.LogLevel))
		return rt.cfg.Validate()
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd, decodeCmd, maintenanceCmd, reportCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// openStore connects to the configured database and makes sure the tables
// exist.
func (a *app) openStore(ctx context.Context) (*storage.SQLStore, error) {
	store, err := storage.Open(a.cfg.DBDriver, a.cfg.DSN(), storage.Tables{
		Raw:         a.cfg.RawTable,
		Cleaned:     a.cfg.CleanedTable,
		Maintenance: a.cfg.MaintenanceTable,
	}, a.logger)
	if err != nil {
		if a.cfg.DBDriver == config.DriverPostgres {
			a.logger.Error("Make sure Docker is running: docker compose up -d")
		}
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
