package main

import (
	"github.com/spf13/cobra"

	"vehicle-data-pipeline/decoder"
	"vehicle-data-pipeline/services"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decodes pending raw rows and appends new cleaned observations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := rt.cfg, rt.logger

		store, err := rt.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		client := decoder.NewClient(decoder.Options{
			URL:         cfg.DecoderURL,
			BatchSize:   cfg.DecodeBatchSize,
			Concurrency: cfg.DecodeConcurrency,
			Timeout:     cfg.DecodeTimeout,
			Retries:     cfg.DecodeRetries,
		}, logger)

		reconciler := services.NewReconciler(services.NewNormalizer(), logger)
		_, err = services.NewDecodeService(store, client, reconciler, logger).Run(cmd.Context())
		return err
	},
}
