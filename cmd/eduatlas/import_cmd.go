package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/registryapi"
	"github.com/eduatlas/eduatlas/modules/registry/services"
	"github.com/eduatlas/eduatlas/pkg/composables"
	"github.com/eduatlas/eduatlas/pkg/configuration"
)

type importOptions struct {
	startPage   int
	pageLimit   int
	segmentSize int
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fetch the school registry and decompose it into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts)
		},
	}

	conf := configuration.Use()
	cmd.Flags().IntVar(&opts.startPage, "start-page", conf.RegistryAPI.StartPage, "First registry page to fetch")
	cmd.Flags().IntVar(&opts.pageLimit, "page-limit", conf.RegistryAPI.PageLimit, "Last page to fetch, 0 for no limit")
	cmd.Flags().IntVar(&opts.segmentSize, "segment-size", conf.RegistryAPI.SegmentSize, "Records fetched per segment before persisting")
	return cmd
}

// runImport alternates fetch and persist segments so a mid-run source failure
// loses nothing: records fetched before the failure are still imported and
// the failing page is reported for resumption.
func runImport(ctx context.Context, opts importOptions) error {
	conf := configuration.Use()
	logger := conf.Logger()

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	client := registryapi.NewClient(conf.RegistryAPI.BaseURL, registryapi.RetryPolicy{
		InitialDelay: conf.Retry.InitialDelay,
		MaxDelay:     conf.Retry.MaxDelay,
		MaxRetries:   conf.Retry.MaxRetries,
	}, logger)
	fetcher := registryapi.NewFetcher(client, opts.pageLimit, logger)
	importer := services.NewImportService(
		persistence.NewSchoolRepository(),
		persistence.NewLocationRepository(),
		persistence.NewTaxonomyRepository(),
		logger,
	)

	var totals services.BatchStats
	page := opts.startPage
	for {
		records, next, fetchErr := fetcher.FetchSegment(ctx, page, opts.segmentSize)

		stats := importer.ProcessBatch(ctx, records)
		totals.Processed += stats.Processed
		totals.Skipped += stats.Skipped
		totals.Failed += stats.Failed

		if fetchErr != nil {
			if next != nil {
				logger.WithField("resume_page", *next).Error("registry fetch failed, restart from the reported page")
			}
			return withCode(exitSource, fetchErr)
		}
		if next == nil {
			break
		}
		page = *next
	}

	logger.WithFields(logrus.Fields{
		"processed": totals.Processed,
		"skipped":   totals.Skipped,
		"failed":    totals.Failed,
	}).Info("registry import finished")
	return nil
}
