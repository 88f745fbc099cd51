package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	examspersistence "github.com/eduatlas/eduatlas/modules/exams/infrastructure/persistence"
	examservices "github.com/eduatlas/eduatlas/modules/exams/services"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/pkg/composables"
	"github.com/eduatlas/eduatlas/pkg/configuration"
)

func newScoreCmd() *cobra.Command {
	var weightsPath string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Recompute composite school scores from loaded exam results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), weightsPath)
		},
	}

	cmd.Flags().StringVar(&weightsPath, "weights", configuration.Use().Scoring.WeightsPath, "Subject weights YAML file")
	return cmd
}

func runScore(ctx context.Context, weightsPath string) error {
	conf := configuration.Use()
	logger := conf.Logger()

	weights, err := examservices.LoadWeights(weightsPath)
	if err != nil {
		return withCode(exitConfig, err)
	}

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	scorer := examservices.NewScoringService(
		persistence.NewSchoolRepository(),
		examspersistence.NewSubjectRepository(),
		examspersistence.NewResultRepository(),
		conf.Scoring.BatchSize,
		logger,
	)

	if _, err := scorer.ScoreAll(ctx, weights); err != nil {
		return withCode(exitDB, err)
	}
	return nil
}
