package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/eduatlas/eduatlas/modules/exams/domain/entities/exam"
	examspersistence "github.com/eduatlas/eduatlas/modules/exams/infrastructure/persistence"
	examservices "github.com/eduatlas/eduatlas/modules/exams/services"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
	"github.com/eduatlas/eduatlas/pkg/composables"
	"github.com/eduatlas/eduatlas/pkg/configuration"
)

type resultsOptions struct {
	dir  string
	kind string
}

func newResultsCmd() *cobra.Command {
	var opts resultsOptions

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Load published exam-result workbooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := exam.Kind(opts.kind)
			if !kind.Valid() {
				return withCode(exitUsage, fmt.Errorf("unknown exam kind %q, want %q or %q", opts.kind, exam.KindPrimary, exam.KindMatura))
			}
			return runResults(cmd.Context(), opts.dir, kind)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory with .xlsx result files (required)")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Exam kind: primary or matura (required)")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func runResults(ctx context.Context, dir string, kind exam.Kind) error {
	conf := configuration.Use()
	logger := conf.Logger()

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	loader := examservices.NewResultsLoader(
		persistence.NewSchoolRepository(),
		examspersistence.NewSubjectRepository(),
		examspersistence.NewResultRepository(),
		logger,
	)

	if _, err := loader.LoadDir(ctx, dir, kind); err != nil {
		return withCode(exitSource, err)
	}
	return nil
}
