package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/catalog/postgres"
	"github.com/Abhigyan126/Make-FaceDB/internal/config"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and manage the identity catalog",
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

// openStore selects the catalog store: PostgreSQL when DATABASE_URL is set,
// otherwise a JSON file next to the working directory. The returned cleanup
// function must be called when the store is no longer needed.
func openStore(ctx context.Context, cfg *config.Config) (catalog.Store, func(), error) {
	if cfg.Catalog.DatabaseURL != "" {
		fmt.Println("Connecting to PostgreSQL...")
		pool, err := postgres.NewPool(postgres.PoolConfig{URL: cfg.Catalog.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return postgres.NewIdentityStore(pool), func() { _ = pool.Close() }, nil
	}
	return catalog.NewFileStore(cfg.Catalog.Path), func() {}, nil
}

// loadCatalog loads persisted identities into a fresh catalog. A load failure
// is not fatal: the run starts with an empty catalog and a warning.
func loadCatalog(ctx context.Context, store catalog.Store, matcher catalog.Matcher) *catalog.Catalog {
	records, err := store.Load(ctx)
	if err != nil {
		fmt.Printf("Warning: could not load catalog: %v\n", err)
		fmt.Println("Starting with an empty catalog")
		return catalog.New(matcher)
	}
	return catalog.FromRecords(matcher, records)
}

// matcherFromConfig builds the matcher, letting command flags override the
// configured metric and threshold.
func matcherFromConfig(cmd *cobra.Command, cfg *config.Config) catalog.Matcher {
	matcher := catalog.Matcher{
		Metric:    cfg.Match.Metric,
		Threshold: cfg.Match.Threshold,
	}
	if cmd.Flags().Changed("metric") {
		matcher.Metric = mustGetString(cmd, "metric")
	}
	if cmd.Flags().Changed("threshold") {
		matcher.Threshold = mustGetFloat64(cmd, "threshold")
	}
	return matcher
}
