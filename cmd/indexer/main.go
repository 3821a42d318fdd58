package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zatekoja/storeassist/internal/adapters/database"
	"github.com/zatekoja/storeassist/internal/application/services"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/woocommerce"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
	"github.com/zatekoja/storeassist/pkg/config"
)

var interval time.Duration

var rootCmd = &cobra.Command{
	Use:           "indexer",
	Short:         "Rebuild the product and page index from the store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&interval, "interval", 0, "repeat the run on this interval (e.g. 6h, 30m) until interrupted")

	rootCmd.AddCommand(
		indexCommand("products", "Reindex published products", func(ctx context.Context, svc *services.IndexingService) (string, error) {
			n, err := svc.IndexAllProducts(ctx)
			return fmt.Sprintf("%d products", n), err
		}),
		indexCommand("pages", "Reindex published pages and posts", func(ctx context.Context, svc *services.IndexingService) (string, error) {
			n, err := svc.IndexAllPages(ctx)
			return fmt.Sprintf("%d pages", n), err
		}),
		indexCommand("all", "Reindex products, pages and posts", func(ctx context.Context, svc *services.IndexingService) (string, error) {
			result, err := svc.ReindexAll(ctx)
			if result == nil {
				return "nothing", err
			}
			return fmt.Sprintf("%d products, %d pages", result.Products, result.Pages), err
		}),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("indexer failed")
		os.Exit(1)
	}
}

type indexRun func(ctx context.Context, svc *services.IndexingService) (string, error)

func indexCommand(use, short string, run indexRun) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(run)
		},
	}
}

func execute(run indexRun) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.App.Name+"-indexer", cfg.App.Env, cfg.App.LogLevel)

	if interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pgClient.Close()

	if err := database.EnsureSchema(ctx, pgClient.DB()); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	store, err := woocommerce.NewClient(&cfg.WooCommerce)
	if err != nil {
		return err
	}

	svc := services.NewIndexingService(store, database.NewContentIndexAdapter(pgClient, nil), nil, cfg.Indexing.PageSize, nil)

	for {
		start := time.Now()
		summary, err := run(ctx, svc)
		if err != nil {
			log.Error().Err(err).Str("indexed", summary).Msg("reindex failed")
		} else {
			log.Info().Str("indexed", summary).Dur("took", time.Since(start)).Msg("reindex complete")
		}

		if interval <= 0 {
			return err
		}

		log.Info().Dur("next_run_in", interval).Msg("waiting for next run")
		select {
		case <-ctx.Done():
			log.Info().Msg("indexer shutting down")
			return nil
		case <-time.After(interval):
		}
	}
}
