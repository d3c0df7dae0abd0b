package commands

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
)

var cfg config.Config

const storageHelp = `Storage: set DATABASE_URL (or DATABASE_PUBLIC_URL, POSTGRES_URL, POSTGRESQL_URL)
to persist data in Postgres. Without one the server keeps everything in memory
and all users, markets, prices and subscriptions are lost on restart.`

func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "compareeconomize",
		Short: "CompareEconomize price comparison backend",
		Long:  "CompareEconomize price comparison backend.\n\n" + storageHelp,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())
	return root
}

// openStore returns Postgres when a database URL is configured and the in-memory store otherwise.
func openStore(ctx context.Context) (database.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("WARNING: no database URL set; using the in-memory store, all data is lost on restart")
		return database.NewMemoryStore(), nil
	}
	log.Printf("database: %s (from %s)", config.RedactDatabaseURL(cfg.DatabaseURL), cfg.DatabaseURLEnv)
	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBPoolSize)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return database.NewPostgresStore(pool), nil
}

func loadPlans(ctx context.Context, store database.Store) ([]models.Plan, error) {
	plans, err := config.LoadPlans(cfg.PlansFile)
	if err != nil {
		return nil, err
	}
	if err := database.SeedPlans(ctx, store, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and upsert the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New("migrate needs DATABASE_URL")
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			plans, err := loadPlans(cmd.Context(), store)
			if err != nil {
				return err
			}
			log.Printf("schema ready, %d plans upserted", len(plans))
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo markets when the catalog is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New("seed needs DATABASE_URL")
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := database.SeedMarkets(cmd.Context(), store)
			if err != nil {
				return fmt.Errorf("seed markets: %w", err)
			}
			log.Printf("seeded %d markets", n)
			return nil
		},
	}
}
