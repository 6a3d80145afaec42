package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/zapreel/zapreel/shared/backoff"
	"github.com/zapreel/zapreel/shared/config"
	"github.com/zapreel/zapreel/shared/db"
	"github.com/zapreel/zapreel/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zapreel",
		Short: "Zapreel - chat-video pipeline operations CLI",
		Long: `Zapreel generates narrated videos of WhatsApp-style chats.
This CLI manages the shared database and enqueues work for the pipeline.`,
	}

	rootCmd.AddCommand(
		initDBCmd(),
		seedMappingsCmd(),
		statusCmd(),
		enqueueCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func databaseURL() string {
	return db.URLFromParts(
		config.GetEnv("POSTGRES_HOST", "localhost"),
		config.GetEnvInt("POSTGRES_PORT", 5432),
		config.GetEnv("POSTGRES_USER", "postgres"),
		config.GetEnv("POSTGRES_PASSWORD", "postgres"),
		config.GetEnv("DATABASE_NAME", "zapreel"),
	)
}

func connectStore(ctx context.Context) (*store.Store, *pgxpool.Pool, error) {
	// Patient retry so init-db works while a fresh Postgres is still starting.
	var pool *pgxpool.Pool
	err := backoff.Retry(ctx, backoff.Standard, func(ctx context.Context, attempt int) error {
		var err error
		pool, err = db.ConnectSimple(ctx, databaseURL())
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return store.New(pool), pool, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("zapreel dev")
		},
	}
}
