package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"trippin/database/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("unable to parse db connection string: %w", err)
			}
			if u.Scheme != "postgres" && u.Scheme != "postgresql" {
				logger.Info("nothing to migrate", "backend", u.Scheme)
				return nil
			}

			db, err := postgres.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Backend().Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema is up to date")
			return nil
		},
	}
}
