// Package cmd holds the command line interface of the trippin service.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"trippin/config"
	"trippin/telemetry"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	envFile  string
	addr     string
	dbStr    string
	logLevel string
	otlpAddr string
)

// Execute runs the root command. Without a sub command the API server is
// started.
func Execute() error {
	root := &cobra.Command{
		Use:          "trippin",
		Short:        "Travel eSIM checkout and trip planner API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if envFile != "" {
				cfg, err = config.Load(envFile)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if dbStr != "" {
				cfg.DatabaseURL = dbStr
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if otlpAddr != "" {
				cfg.OTLPAddr = otlpAddr
			}

			logger, err = telemetry.NewLogger(os.Stdout, cfg.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env)")
	root.PersistentFlags().StringVar(&addr, "addr", "", "server address, overrides PORT (e.g. 0.0.0.0:8080)")
	root.PersistentFlags().StringVar(&dbStr, "db", "", "database connection string (kvdb://path or postgres://...)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().StringVar(&otlpAddr, "otlp-grpc", "", "otlp/gRPC address, by default disabled. Example value: localhost:4317")

	root.AddCommand(serveCmd(), migrateCmd(), pricesCmd())
	return root.Execute()
}
