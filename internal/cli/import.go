package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"activity-player/internal/config"
	pgloader "activity-player/internal/infra/postgres"
	"activity-player/internal/progressapi"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewImportCmd copies activity payloads into the local catalog, either
// from the portal or from a JSON file.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import <activity-id>...",
		Short: "Import activities into the Postgres catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Log.Level)
			if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
				return err
			}
			if file != "" && len(args) != 1 {
				return fmt.Errorf("--file imports exactly one activity")
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			catalog := pgloader.NewActivityLoader(pool, cfg.API.Language)

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if !json.Valid(data) {
					return fmt.Errorf("%s is not valid JSON", file)
				}
				if err := catalog.SaveActivity(ctx, args[0], data); err != nil {
					return err
				}
				logger.Info("activity imported", "activity_id", args[0], "source", file)
				return nil
			}

			client := progressapi.NewClient(apiConfig(cfg), logger)
			for _, id := range args {
				raw, err := client.RawActivity(ctx, id)
				if err != nil {
					return fmt.Errorf("fetching activity %s: %w", id, err)
				}
				if err := catalog.SaveActivity(ctx, id, raw); err != nil {
					return fmt.Errorf("saving activity %s: %w", id, err)
				}
				logger.Info("activity imported", "activity_id", id, "source", "api")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the activity payload from a JSON file")
	return cmd
}
