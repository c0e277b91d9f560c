package main

import (
	"database/sql"
	"delivery-fee-service/internal/adapters/repositories"
	"delivery-fee-service/internal/config"
	"delivery-fee-service/internal/platform/db"
	"fmt"

	"github.com/spf13/cobra"
)

func openDB(cmd *cobra.Command) (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.Open(cmd.Context(), cfg.DatabaseURL, db.DefaultOptions())
}

func migrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations (or roll back with --down)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			conn, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			if down > 0 {
				if err := repositories.MigrateDown(conn, down); err != nil {
					return err
				}
				logger.Info("rolled back migrations")
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", down)
				return nil
			}

			if err := repositories.Migrate(conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back")
	return cmd
}

func seedCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "seed [tenants.json]",
		Short: "Upsert tenant delivery settings from a JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newLogger()

			seedPath := config.Get("SEED_PATH", "data/seeds/tenants.json")
			if len(args) == 1 {
				seedPath = args[0]
			}

			conn, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			if !skipMigrate {
				if err := repositories.Migrate(conn); err != nil {
					return err
				}
			}

			n, err := repositories.SeedFromJSON(cmd.Context(), conn, seedPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tenant(s) from %s\n", n, seedPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations before seeding")
	return cmd
}
