package main

import (
	"context"
	"fmt"

	"github.com/propertyhub/lease-planner/internal/store"
	"github.com/propertyhub/lease-planner/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if cfg.Service.MigrationFolder != "" {
			zap.S().Infow("running migrations", "folder", cfg.Service.MigrationFolder)
			if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			zap.S().Info("Db migrated")
			return nil
		}

		if err := s.InitialMigration(cmd.Context()); err != nil {
			return fmt.Errorf("running initial migration: %w", err)
		}
		zap.S().Info("Db migrated")
		return nil
	},
}

func migrateOnStart(ctx context.Context, s store.Store, migrationFolder string) error {
	// goose owns the schema when a migration folder is configured
	if migrationFolder != "" {
		return nil
	}
	return s.InitialMigration(ctx)
}
