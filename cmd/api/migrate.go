package main

import (
	"context"
	"fmt"

	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"

	"github.com/campusearn/backend/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply application and River migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()
		return migrateAll(cmd.Context(), a)
	},
}

func migrateAll(ctx context.Context, a *app) error {
	applied, err := migrations.Apply(ctx, a.pool, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("application migrations applied", "count", len(applied))

	migrator, err := rivermigrate.New(riverpgxv5.New(a.pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	a.logger.Info("River migrations applied")
	return nil
}
