package main

import (
	"errors"

	"github.com/spf13/cobra"

	"MicroblogServer/internal/config"
	"MicroblogServer/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadDBConfig()
		if err != nil {
			return err
		}
		if err := postgres.Migrate(cmd.Context(), cfg.DBDSN); err != nil {
			return err
		}
		newLogger(cfg).Info("migrations applied")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of each migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadDBConfig()
		if err != nil {
			return err
		}
		return postgres.MigrationStatus(cmd.Context(), cfg.DBDSN)
	},
}

func loadDBConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cfg.DBDSN == "" {
		return config.Config{}, errors.New("APP_DB_DSN: required for migrate")
	}
	return cfg, nil
}
