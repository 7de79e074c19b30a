package cli

import (
	"errors"
	"fmt"
	"matrixTasks/internal/config"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/repository/task/postgres"

	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("database.url не задан")

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Миграции схемы postgres",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Применить все миграции",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := databaseURL()
		if err != nil {
			return err
		}
		if err := postgres.Migrate(url); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Миграции применены")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Откатить все миграции",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := databaseURL()
		if err != nil {
			return err
		}
		if err := postgres.Down(url); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Миграции откачены")
		return nil
	},
}

func databaseURL() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return "", fmt.Errorf("инициализация логгера: %w", err)
	}
	if cfg.Database.URL == "" {
		return "", errNoDatabase
	}
	return cfg.Database.URL, nil
}
