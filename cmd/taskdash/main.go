// Command taskdash runs the project dashboard API and its maintenance tools.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/task-dashboard/internal/logging"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

var Version = "dev"

var (
	configPath string
	envFile    string

	cfg    *model.AppConfig
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "taskdash",
	Short:         "Project and task dashboard with insights and an AI assistant",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is normal outside development.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		loaded, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the configured database, creating its directory if needed.
func openStore() (*store.SQLiteStore, error) {
	path := cfg.Database.Path
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return s, nil
}
