package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fjod/go_shopbot/internal/config"
	"github.com/fjod/go_shopbot/internal/logger"
	"github.com/fjod/go_shopbot/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shopbot",
	Short: "Conversational storefront for a single-admin shop",
	Long: `shopbot serves a chat storefront over an HTTP webhook.

Users register with a name and phone number, browse the catalog, fill a cart
and confirm orders. Administrators manage the catalog, broadcast messages and
read sales statistics from the same conversation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(cfg, log)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			return err
		}
		log.Info("database migrations completed", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "shopbot.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func openRepository(cfg *config.Config, log *zap.Logger) (*repository.Repository, error) {
	db := cfg.Database
	cred := &repository.Credentials{
		Driver:            db.Driver,
		Path:              db.Path,
		Host:              db.Host,
		User:              db.User,
		Password:          db.Password,
		DBName:            db.Name,
		MigrationsDirPath: db.MigrationsPath,
	}
	if db.Driver == repository.DriverPostgres {
		port, err := strconv.Atoi(db.Port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cred.Port = port
	}
	return repository.NewRepository(cred, log.Named("repository"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
