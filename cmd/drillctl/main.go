package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"grammardrill/internal/config"
	"grammardrill/internal/database"
	"grammardrill/internal/repository"
	"grammardrill/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "drillctl",
	Short: "Manage Grammar Drill files and the drill library",
	Long: `drillctl validates and formats tab-separated drill files, and imports,
exports and backs up drills in the database configured for the server
(DB_TYPE, DB_PATH, DATABASE_URL, MIGRATIONS_PATH).`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// library is the database-backed part of the CLI
type library struct {
	db     *database.DB
	drills *service.DrillService
	backup *service.BackupService
}

func openLibrary() (*library, error) {
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	drillRepo := repository.NewDrillRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	return &library{
		db:     db,
		drills: service.NewDrillService(drillRepo, sessionRepo, nil, true),
		backup: service.NewBackupService(drillRepo),
	}, nil
}

func (l *library) Close() error {
	return l.db.Close()
}
