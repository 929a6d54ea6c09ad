package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dbPath string
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "leadpilot",
	Short: "LeadPilot - lead scoring and A/B experimentation backend",
	Long: `LeadPilot scores leads with configurable weighted models and runs
A/B experiments with proper significance testing.
Single Go binary, embedded SQLite, no external dependencies.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// .env is optional; real env always wins
	godotenv.Load()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("LEADPILOT_DB_PATH", "./leadpilot.db"), "database path")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
