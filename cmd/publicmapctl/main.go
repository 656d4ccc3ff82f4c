package main

import (
	"fmt"
	"os"

	"github.com/EmpoweredVote/EV-PublicMap/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dsn     string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "publicmapctl",
	Short: "Operator tooling for the public map service",
	Long:  `Run one-off snapshot refreshes and bulk point imports against the public map database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env.local")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres DSN (default: env DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SQL statements")

	rootCmd.AddCommand(refreshCmd, seedCmd)
}

// loadConfig reads the service configuration and applies CLI overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return cfg, err
	}
	if dsn != "" {
		cfg.DatabaseURL = dsn
	}
	if verbose {
		cfg.DBLogLevel = "info"
	}
	return cfg, cfg.Validate()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
