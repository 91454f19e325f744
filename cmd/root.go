package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "gatewatch",
	Short: "Face recognition door monitor with automatic attendance",
	Long: `Gatewatch watches a camera, recognizes enrolled people and toggles their
attendance when they walk in. Faces that match nobody are reported once per
visit to the sighting register.

The engine ("monitor") talks to an attendance service over HTTP; "serve" runs
that service on top of PostgreSQL.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig loads the configuration and applies persistent flag overrides
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()
	if level := mustGetString(cmd, "log-level"); level != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err == nil {
			cfg.Log.Level = l
		}
	}
	return cfg
}

// newBackendClient connects to the attendance service configured by BACKEND_URL
func newBackendClient(cfg *config.Config) (*backend.Client, error) {
	if cfg.Backend.URL == "" {
		return nil, errors.New("BACKEND_URL environment variable is required")
	}
	timeout := cfg.Backend.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, timeout)
}
