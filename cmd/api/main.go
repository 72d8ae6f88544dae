package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/campusearn/backend/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "campusearn",
	Short:         "CampusEarn marketplace backend",
	Long:          `CampusEarn connects task posters with students who complete paid campus tasks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("CAMPUSEARN_CONFIG", "campusearn.toml"), "Path to the TOML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the JSON logger as the default.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
