package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/config"
	"github.com/kozaktomas/snaprace/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "snaprace",
	Short: "Race photo pipeline and search service",
	Long: `SnapRace ingests race photos, extracts bib numbers and faces with
Amazon Rekognition and serves search by bib number or by selfie.

The same binary runs the HTTP API, every Lambda function and local
maintenance commands. Configuration comes from environment variables,
optionally loaded from a .env file.`,
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
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or console (overrides LOG_FORMAT)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the configuration and builds the logger, applying the
// persistent log flags on top of the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if level := mustGetString(cmd, "log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := mustGetString(cmd, "log-format"); format != "" {
		cfg.Log.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
		Attrs:  []slog.Attr{slog.String("stage", cfg.Stage)},
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
