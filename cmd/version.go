package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/config"
)

// Build metadata, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata and the resolved runtime settings",
	Long: `Print the build of this binary and the settings it would run with:
region, store backend, workflow mode and the table names resolved from the
environment. Handy to check a Lambda or container configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Println(renderTable([]string{"Setting", "Value"}, versionRows(cfg, goVersion()), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

func versionRows(cfg *config.Config, goVer string) [][]string {
	orNone := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	store := cfg.Store.Backend
	if store == config.BackendSQLite {
		store += " " + cfg.Store.SQLitePath
	}
	roster := orNone(cfg.Tables.Runners)
	if !cfg.RosterEnabled() {
		roster = "(disabled)"
	}
	return [][]string{
		{"snaprace", Version},
		{"commit", CommitSHA},
		{"built", BuildDate},
		{"go", goVer},
		{"stage", cfg.Stage},
		{"region", cfg.AWS.Region},
		{"store", store},
		{"workflow", cfg.Workflow.Mode},
		{config.EnvPhotosTable, orNone(cfg.Tables.Photos)},
		{config.EnvBibIndexTable, orNone(cfg.Tables.BibIndex)},
		{config.EnvRunnersTable, roster},
		{config.EnvCollectionPrefix, orNone(cfg.Recognition.CollectionPrefix)},
	}
}
