package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/config"
	"github.com/kozaktomas/snaprace/internal/photo"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage the runner roster",
}

var rosterImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import runners from a CSV file",
	Long: `Import runners of one event from a CSV file with the columns
bib,name,finish_time_sec. A header row is detected and skipped.
Existing runners are replaced but keep their photo keys.

Example:
  snaprace roster import --organizer acme --event marathon-2025 runners.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runRosterImport,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterImportCmd)
	eventFlags(rosterImportCmd)
}

func runRosterImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	runners, err := readRoster(f)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.RosterEnabled() {
		return fmt.Errorf("%s is required to import a roster", config.EnvRunnersTable)
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	organizer := mustGetString(cmd, "organizer")
	eventID := mustGetString(cmd, "event")
	for _, r := range runners {
		if err := a.store.PutRunner(cmd.Context(), organizer, eventID, r); err != nil {
			return fmt.Errorf("import bib %s: %w", r.BibNumber, err)
		}
	}
	fmt.Printf("Imported %d runner(s) into %s/%s\n", len(runners), organizer, eventID)
	return nil
}

// readRoster parses bib,name,finish_time_sec rows. Name and finish time are optional.
func readRoster(r io.Reader) ([]photo.Runner, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var runners []photo.Runner
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}

		raw := strings.TrimSpace(rec[0])
		if line == 1 && strings.EqualFold(raw, "bib") {
			continue
		}
		if _, err := strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("line %d: bib %q is not a number", line, raw)
		}

		runner := photo.Runner{BibNumber: bib.NormalizeBibNumber(raw)}
		if len(rec) > 1 {
			runner.Name = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			sec, err := strconv.Atoi(strings.TrimSpace(rec[2]))
			if err != nil {
				return nil, fmt.Errorf("line %d: finish_time_sec %q is not a number", line, rec[2])
			}
			runner.FinishTimeSec = sec
		}
		runners = append(runners, runner)
	}
	return runners, nil
}
