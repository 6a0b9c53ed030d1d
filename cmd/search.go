package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search event photos",
}

var searchBibCmd = &cobra.Command{
	Use:   "bib <bib-number>",
	Short: "Find photos of a bib number",
	Long: `Find photos of a runner by bib number, through the roster when one is
configured and the bib index otherwise.

Example:
  snaprace search bib --organizer acme --event marathon-2025 0042`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchBib,
}

var searchSelfieCmd = &cobra.Command{
	Use:   "selfie <image-file>",
	Short: "Find photos matching the face in a selfie",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchSelfie,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchBibCmd)
	searchCmd.AddCommand(searchSelfieCmd)
	eventFlags(searchBibCmd)
	eventFlags(searchSelfieCmd)
}

func runSearchBib(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.bibSearcher().Search(cmd.Context(), search.BibRequest{
		Organizer: mustGetString(cmd, "organizer"),
		EventID:   mustGetString(cmd, "event"),
		BibNumber: args[0],
	})
	if err != nil {
		return err
	}

	if resp.PhotoCount == 0 {
		fmt.Println(resp.Message)
		return nil
	}
	rows := make([][]string, 0, len(resp.PhotoKeys))
	for i, key := range resp.PhotoKeys {
		rows = append(rows, []string{strconv.Itoa(i + 1), key})
	}
	fmt.Println(renderTable([]string{"#", "Photo"}, rows, []columnAlignment{alignRight, alignLeft}))
	fmt.Printf("%d photo(s) for bib %s (source: %s)\n", resp.PhotoCount, resp.BibNumber, resp.Source)
	return nil
}

func runSearchSelfie(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read selfie: %w", err)
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.selfieSearcher().Search(cmd.Context(), search.SelfieRequest{
		Organizer: mustGetString(cmd, "organizer"),
		EventID:   mustGetString(cmd, "event"),
		Image:     image,
	})
	if err != nil {
		return err
	}

	if len(resp.Matches) > 0 {
		rows := make([][]string, 0, len(resp.Matches))
		for _, m := range resp.Matches {
			rows = append(rows, []string{fmt.Sprintf("%.2f", m.Similarity), m.PhotoKey, m.FaceID})
		}
		fmt.Println(renderTable([]string{"Similarity", "Photo", "Face"}, rows, []columnAlignment{alignRight}))
	}
	fmt.Println(resp.Message)
	return nil
}
