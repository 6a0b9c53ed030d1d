package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/bib"
)

var bibCmd = &cobra.Command{
	Use:   "bib",
	Short: "Bib number tools",
}

var bibExtractCmd = &cobra.Command{
	Use:   "extract <object-key>",
	Short: "Explain which detected texts become bib numbers",
	Long: `Run text detection on a stored photo and show, for every detection,
the extracted bib or the filter that rejected it. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runBibExtract,
}

func init() {
	rootCmd.AddCommand(bibCmd)
	bibCmd.AddCommand(bibExtractCmd)
	bibExtractCmd.Flags().String("bucket", "", "Photos bucket (defaults to PHOTOS_BUCKET)")
}

func runBibExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	bucket, err := a.bucket(mustGetString(cmd, "bucket"))
	if err != nil {
		return err
	}
	detections, err := a.gateway.DetectText(cmd.Context(), bucket, args[0])
	if err != nil {
		return err
	}

	verdicts := bib.Explain(detections, a.bibConfig())
	rows := make([][]string, 0, len(verdicts))
	for _, v := range verdicts {
		result := "bib " + v.Bib
		if v.Reason != bib.Accepted {
			result = "rejected: " + string(v.Reason)
		}
		rows = append(rows, []string{
			v.Detection.Text,
			v.Detection.Type,
			fmt.Sprintf("%.1f", v.Detection.Confidence),
			formatBox(v.Detection.Box),
			result,
		})
	}
	fmt.Println(renderTable(
		[]string{"Text", "Type", "Confidence", "Box", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))

	bibs := bib.Extract(detections, a.bibConfig())
	fmt.Printf("Bibs: %s\n", strings.Join(bibs, ", "))
	return nil
}

func formatBox(b *bib.BoundingBox) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("top=%.2f left=%.2f w=%.2f h=%.2f", b.Top, b.Left, b.Width, b.Height)
}
