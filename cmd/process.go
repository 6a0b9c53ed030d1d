package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/config"
	"github.com/kozaktomas/snaprace/internal/pipeline"
	"github.com/kozaktomas/snaprace/internal/workflow"
)

var processCmd = &cobra.Command{
	Use:   "process <object-key>",
	Short: "Run the full pipeline for one photo in process",
	Long: `Process a single uploaded photo without Step Functions.

The photo record is created exactly as the starter would create it, then
detect-text, index-faces and db-update run in this process.

Example:
  snaprace process acme/marathon-2025/photos/raw/IMG_0001.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("bucket", "", "Photos bucket (defaults to PHOTOS_BUCKET)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.BackendDynamoDB {
		if err := cfg.Require(config.EnvPhotosTable, config.EnvBibIndexTable); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	bucket, err := a.bucket(mustGetString(cmd, "bucket"))
	if err != nil {
		return err
	}
	var result pipeline.DBUpdateResult
	p := a.pipeline()
	local := workflow.NewLocal(func(ctx context.Context, in workflow.Input) error {
		var runErr error
		result, runErr = p.Run(ctx, in)
		return runErr
	}, logger)

	queued, err := pipeline.NewStarter(a.store, local, logger).HandleKey(ctx, bucket, args[0])
	if err != nil {
		return err
	}
	if !queued {
		fmt.Printf("Photo %s was already processed or is in progress\n", args[0])
		return nil
	}

	fmt.Printf("Processed %s\n", result.ObjectKey)
	fmt.Printf("  Bibs:         %v\n", result.DetectedBibs)
	fmt.Printf("  Faces:        %d\n", len(result.FaceIDs))
	fmt.Printf("  Group photo:  %t\n", result.IsGroupPhoto)
	fmt.Printf("  Roster:       %s (updated %v, skipped %v, failed %d)\n",
		result.RunnersTableStatus, result.UpdatedBibs, result.SkippedBibs, len(result.FailedBibs))
	return nil
}
