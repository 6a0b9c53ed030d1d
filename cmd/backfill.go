package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/constants"
	"github.com/kozaktomas/snaprace/internal/photo"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Queue every raw photo of an event",
	Long: `List {organizer}/{event}/photos/raw/ in the photos bucket and feed each
key through the starter, as if the upload notification had arrived again.

Photos that are already past PENDING are skipped by the starter, so a
backfill can be repeated safely.

Example:
  snaprace backfill --organizer acme --event marathon-2025
  snaprace backfill --organizer acme --event marathon-2025 --workflow local --workers 2`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	eventFlags(backfillCmd)
	backfillCmd.Flags().String("bucket", "", "Photos bucket (defaults to PHOTOS_BUCKET)")
	backfillCmd.Flags().String("workflow", "", "Workflow mode: sfn or local (defaults to WORKFLOW_MODE)")
	backfillCmd.Flags().Int("workers", constants.WorkerPoolSize, "Number of concurrent workers")
	backfillCmd.Flags().Bool("dry-run", false, "List the keys without queuing them")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	organizer := mustGetString(cmd, "organizer")
	eventID := mustGetString(cmd, "event")
	workers := max(mustGetInt(cmd, "workers"), 1)
	mode := mustGetString(cmd, "workflow")
	if mode == "" {
		mode = cfg.Workflow.Mode
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

	keys, err := a.objects.ListKeys(ctx, bucket, photo.RawPrefix(organizer, eventID))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No photos found.")
		return nil
	}
	fmt.Printf("Found %d photo(s) in s3://%s/%s\n", len(keys), bucket, photo.RawPrefix(organizer, eventID))

	if mustGetBool(cmd, "dry-run") {
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	}

	starter, err := a.starter(mode)
	if err != nil {
		return err
	}

	bar := newProgressBar(os.Stderr, len(keys), "Queuing")

	var (
		queued, skipped int
		failures        []string
		mu              sync.Mutex
		wg              sync.WaitGroup
		sem             = make(chan struct{}, workers)
	)
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(key string) {
			defer wg.Done()
			defer func() { <-sem }()

			ok, err := starter.HandleKey(ctx, bucket, key)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, fmt.Sprintf("%s: %v", key, err))
			case ok:
				queued++
			default:
				skipped++
			}
			_ = bar.Add(1)
		}(key)
	}
	wg.Wait()
	_ = bar.Finish()

	for _, f := range failures {
		fmt.Printf("Failed: %s\n", f)
	}
	fmt.Printf("\nQueued %d, skipped %d, failed %d\n", queued, skipped, len(failures))
	if len(failures) > 0 {
		return fmt.Errorf("%d photo(s) could not be queued", len(failures))
	}
	return ctx.Err()
}

// newProgressBar renders to w only when it is a terminal.
func newProgressBar(w *os.File, total int, description string) *progressbar.ProgressBar {
	var out io.Writer = io.Discard
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		out = w
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
