package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
)

// RosterStatus reports what the db-update stage did with the roster.
type RosterStatus string

const (
	RosterUpdated       RosterStatus = "UPDATED"
	RosterSkipped       RosterStatus = "SKIPPED"
	RosterNotConfigured RosterStatus = "NOT_CONFIGURED"
)

// FailedBib is a runner update that failed.
type FailedBib struct {
	Bib   string `json:"bib"`
	Error string `json:"error"`
}

// DBUpdateResult is the final stage output.
type DBUpdateResult struct {
	Context
	UpdatedBibs        []string     `json:"updatedBibs"`
	SkippedBibs        []string     `json:"skippedBibs"`
	FailedBibs         []FailedBib  `json:"failedBibs"`
	RunnersTableStatus RosterStatus `json:"runnersTableStatus"`
}

// DBUpdateOptions configures the db-update stage.
type DBUpdateOptions struct {
	Photos store.PhotoStore
	// Roster is nil when no roster is configured.
	Roster store.Roster
	Logger *slog.Logger
}

// DBUpdate links a photo to the runners whose bibs it shows.
type DBUpdate struct {
	opts DBUpdateOptions
}

func NewDBUpdate(opts DBUpdateOptions) *DBUpdate {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &DBUpdate{opts: opts}
}

// Run moves the photo to COMPLETED. Per-bib failures are collected in the
// result and never abort the loop; the photo is marked completed even when
// the loop ends with an error.
func (s *DBUpdate) Run(ctx context.Context, in Context) (DBUpdateResult, error) {
	res := DBUpdateResult{
		Context:     in,
		UpdatedBibs: []string{},
		SkippedBibs: []string{},
		FailedBibs:  []FailedBib{},
	}
	if err := in.Validate(); err != nil {
		return res, err
	}
	log := in.logger(s.opts.Logger, photo.StageDBUpdate)

	rec, err := s.opts.Photos.GetPhoto(ctx, in.Organizer, in.EventID, in.ObjectKey)
	if err != nil {
		return res, fmt.Errorf("get photo record: %w", err)
	}
	if rec != nil && photo.StageDBUpdate.Done(rec.Status) {
		log.Info("photo already completed, skipping")
		res.RunnersTableStatus = RosterSkipped
		return res, nil
	}

	if s.opts.Roster == nil {
		res.RunnersTableStatus = RosterNotConfigured
		return res, s.complete(ctx, in, log)
	}

	exists, err := s.opts.Roster.TableExists(ctx)
	if err != nil {
		log.Warn("roster table unavailable, skipping runner updates", "error", err)
		res.RunnersTableStatus = RosterSkipped
		return res, s.complete(ctx, in, log)
	}
	if !exists {
		log.Warn("roster table does not exist, skipping runner updates")
		res.RunnersTableStatus = RosterSkipped
		return res, s.complete(ctx, in, log)
	}

	bibs := in.DetectedBibs
	if bibs == nil && rec != nil {
		bibs = rec.DetectedBibs
	}
	if len(bibs) == 0 {
		res.RunnersTableStatus = RosterSkipped
		return res, s.complete(ctx, in, log)
	}

	var loopErr error
	for _, b := range bibs {
		if loopErr = ctx.Err(); loopErr != nil {
			break
		}
		err := s.opts.Roster.AddPhotoKeys(ctx, in.Organizer, in.EventID, b, in.ObjectKey)
		switch {
		case errors.Is(err, store.ErrRunnerNotFound):
			res.SkippedBibs = append(res.SkippedBibs, b)
		case err != nil:
			log.Warn("failed to update runner photo keys", "bib", b, "error", err)
			res.FailedBibs = append(res.FailedBibs, FailedBib{Bib: b, Error: err.Error()})
		default:
			res.UpdatedBibs = append(res.UpdatedBibs, b)
		}
	}

	if loopErr != nil {
		log.Error("runner updates interrupted", "error", loopErr)
		_ = s.complete(ctx, in, log)
		return res, fmt.Errorf("update runners: %w", loopErr)
	}

	res.RunnersTableStatus = RosterUpdated
	log.Info("runner updates completed",
		"updated", len(res.UpdatedBibs),
		"skipped", len(res.SkippedBibs),
		"failed", len(res.FailedBibs))
	return res, s.complete(ctx, in, log)
}

func (s *DBUpdate) complete(ctx context.Context, in Context, log *slog.Logger) error {
	patch := photo.NewPatch().WithStatus(photo.StageDBUpdate.Exit())
	if err := s.opts.Photos.UpdatePhoto(context.WithoutCancel(ctx), in.Organizer, in.EventID, in.ObjectKey, patch); err != nil {
		log.Error("failed to mark photo completed", "error", err)
		return fmt.Errorf("mark photo completed: %w", err)
	}
	return nil
}
