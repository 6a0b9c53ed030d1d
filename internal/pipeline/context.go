// Package pipeline implements the photo processing stages: the starter that
// queues new uploads and the three orchestrated stages that detect bibs,
// index faces and link photos to runners.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
	"github.com/kozaktomas/snaprace/internal/workflow"
)

// Context is the state threaded from one stage to the next.
type Context struct {
	Bucket          string   `json:"bucket"`
	ObjectKey       string   `json:"objectKey"`
	Organizer       string   `json:"organizer"`
	EventID         string   `json:"eventId"`
	UploadTimestamp int64    `json:"uploadTimestamp,omitempty"`
	ImageWidth      int      `json:"imageWidth,omitempty"`
	ImageHeight     int      `json:"imageHeight,omitempty"`
	DetectedBibs    []string `json:"detectedBibs,omitempty"`
	FaceIDs         []string `json:"faceIds,omitempty"`
	IsGroupPhoto    bool     `json:"isGroupPhoto,omitempty"`
}

// ContextFromInput converts an execution payload into the first stage context.
func ContextFromInput(in workflow.Input) Context {
	return Context{
		Bucket:          in.Bucket,
		ObjectKey:       in.ObjectKey,
		Organizer:       in.Organizer,
		EventID:         in.EventID,
		UploadTimestamp: in.UploadTimestamp,
	}
}

// Validate checks that the identifying fields are present.
func (c Context) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"bucket":    c.Bucket,
		"objectKey": c.ObjectKey,
		"organizer": c.Organizer,
		"eventId":   c.EventID,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("invalid stage input: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Context) logger(base *slog.Logger, stage photo.Stage) *slog.Logger {
	return base.With(
		"stage", string(stage),
		"objectKey", c.ObjectKey,
		"organizer", c.Organizer,
		"eventId", c.EventID,
	)
}

// rollback restores the entry status of a failed stage. It runs even when
// ctx is already canceled.
func rollback(ctx context.Context, photos store.PhotoStore, c Context, stage photo.Stage, log *slog.Logger) {
	patch := photo.NewPatch().WithStatus(stage.Rollback())
	if err := photos.UpdatePhoto(context.WithoutCancel(ctx), c.Organizer, c.EventID, c.ObjectKey, patch); err != nil {
		log.Error("failed to roll back photo status", "status", stage.Rollback(), "error", err)
		return
	}
	log.Info("photo status rolled back", "status", stage.Rollback())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
