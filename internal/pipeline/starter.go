package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
	"github.com/kozaktomas/snaprace/internal/workflow"
)

// ObjectRef identifies one uploaded object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// RecordError reports one object the starter could not queue.
type RecordError struct {
	ObjectKey string `json:"objectKey"`
	Error     string `json:"error"`
}

// StartResult summarizes a batch of upload notifications.
type StartResult struct {
	Processed int           `json:"processed"`
	Failed    int           `json:"failed,omitempty"`
	Errors    []RecordError `json:"errors,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// Starter creates the initial photo record and starts its execution.
type Starter struct {
	photos   store.PhotoStore
	workflow workflow.Starter
	logger   *slog.Logger
	now      func() time.Time
}

func NewStarter(photos store.PhotoStore, wf workflow.Starter, logger *slog.Logger) *Starter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Starter{photos: photos, workflow: wf, logger: logger, now: time.Now}
}

// HandleKey queues one raw object key. It reports whether an execution was
// started; a photo already in flight or a duplicate execution is not an error.
func (s *Starter) HandleKey(ctx context.Context, bucket, rawKey string) (bool, error) {
	key, err := photo.ParseObjectKey(rawKey)
	if err != nil {
		return false, err
	}
	log := s.logger.With("objectKey", key.Key, "organizer", key.Organizer, "eventId", key.EventID)

	existing, err := s.photos.GetPhoto(ctx, key.Organizer, key.EventID, key.Key)
	if err != nil {
		return false, fmt.Errorf("get photo record: %w", err)
	}
	if existing != nil && existing.Status != photo.StatusPending {
		log.Info("photo already processing or done, skipping", "status", existing.Status)
		return false, nil
	}

	now := s.now()
	created, err := s.photos.CreatePhoto(ctx, photo.NewPendingRecord(key.Organizer, key.EventID, key.Key, now))
	if err != nil {
		return false, fmt.Errorf("create photo record: %w", err)
	}
	if !created {
		log.Debug("photo record already exists")
	}

	in := workflow.Input{
		Bucket:          bucket,
		ObjectKey:       key.Key,
		Organizer:       key.Organizer,
		EventID:         key.EventID,
		UploadTimestamp: now.UnixMilli(),
	}
	name := workflow.ExecutionName(in, now)
	id, err := s.workflow.Start(ctx, name, in)
	if errors.Is(err, workflow.ErrExecutionExists) {
		log.Info("execution already started", "execution", name)
		return false, nil
	}
	if err != nil {
		log.Error("failed to start execution", "execution", name, "error", err)
		return false, err
	}

	log.Info("photo queued for processing", "execution", name, "executionId", id)
	return true, nil
}

// HandleRecords queues every object independently and collects failures.
func (s *Starter) HandleRecords(ctx context.Context, refs []ObjectRef) StartResult {
	var res StartResult
	for _, ref := range refs {
		if _, err := s.HandleKey(ctx, ref.Bucket, ref.Key); err != nil {
			s.logger.Error("failed to process upload record", "objectKey", ref.Key, "error", err)
			res.Errors = append(res.Errors, RecordError{ObjectKey: ref.Key, Error: err.Error()})
		}
	}
	res.Failed = len(res.Errors)
	res.Processed = len(refs) - res.Failed
	if res.Failed == 0 {
		res.Message = "All photos queued for processing"
	}
	return res
}
