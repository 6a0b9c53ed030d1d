package lambdafn

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/pipeline"
)

// RecordHandler queues uploaded objects
type RecordHandler interface {
	HandleRecords(ctx context.Context, refs []pipeline.ObjectRef) pipeline.StartResult
}

// StarterResponse mirrors the status/body shape returned to the S3 trigger.
type StarterResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Starter handles S3 object-created notifications.
type Starter struct {
	starter RecordHandler
	logger  *slog.Logger
}

func NewStarter(starter RecordHandler, logger *slog.Logger) *Starter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Starter{starter: starter, logger: logger}
}

// Handle queues every record of the notification. Per-record failures are
// reported in the body, never as an invocation error.
func (s *Starter) Handle(ctx context.Context, event events.S3Event) (StarterResponse, error) {
	refs := make([]pipeline.ObjectRef, 0, len(event.Records))
	for _, rec := range event.Records {
		refs = append(refs, pipeline.ObjectRef{Bucket: rec.S3.Bucket.Name, Key: rec.S3.Object.Key})
	}

	res := s.starter.HandleRecords(ctx, refs)
	withRequestID(ctx, s.logger).Info("upload notification handled",
		"records", len(refs), "processed", res.Processed, "failed", res.Failed)

	resp := apiResponse(http.StatusOK, res)
	return StarterResponse{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}
