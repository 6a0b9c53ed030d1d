package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
)

// TextDetector runs text detection over a stored image.
type TextDetector interface {
	DetectText(ctx context.Context, bucket, key string) ([]bib.Detection, error)
}

// DimensionResolver resolves the pixel size of a stored image. It never
// fails; unreadable headers yield a default size.
type DimensionResolver interface {
	Dimensions(ctx context.Context, bucket, key string) (int, int)
}

// DetectTextOptions configures the detect-text stage.
type DetectTextOptions struct {
	Photos store.PhotoStore
	Index  store.BibIndex
	// Roster is nil when no roster is configured.
	Roster     bib.RosterLister
	Text       TextDetector
	Dimensions DimensionResolver
	Bib        bib.Config
	Logger     *slog.Logger
}

// DetectText extracts bib numbers from a photo and indexes them.
type DetectText struct {
	opts DetectTextOptions
}

func NewDetectText(opts DetectTextOptions) *DetectText {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &DetectText{opts: opts}
}

// Run moves the photo from PENDING to TEXT_DETECTED. A record already past
// this stage returns its stored bibs and dimensions without new detection.
func (s *DetectText) Run(ctx context.Context, in Context) (Context, error) {
	if err := in.Validate(); err != nil {
		return in, err
	}
	log := in.logger(s.opts.Logger, photo.StageDetectText)

	rec, err := s.opts.Photos.GetPhoto(ctx, in.Organizer, in.EventID, in.ObjectKey)
	if err != nil {
		return in, fmt.Errorf("get photo record: %w", err)
	}
	if rec == nil {
		log.Warn("photo record not found, processing anyway")
	} else if photo.StageDetectText.Done(rec.Status) {
		log.Info("text detection already completed, skipping", "status", rec.Status, "detectedBibs", rec.DetectedBibs)
		out := in
		out.DetectedBibs = nonNil(rec.DetectedBibs)
		out.ImageWidth, out.ImageHeight = rec.ImageWidth, rec.ImageHeight
		return out, nil
	}

	out, err := s.detect(ctx, in, log)
	if err != nil {
		log.Error("text detection failed", "error", err)
		rollback(ctx, s.opts.Photos, in, photo.StageDetectText, log)
		return in, err
	}
	return out, nil
}

func (s *DetectText) detect(ctx context.Context, in Context, log *slog.Logger) (Context, error) {
	detections, err := s.opts.Text.DetectText(ctx, in.Bucket, in.ObjectKey)
	if err != nil {
		return in, err
	}

	width, height := in.ImageWidth, in.ImageHeight
	if width <= 0 || height <= 0 {
		width, height = s.opts.Dimensions.Dimensions(ctx, in.Bucket, in.ObjectKey)
	}

	bibs := bib.Extract(detections, s.opts.Bib)
	log.Info("bib extraction completed", "detections", len(detections), "candidates", len(bibs), "width", width, "height", height)

	if s.opts.Roster != nil && len(bibs) > 0 {
		valid, err := bib.LoadValidBibs(ctx, s.opts.Roster, in.Organizer, in.EventID)
		if err != nil {
			log.Warn("failed to load roster, keeping all detected bibs", "error", err)
		} else {
			bibs = bib.FilterByValidList(bibs, valid)
			log.Info("bibs validated against roster", "roster", len(valid), "matched", len(bibs))
		}
	}
	bibs = nonNil(bibs)

	if len(bibs) > 0 {
		if err := s.opts.Index.PutBibIndex(ctx, in.Organizer, in.EventID, in.ObjectKey, bibs); err != nil {
			return in, fmt.Errorf("index bibs: %w", err)
		}
	} else {
		log.Warn("no valid bibs detected in photo")
	}

	patch := photo.NewPatch().
		WithStatus(photo.StageDetectText.Exit()).
		WithDetectedBibs(bibs).
		WithDimensions(width, height)
	if err := s.opts.Photos.UpdatePhoto(ctx, in.Organizer, in.EventID, in.ObjectKey, patch); err != nil {
		return in, fmt.Errorf("update photo record: %w", err)
	}
	log.Info("photo text detected", "detectedBibs", bibs)

	out := in
	out.DetectedBibs = bibs
	out.ImageWidth, out.ImageHeight = width, height
	return out, nil
}
