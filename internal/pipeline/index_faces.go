package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/snaprace/internal/externalid"
	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/recognition"
	"github.com/kozaktomas/snaprace/internal/store"
)

// FaceIndexer detects and indexes the faces of stored images.
type FaceIndexer interface {
	CollectionID(organizer, eventID string) string
	DetectFaces(ctx context.Context, bucket, key string) (int, error)
	IndexFaces(ctx context.Context, req recognition.IndexRequest) (recognition.IndexResult, error)
}

// IndexFacesOptions configures the index-faces stage.
type IndexFacesOptions struct {
	Photos   store.PhotoStore
	Faces    FaceIndexer
	MaxFaces int
	Logger   *slog.Logger
}

// IndexFaces adds the faces of a photo to the event collection.
type IndexFaces struct {
	opts IndexFacesOptions
}

func NewIndexFaces(opts IndexFacesOptions) *IndexFaces {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &IndexFaces{opts: opts}
}

// Run moves the photo from TEXT_DETECTED to FACES_INDEXED.
func (s *IndexFaces) Run(ctx context.Context, in Context) (Context, error) {
	if err := in.Validate(); err != nil {
		return in, err
	}
	log := in.logger(s.opts.Logger, photo.StageIndexFaces)

	rec, err := s.opts.Photos.GetPhoto(ctx, in.Organizer, in.EventID, in.ObjectKey)
	if err != nil {
		return in, fmt.Errorf("get photo record: %w", err)
	}
	if rec != nil {
		if photo.StageIndexFaces.Done(rec.Status) {
			log.Info("face indexing already completed, skipping", "status", rec.Status, "faceIds", len(rec.FaceIDs))
			out := in
			out.FaceIDs = nonNil(rec.FaceIDs)
			out.IsGroupPhoto = rec.IsGroupPhoto != nil && *rec.IsGroupPhoto
			return out, nil
		}
		if in.DetectedBibs == nil {
			in.DetectedBibs = rec.DetectedBibs
		}
	}

	out, err := s.index(ctx, in, log)
	if err != nil {
		log.Error("face indexing failed", "error", err)
		rollback(ctx, s.opts.Photos, in, photo.StageIndexFaces, log)
		return in, err
	}
	return out, nil
}

func (s *IndexFaces) index(ctx context.Context, in Context, log *slog.Logger) (Context, error) {
	count, err := s.opts.Faces.DetectFaces(ctx, in.Bucket, in.ObjectKey)
	if err != nil {
		return in, err
	}

	out := in
	if count == 0 {
		log.Info("no faces detected, skipping indexing")
		out.FaceIDs = []string{}
		out.IsGroupPhoto = false
	} else {
		collectionID := s.opts.Faces.CollectionID(in.Organizer, in.EventID)
		res, err := s.opts.Faces.IndexFaces(ctx, recognition.IndexRequest{
			CollectionID:    collectionID,
			Bucket:          in.Bucket,
			Key:             in.ObjectKey,
			ExternalImageID: externalid.Encode(in.ObjectKey),
			MaxFaces:        s.opts.MaxFaces,
		})
		if err != nil {
			return in, err
		}
		for _, uf := range res.Unindexed {
			log.Warn("face not indexed", "reasons", uf.Reasons, "confidence", uf.Confidence)
		}
		out.FaceIDs = nonNil(res.FaceIDs)
		out.IsGroupPhoto = len(in.DetectedBibs) > 1 && len(out.FaceIDs) > 1
		log.Info("faces indexed", "collectionId", collectionID, "detected", count, "indexed", len(out.FaceIDs), "unindexed", len(res.Unindexed))
	}

	patch := photo.NewPatch().
		WithStatus(photo.StageIndexFaces.Exit()).
		WithFaceIDs(out.FaceIDs).
		WithGroupPhoto(out.IsGroupPhoto)
	if err := s.opts.Photos.UpdatePhoto(ctx, in.Organizer, in.EventID, in.ObjectKey, patch); err != nil {
		return in, fmt.Errorf("update photo record: %w", err)
	}
	return out, nil
}
