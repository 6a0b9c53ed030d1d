// Package recognition wraps the vision service: text detection, face
// detection, face indexing, face search and collection lifecycle.
//
// Every vision call is retried with exponential backoff except for a fixed
// set of permanent error codes.
package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/constants"
)

// API is the subset of the Rekognition client used by the gateway.
type API interface {
	DetectText(ctx context.Context, in *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
	DetectFaces(ctx context.Context, in *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	IndexFaces(ctx context.Context, in *rekognition.IndexFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
	SearchFacesByImage(ctx context.Context, in *rekognition.SearchFacesByImageInput, optFns ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
	DescribeCollection(ctx context.Context, in *rekognition.DescribeCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.DescribeCollectionOutput, error)
	CreateCollection(ctx context.Context, in *rekognition.CreateCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error)
}

// Options configures a Gateway.
type Options struct {
	CollectionPrefix string
	MaxRetries       int
	BaseDelay        time.Duration
	// Cache defaults to a new MemoryCache.
	Cache  CollectionCache
	Logger *slog.Logger
}

type Gateway struct {
	api        API
	cache      CollectionCache
	prefix     string
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

func NewGateway(api API, opts Options) *Gateway {
	g := &Gateway{
		api:        api,
		cache:      opts.Cache,
		prefix:     opts.CollectionPrefix,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		logger:     opts.Logger,
	}
	if g.cache == nil {
		g.cache = NewMemoryCache()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.maxRetries < 0 {
		g.maxRetries = 0
	}
	return g
}

// CollectionID names the face collection of an event.
func (g *Gateway) CollectionID(organizer, eventID string) string {
	return g.prefix + "-" + organizer + "-" + eventID
}

// FaceMatch is one search hit.
type FaceMatch struct {
	ExternalImageID string
	FaceID          string
	Similarity      float64
}

// UnindexedFace is a detected face the service refused to index.
type UnindexedFace struct {
	Reasons    []string
	Confidence float64
}

// IndexResult is the outcome of indexing one image.
type IndexResult struct {
	FaceIDs   []string
	Unindexed []UnindexedFace
}

// IndexRequest describes one image to index into a collection.
type IndexRequest struct {
	CollectionID    string
	Bucket          string
	Key             string
	ExternalImageID string
	MaxFaces        int
}

// DetectText returns the text detections of a stored image.
func (g *Gateway) DetectText(ctx context.Context, bucket, key string) ([]bib.Detection, error) {
	out, err := retry(ctx, g, "DetectText", permanentCodes, func() (*rekognition.DetectTextOutput, error) {
		return g.api.DetectText(ctx, &rekognition.DetectTextInput{Image: s3Image(bucket, key)})
	})
	if err != nil {
		return nil, fmt.Errorf("detecting text in %s: %w", key, err)
	}

	detections := make([]bib.Detection, 0, len(out.TextDetections))
	for _, td := range out.TextDetections {
		d := bib.Detection{
			Text:       aws.ToString(td.DetectedText),
			Confidence: float64(aws.ToFloat32(td.Confidence)),
			Type:       string(td.Type),
		}
		if td.Geometry != nil && td.Geometry.BoundingBox != nil {
			bb := td.Geometry.BoundingBox
			d.Box = &bib.BoundingBox{
				Top:    float64(aws.ToFloat32(bb.Top)),
				Left:   float64(aws.ToFloat32(bb.Left)),
				Width:  float64(aws.ToFloat32(bb.Width)),
				Height: float64(aws.ToFloat32(bb.Height)),
			}
		}
		detections = append(detections, d)
	}
	return detections, nil
}

// DetectFaces returns the number of faces in a stored image.
func (g *Gateway) DetectFaces(ctx context.Context, bucket, key string) (int, error) {
	out, err := retry(ctx, g, "DetectFaces", permanentCodes, func() (*rekognition.DetectFacesOutput, error) {
		return g.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
			Image:      s3Image(bucket, key),
			Attributes: []types.Attribute{types.AttributeAll},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("detecting faces in %s: %w", key, err)
	}
	return len(out.FaceDetails), nil
}

// IndexFaces ensures the collection exists and indexes the faces of an image.
func (g *Gateway) IndexFaces(ctx context.Context, req IndexRequest) (IndexResult, error) {
	if err := g.EnsureCollection(ctx, req.CollectionID); err != nil {
		return IndexResult{}, err
	}

	out, err := retry(ctx, g, "IndexFaces", permanentCodes, func() (*rekognition.IndexFacesOutput, error) {
		return g.api.IndexFaces(ctx, &rekognition.IndexFacesInput{
			CollectionId:        aws.String(req.CollectionID),
			Image:               s3Image(req.Bucket, req.Key),
			ExternalImageId:     aws.String(req.ExternalImageID),
			MaxFaces:            aws.Int32(int32(req.MaxFaces)),
			QualityFilter:       types.QualityFilter(constants.FaceQualityFilter),
			DetectionAttributes: []types.Attribute{types.AttributeAll},
		})
	})
	if err != nil {
		return IndexResult{}, fmt.Errorf("indexing faces of %s into %s: %w", req.Key, req.CollectionID, err)
	}

	result := IndexResult{FaceIDs: make([]string, 0, len(out.FaceRecords))}
	for _, rec := range out.FaceRecords {
		if rec.Face != nil && rec.Face.FaceId != nil {
			result.FaceIDs = append(result.FaceIDs, *rec.Face.FaceId)
		}
	}
	for _, uf := range out.UnindexedFaces {
		u := UnindexedFace{}
		for _, r := range uf.Reasons {
			u.Reasons = append(u.Reasons, string(r))
		}
		if uf.FaceDetail != nil {
			u.Confidence = float64(aws.ToFloat32(uf.FaceDetail.Confidence))
		}
		result.Unindexed = append(result.Unindexed, u)
	}
	return result, nil
}

// SearchFaces searches a collection for faces similar to the one in image.
// A missing collection yields ErrCollectionNotFound.
func (g *Gateway) SearchFaces(ctx context.Context, collectionID string, image []byte, maxFaces int, threshold float64) ([]FaceMatch, error) {
	out, err := retry(ctx, g, "SearchFacesByImage", searchPermanentCodes, func() (*rekognition.SearchFacesByImageOutput, error) {
		return g.api.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
			CollectionId:       aws.String(collectionID),
			Image:              &types.Image{Bytes: image},
			MaxFaces:           aws.Int32(int32(maxFaces)),
			FaceMatchThreshold: aws.Float32(float32(threshold)),
		})
	})
	if err != nil {
		if ErrorCode(err) == codeResourceNotFound {
			return nil, fmt.Errorf("%w: %s: %v", ErrCollectionNotFound, collectionID, err)
		}
		return nil, fmt.Errorf("searching faces in %s: %w", collectionID, err)
	}

	matches := make([]FaceMatch, 0, len(out.FaceMatches))
	for _, fm := range out.FaceMatches {
		if fm.Face == nil {
			continue
		}
		matches = append(matches, FaceMatch{
			ExternalImageID: aws.ToString(fm.Face.ExternalImageId),
			FaceID:          aws.ToString(fm.Face.FaceId),
			Similarity:      float64(aws.ToFloat32(fm.Similarity)),
		})
	}
	return matches, nil
}

// EnsureCollection creates the collection unless it is cached or already exists.
func (g *Gateway) EnsureCollection(ctx context.Context, collectionID string) error {
	if g.cache.Has(collectionID) {
		return nil
	}

	_, err := retry(ctx, g, "DescribeCollection", collectionPermanentCodes, func() (*rekognition.DescribeCollectionOutput, error) {
		return g.api.DescribeCollection(ctx, &rekognition.DescribeCollectionInput{
			CollectionId: aws.String(collectionID),
		})
	})
	switch {
	case err == nil:
		g.logger.Debug("collection exists", "collectionId", collectionID)
	case ErrorCode(err) == codeResourceNotFound:
		g.logger.Info("creating collection", "collectionId", collectionID)
		_, err = retry(ctx, g, "CreateCollection", collectionPermanentCodes, func() (*rekognition.CreateCollectionOutput, error) {
			return g.api.CreateCollection(ctx, &rekognition.CreateCollectionInput{
				CollectionId: aws.String(collectionID),
			})
		})
		if err != nil && ErrorCode(err) != codeResourceAlreadyExists {
			return fmt.Errorf("creating collection %s: %w", collectionID, err)
		}
	default:
		return fmt.Errorf("describing collection %s: %w", collectionID, err)
	}

	g.cache.Add(collectionID)
	return nil
}

func retry[T any](ctx context.Context, g *Gateway, op string, permanent map[string]bool, fn func() (T, error)) (T, error) {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     g.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Minute,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.maxRetries)), ctx)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := fn()
		if err != nil && isPermanent(err, permanent) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, delay time.Duration) {
		g.logger.Warn("vision call failed, retrying",
			"op", op, "attempt", attempt, "maxRetries", g.maxRetries,
			"delay", delay, "error", err)
	}

	return backoff.RetryNotifyWithData(operation, policy, notify)
}

func s3Image(bucket, key string) *types.Image {
	return &types.Image{S3Object: &types.S3Object{
		Bucket: aws.String(bucket),
		Name:   aws.String(key),
	}}
}
