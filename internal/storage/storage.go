// Package storage reads race photos from S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kozaktomas/snaprace/internal/constants"
	"github.com/kozaktomas/snaprace/internal/logging"
)

// API is the subset of the S3 client used here
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Client wraps S3 object access for the pipeline.
type Client struct {
	api    API
	logger *slog.Logger
}

// New creates a storage client. A nil logger discards warnings.
func New(api API, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{api: api, logger: logger}
}

// ReadRange returns at most n bytes from the start of the object.
func (c *Client) ReadRange(ctx context.Context, bucket, key string, n int64) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid range length %d", n)
	}
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", n-1)),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	if out.Body == nil {
		return nil, fmt.Errorf("get object %s/%s: empty body", bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, n))
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// ListKeys returns every object key under prefix.
func (c *Client) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// skip folder placeholders
			if key == "" || key[len(key)-1] == '/' {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Dimensions resolves the pixel size of an object from its header bytes,
// falling back to the default size when the header cannot be read.
func (c *Client) Dimensions(ctx context.Context, bucket, key string) (int, int) {
	data, err := c.ReadRange(ctx, bucket, key, constants.HeaderRangeBytes)
	if err == nil {
		var w, h int
		if w, h, err = DecodeDimensions(data); err == nil {
			return w, h
		}
	}
	c.logger.Warn("image dimensions unavailable, using fallback",
		"bucket", bucket,
		"objectKey", key,
		"width", constants.FallbackImageWidth,
		"height", constants.FallbackImageHeight,
		"error", err)
	return constants.FallbackImageWidth, constants.FallbackImageHeight
}
