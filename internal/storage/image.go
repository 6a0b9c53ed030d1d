package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoDimensions is returned when a header decodes to a zero size.
var ErrNoDimensions = errors.New("could not determine image dimensions")

// DecodeDimensions parses only the image header in data and returns its size.
func DecodeDimensions(data []byte) (int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%s header: %w", format, ErrNoDimensions)
	}
	return cfg.Width, cfg.Height, nil
}
