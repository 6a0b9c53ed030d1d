package recognition

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
)

// ErrCollectionNotFound is returned by SearchFaces when the event has no collection yet.
var ErrCollectionNotFound = errors.New("recognition collection not found")

const (
	codeInvalidImageFormat    = "InvalidImageFormatException"
	codeInvalidS3Object       = "InvalidS3ObjectException"
	codeImageTooLarge         = "ImageTooLargeException"
	codeInvalidParameter      = "InvalidParameterException"
	codeResourceNotFound      = "ResourceNotFoundException"
	codeResourceAlreadyExists = "ResourceAlreadyExistsException"
)

// permanentCodes are never retried by any call.
var permanentCodes = map[string]bool{
	codeInvalidImageFormat: true,
	codeInvalidS3Object:    true,
	codeImageTooLarge:      true,
}

// searchPermanentCodes extend permanentCodes for face search.
var searchPermanentCodes = map[string]bool{
	codeInvalidImageFormat: true,
	codeInvalidS3Object:    true,
	codeImageTooLarge:      true,
	codeInvalidParameter:   true,
	codeResourceNotFound:   true,
}

// collectionPermanentCodes are answers, not failures, when probing or creating a collection.
var collectionPermanentCodes = map[string]bool{
	codeInvalidParameter:      true,
	codeResourceNotFound:      true,
	codeResourceAlreadyExists: true,
}

// ErrorCode returns the service error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isPermanent(err error, codes map[string]bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return codes[ErrorCode(err)]
}
