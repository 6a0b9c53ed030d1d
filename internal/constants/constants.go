// Package constants provides shared constants used across the codebase.
package constants

// Store constants
const (
	// BatchWriteLimit is the maximum number of items in one batch write request
	BatchWriteLimit = 25
)

// Image constants
const (
	// HeaderRangeBytes is how much of an object is fetched to read image dimensions
	HeaderRangeBytes = 64 * 1024

	// FallbackImageWidth and FallbackImageHeight are used when the header cannot be parsed
	FallbackImageWidth  = 1920
	FallbackImageHeight = 1080
)

// Recognition constants
const (
	// FaceQualityFilter is the quality filter passed to face indexing
	FaceQualityFilter = "AUTO"

	// MaxExecutionNameLength is the longest workflow execution name accepted
	MaxExecutionNameLength = 80
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for backfill
	WorkerPoolSize = 8
)
