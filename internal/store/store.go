// Package store defines the persistence contracts of the photo pipeline:
// per-photo records, the bib inverted index and the optional runner roster.
//
// Every write is safe to repeat. Backends live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/kozaktomas/snaprace/internal/photo"
)

// ErrRunnerNotFound is returned when a roster record does not exist.
var ErrRunnerNotFound = errors.New("runner not found")

// PhotoStore holds per-photo processing records.
type PhotoStore interface {
	// GetPhoto returns nil if the record, or the whole table, does not exist
	GetPhoto(ctx context.Context, organizer, eventID, objectKey string) (*photo.Record, error)
	// CreatePhoto writes rec unless a record with the same key exists.
	// It reports whether this call created it; a collision is not an error.
	CreatePhoto(ctx context.Context, rec photo.Record) (bool, error)
	// UpdatePhoto writes only the fields set in patch, plus the updated timestamp
	UpdatePhoto(ctx context.Context, organizer, eventID, objectKey string, patch *photo.Patch) error
}

// BibIndex is the append-only bib to photo inverted index.
type BibIndex interface {
	// PutBibIndex adds one entry per bib for objectKey, in batches of at most 25
	PutBibIndex(ctx context.Context, organizer, eventID, objectKey string, bibs []string) error
	// QueryBibIndex returns every photo key indexed under bib
	QueryBibIndex(ctx context.Context, organizer, eventID, bib string) ([]string, error)
}

// Roster reads and decorates the externally owned runner records. Bibs are
// passed in canonical form; backends apply any configured key padding.
type Roster interface {
	// TableExists probes whether the roster table exists
	TableExists(ctx context.Context) (bool, error)
	// ValidBibs lists the bibs registered for an event, empty if the table does not exist
	ValidBibs(ctx context.Context, organizer, eventID string) ([]string, error)
	// GetRunner returns nil if the runner does not exist
	GetRunner(ctx context.Context, organizer, eventID, bib string) (*photo.Runner, error)
	// AddPhotoKeys set-unions keys into the runner's photo set. It never
	// creates a runner and returns ErrRunnerNotFound for a missing one.
	// A missing table is a no-op.
	AddPhotoKeys(ctx context.Context, organizer, eventID, bib string, keys ...string) error
}

// RosterWriter seeds roster records.
type RosterWriter interface {
	Roster
	// PutRunner creates or replaces a runner, keeping any existing photo keys
	PutRunner(ctx context.Context, organizer, eventID string, runner photo.Runner) error
}

// Store bundles every contract of one backend.
type Store interface {
	PhotoStore
	BibIndex
	RosterWriter
}
