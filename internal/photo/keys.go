package photo

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// ErrInvalidObjectKey is returned for storage keys outside the raw photo layout.
var ErrInvalidObjectKey = errors.New("invalid object key")

var rawKeyPattern = regexp.MustCompile(`^([^/]+)/([^/]+)/photos/raw/(.+)$`)

// ObjectKey is a parsed inbound storage key.
type ObjectKey struct {
	Organizer string
	EventID   string
	Filename  string
	// Key is the decoded storage key.
	Key string
}

// ParseObjectKey decodes a notification key ("+" is a space, %XX escapes)
// and splits it as {organizer}/{event}/photos/raw/{filename}.
func ParseObjectKey(raw string) (ObjectKey, error) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return ObjectKey{}, fmt.Errorf("%w: decoding %q: %v", ErrInvalidObjectKey, raw, err)
	}

	m := rawKeyPattern.FindStringSubmatch(decoded)
	if m == nil {
		return ObjectKey{}, fmt.Errorf("%w: expected {organizer}/{eventId}/photos/raw/{filename}, got %q",
			ErrInvalidObjectKey, decoded)
	}

	return ObjectKey{
		Organizer: m[1],
		EventID:   m[2],
		Filename:  m[3],
		Key:       decoded,
	}, nil
}

// RawPrefix returns the storage prefix holding an event's original uploads.
func RawPrefix(organizer, eventID string) string {
	return organizer + "/" + eventID + "/photos/raw/"
}

// EventKey is the partition key of photo records and roster records.
func EventKey(organizer, eventID string) string {
	return "ORG#" + organizer + "#EVT#" + eventID
}

// EventBibKey is the partition key of the bib inverted index.
func EventBibKey(organizer, eventID, bib string) string {
	return EventKey(organizer, eventID) + "#BIB#" + bib
}

// RunnerSortKey is the sort key of a roster record.
func RunnerSortKey(bib string) string {
	return "BIB#" + bib
}
