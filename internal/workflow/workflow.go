// Package workflow starts one processing execution per photo, either on AWS
// Step Functions or in process.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/kozaktomas/snaprace/internal/constants"
)

// ErrExecutionExists is returned when an execution with the same name was already started.
var ErrExecutionExists = errors.New("execution already exists")

// Input is the initial payload of an execution.
type Input struct {
	Bucket          string `json:"bucket"`
	ObjectKey       string `json:"objectKey"`
	Organizer       string `json:"organizer"`
	EventID         string `json:"eventId"`
	UploadTimestamp int64  `json:"uploadTimestamp,omitempty"`
}

// Starter starts a named execution and returns its identifier.
type Starter interface {
	Start(ctx context.Context, name string, in Input) (string, error)
}

// ExecutionName builds the execution name of a photo. Names are unique per
// object key and millisecond, restricted to [A-Za-z0-9_-] and at most 80
// characters; the key hash and timestamp suffix are never truncated.
func ExecutionName(in Input, now time.Time) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(in.ObjectKey))
	suffix := fmt.Sprintf("-%08x-%d", h.Sum32(), now.UnixMilli())

	base := sanitizeName("photo-" + in.Organizer + "-" + in.EventID)
	if limit := constants.MaxExecutionNameLength - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
