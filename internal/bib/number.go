package bib

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeBibNumber strips left zero padding; an all-zero input becomes "0".
func NormalizeBibNumber(bib string) string {
	normalized := strings.TrimLeft(bib, "0")
	if normalized == "" {
		return "0"
	}
	return normalized
}

// PadBibNumber left-pads bib with zeros to width. Width 0 leaves it unchanged.
func PadBibNumber(bib string, width int) string {
	if len(bib) >= width {
		return bib
	}
	return strings.Repeat("0", width-len(bib)) + bib
}

// IsValidBibNumber reports whether the digits in bib form a number in [minBib, maxBib].
func IsValidBibNumber(bib string, minBib, maxBib int) bool {
	digits := digitsOnly(bib)
	if digits == "" {
		return false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return false
	}
	return n >= minBib && n <= maxBib
}

// Set is a set of canonical bib numbers.
type Set map[string]struct{}

// NewSet builds a set from bibs, normalizing each one.
func NewSet(bibs ...string) Set {
	s := make(Set, len(bibs))
	for _, b := range bibs {
		s[NormalizeBibNumber(b)] = struct{}{}
	}
	return s
}

func (s Set) Has(bib string) bool {
	_, ok := s[bib]
	return ok
}

// FilterByValidList keeps the candidates present in valid. An empty valid set
// means no roster is available and every candidate passes.
func FilterByValidList(candidates []string, valid Set) []string {
	if len(valid) == 0 {
		return candidates
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if valid.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// RosterLister lists the bib numbers registered for an event. Implementations
// return an empty list when the roster table does not exist.
type RosterLister interface {
	ValidBibs(ctx context.Context, organizer, eventID string) ([]string, error)
}

// LoadValidBibs loads the event roster as a normalized set.
func LoadValidBibs(ctx context.Context, roster RosterLister, organizer, eventID string) (Set, error) {
	bibs, err := roster.ValidBibs(ctx, organizer, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading roster for %s/%s: %w", organizer, eventID, err)
	}
	return NewSet(bibs...), nil
}
