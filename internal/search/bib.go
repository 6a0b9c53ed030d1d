package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/store"
)

// Result sources of a bib search
const (
	SourceRunners  = "runners_table"
	SourceBibIndex = "photo_bib_index"
)

const msgNoBibPhotos = "No photos found for this bib number"

var digitsPattern = regexp.MustCompile(`^\d+$`)

// BibRequest is a search-by-bib query.
type BibRequest struct {
	Organizer string `json:"organizer"`
	EventID   string `json:"eventId"`
	BibNumber string `json:"bibNumber"`
}

// BibResponse lists the photos of one bib.
type BibResponse struct {
	BibNumber  string   `json:"bibNumber"`
	Organizer  string   `json:"organizer"`
	EventID    string   `json:"eventId"`
	PhotoKeys  []string `json:"photoKeys"`
	PhotoCount int      `json:"photoCount"`
	Source     string   `json:"source,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// BibSearcher looks photos up by bib number, preferring the roster photo set
// and falling back to the bib index.
type BibSearcher struct {
	index  store.BibIndex
	roster store.Roster
	logger *slog.Logger
}

// NewBibSearcher creates a searcher. roster may be nil.
func NewBibSearcher(index store.BibIndex, roster store.Roster, logger *slog.Logger) *BibSearcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &BibSearcher{index: index, roster: roster, logger: logger}
}

func (s *BibSearcher) Search(ctx context.Context, req BibRequest) (BibResponse, error) {
	if req.Organizer == "" || req.EventID == "" || req.BibNumber == "" {
		return BibResponse{}, invalid("Missing required parameters: organizer, eventId, bibNumber")
	}
	if !digitsPattern.MatchString(req.BibNumber) {
		return BibResponse{}, invalid("bibNumber must be a numeric value")
	}

	resp := BibResponse{BibNumber: req.BibNumber, Organizer: req.Organizer, EventID: req.EventID}
	canonical := bib.NormalizeBibNumber(req.BibNumber)
	log := s.logger.With("organizer", req.Organizer, "eventId", req.EventID, "bibNumber", canonical)

	if s.roster != nil {
		runner, err := s.roster.GetRunner(ctx, req.Organizer, req.EventID, canonical)
		switch {
		case err != nil:
			log.Warn("failed to query roster, using bib index", "error", err)
		case runner != nil && len(runner.PhotoKeys) > 0:
			resp.PhotoKeys = runner.PhotoKeys
			resp.PhotoCount = len(runner.PhotoKeys)
			resp.Source = SourceRunners
			log.Info("photos found in roster", "photoCount", resp.PhotoCount)
			return resp, nil
		}
	}

	keys, err := s.index.QueryBibIndex(ctx, req.Organizer, req.EventID, canonical)
	if err != nil {
		return BibResponse{}, fmt.Errorf("query bib index: %w", err)
	}
	resp.PhotoKeys = nonNil(keys)
	resp.PhotoCount = len(resp.PhotoKeys)
	if resp.PhotoCount == 0 {
		resp.Message = msgNoBibPhotos
	} else {
		resp.Source = SourceBibIndex
	}
	log.Info("bib index queried", "photoCount", resp.PhotoCount)
	return resp, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
