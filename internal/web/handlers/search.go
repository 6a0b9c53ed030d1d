package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/search"
)

// maxSelfieBodyBytes bounds selfie uploads; base64 bodies are about 4/3 of the image.
const maxSelfieBodyBytes = 8 << 20

const (
	errBibSearchFailed    = "Failed to process search request"
	errSelfieSearchFailed = "Failed to process selfie search request"
)

// BibSearch looks photos up by bib number
type BibSearch interface {
	Search(ctx context.Context, req search.BibRequest) (search.BibResponse, error)
}

// SelfieSearch looks photos up by face
type SelfieSearch interface {
	Search(ctx context.Context, req search.SelfieRequest) (search.SelfieResponse, error)
}

// SearchHandler serves the search endpoints.
type SearchHandler struct {
	bib    BibSearch
	selfie SelfieSearch
	logger *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(bib BibSearch, selfie SelfieSearch, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SearchHandler{bib: bib, selfie: selfie, logger: logger}
}

// Bib handles GET /search/bib?organizer=&eventId=&bibNumber=
func (h *SearchHandler) Bib(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := search.BibRequest{
		Organizer: q.Get("organizer"),
		EventID:   q.Get("eventId"),
		BibNumber: q.Get("bibNumber"),
	}

	resp, err := h.bib.Search(r.Context(), req)
	if err != nil {
		respondSearchError(w, h.logger.With("bibNumber", sanitizeForLog(req.BibNumber)), err, errBibSearchFailed)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Selfie handles POST /search/selfie with either a JSON body carrying a
// base64 image or a multipart form with a "selfie" file.
func (h *SearchHandler) Selfie(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSelfieBodyBytes)

	req, err := h.parseSelfie(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "selfie image is too large")
			return
		}
		respondSearchError(w, h.logger, err, errSelfieSearchFailed)
		return
	}

	resp, err := h.selfie.Search(r.Context(), req)
	if err != nil {
		respondSearchError(w, h.logger.With("organizer", sanitizeForLog(req.Organizer)), err, errSelfieSearchFailed)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *SearchHandler) parseSelfie(r *http.Request) (search.SelfieRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return parseSelfieForm(r)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return search.SelfieRequest{}, err
	}
	return search.ParseSelfieJSON(data)
}

func parseSelfieForm(r *http.Request) (search.SelfieRequest, error) {
	if err := r.ParseMultipartForm(maxSelfieBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return search.SelfieRequest{}, err
		}
		return search.SelfieRequest{}, &search.ValidationError{Message: "invalid multipart form"}
	}
	req := search.SelfieRequest{
		Organizer: r.FormValue("organizer"),
		EventID:   r.FormValue("eventId"),
	}

	file, _, err := r.FormFile("selfie")
	if err != nil {
		return req, &search.ValidationError{Message: "Missing required fields: organizer, eventId, selfie"}
	}
	defer file.Close()

	if req.Image, err = io.ReadAll(file); err != nil {
		return req, err
	}
	return req, nil
}
