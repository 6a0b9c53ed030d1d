package lambdafn

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/search"
)

type BibSearch interface {
	Search(ctx context.Context, req search.BibRequest) (search.BibResponse, error)
}

type SelfieSearch interface {
	Search(ctx context.Context, req search.SelfieRequest) (search.SelfieResponse, error)
}

// SearchByBib serves GET /search/bib through API Gateway.
type SearchByBib struct {
	svc       BibSearch
	configErr error
	logger    *slog.Logger
}

// NewSearchByBib creates the handler. A non-nil configErr makes every
// invocation answer 500 without touching svc.
func NewSearchByBib(svc BibSearch, configErr error, logger *slog.Logger) *SearchByBib {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SearchByBib{svc: svc, configErr: configErr, logger: logger}
}

func (h *SearchByBib) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := withRequestID(ctx, h.logger)
	if h.configErr != nil {
		log.Error("environment validation failed", "error", h.configErr)
		return apiError(http.StatusInternalServerError, msgConfigError), nil
	}

	q := req.QueryStringParameters
	resp, err := h.svc.Search(ctx, search.BibRequest{
		Organizer: q["organizer"],
		EventID:   q["eventId"],
		BibNumber: q["bibNumber"],
	})
	if err != nil {
		return searchError(log, err, "Failed to process search request"), nil
	}
	return apiResponse(http.StatusOK, resp), nil
}

// SearchBySelfie serves POST /search/selfie through API Gateway.
type SearchBySelfie struct {
	svc       SelfieSearch
	configErr error
	logger    *slog.Logger
}

func NewSearchBySelfie(svc SelfieSearch, configErr error, logger *slog.Logger) *SearchBySelfie {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SearchBySelfie{svc: svc, configErr: configErr, logger: logger}
}

func (h *SearchBySelfie) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := withRequestID(ctx, h.logger)
	if h.configErr != nil {
		log.Error("environment validation failed", "error", h.configErr)
		return apiError(http.StatusInternalServerError, msgConfigError), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return apiError(http.StatusBadRequest, "Invalid JSON format"), nil
		}
		body = decoded
	}

	sr, err := search.ParseSelfieJSON(body)
	if err != nil {
		return searchError(log, err, "Failed to process selfie search request"), nil
	}
	resp, err := h.svc.Search(ctx, sr)
	if err != nil {
		return searchError(log, err, "Failed to process selfie search request"), nil
	}
	return apiResponse(http.StatusOK, resp), nil
}

func searchError(log *slog.Logger, err error, internalMessage string) events.APIGatewayProxyResponse {
	var verr *search.ValidationError
	if errors.As(err, &verr) {
		log.Warn("invalid search request", "error", verr.Message)
		return apiError(http.StatusBadRequest, verr.Message)
	}
	log.Error("search failed", "error", err)
	return apiError(http.StatusInternalServerError, internalMessage)
}
