package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kozaktomas/snaprace/internal/search"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response. The CORS origin header is part of every
// response, including errors.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondSearchError maps validation failures to 400 and everything else to
// a generic 500.
func respondSearchError(w http.ResponseWriter, logger *slog.Logger, err error, internalMessage string) {
	var verr *search.ValidationError
	if errors.As(err, &verr) {
		logger.Warn("invalid search request", "error", verr.Message)
		respondError(w, http.StatusBadRequest, verr.Message)
		return
	}
	logger.Error(internalMessage, "error", err)
	respondError(w, http.StatusInternalServerError, internalMessage)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
