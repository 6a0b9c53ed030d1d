package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/search"
)

func TestRespondJSON_Envelope(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
		wantBody   string
	}{
		{"OK with data", http.StatusOK, map[string]int{"count": 42}, "{\"count\":42}\n"},
		{"OK empty map", http.StatusOK, map[string]string{}, "{}\n"},
		{"no content", http.StatusNoContent, nil, ""},
		{"array", http.StatusOK, []string{"a", "b"}, "[\"a\",\"b\"]\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
			assertEnvelopeHeaders(t, recorder)
			if recorder.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, recorder.Body.String())
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatus(t, recorder, http.StatusBadRequest)
	assertEnvelopeHeaders(t, recorder)
	if got := decodeBody[map[string]string](t, recorder)["error"]; got != "something went wrong" {
		t.Errorf("expected error 'something went wrong', got '%s'", got)
	}
}

func TestRespondSearchError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			err:        &search.ValidationError{Message: "bibNumber must be a numeric value"},
			wantStatus: http.StatusBadRequest,
			wantError:  "bibNumber must be a numeric value",
		},
		{
			name:       "wrapped validation",
			err:        fmt.Errorf("parse: %w", &search.ValidationError{Message: "Invalid JSON format"}),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON format",
		},
		{
			name:       "infrastructure details are not leaked",
			err:        errors.New("dynamodb: AccessDeniedException arn:aws:..."),
			wantStatus: http.StatusInternalServerError,
			wantError:  errBibSearchFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondSearchError(recorder, logging.Discard(), tc.err, errBibSearchFailed)

			assertStatus(t, recorder, tc.wantStatus)
			if got := decodeBody[map[string]string](t, recorder)["error"]; got != tc.wantError {
				t.Errorf("expected error %q, got %q", tc.wantError, got)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

			assertStatus(t, recorder, http.StatusOK)
			if method != http.MethodHead {
				if got := decodeBody[map[string]string](t, recorder)["status"]; got != "ok" {
					t.Errorf("expected status 'ok', got '%s'", got)
				}
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("42\r\nfake=entry"); got != "42fake=entry" {
		t.Errorf("sanitizeForLog() = %q", got)
	}
}
