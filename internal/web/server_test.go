package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/snaprace/internal/search"
)

type stubBib struct{ calls int }

func (s *stubBib) Search(ctx context.Context, req search.BibRequest) (search.BibResponse, error) {
	s.calls++
	return search.BibResponse{BibNumber: req.BibNumber, PhotoKeys: []string{}}, nil
}

type stubSelfie struct{}

func (stubSelfie) Search(ctx context.Context, req search.SelfieRequest) (search.SelfieResponse, error) {
	return search.SelfieResponse{ImageURLs: []string{}, Matches: []search.Match{}}, nil
}

func newTestServer() (*Server, *stubBib) {
	bib := &stubBib{}
	return NewServer(Services{Bib: bib, Selfie: stubSelfie{}}, "127.0.0.1", 0, nil), bib
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/api/v1/health", http.StatusOK},
		{"bib search", http.MethodGet, "/api/v1/search/bib?organizer=o&eventId=e&bibNumber=1", http.StatusOK},
		{"bib search wrong method", http.MethodPost, "/api/v1/search/bib", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer()
			recorder := httptest.NewRecorder()
			srv.Router().ServeHTTP(recorder, httptest.NewRequest(tt.method, tt.path, nil))

			if recorder.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
			if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers missing")
			}
		})
	}
}

func TestRouter_NotFoundIsJSON(t *testing.T) {
	srv, _ := newTestServer()
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["error"] != "not found" {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_Preflight(t *testing.T) {
	srv, bib := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search/selfie", nil)
	req.Header.Set("Origin", "https://race.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK && recorder.Code != http.StatusNoContent {
		t.Errorf("status = %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if bib.calls != 0 {
		t.Error("preflight reached a handler")
	}
}

func TestNewServer_Addr(t *testing.T) {
	srv := NewServer(Services{}, "::1", 8080, nil)
	if srv.httpServer.Addr != "[::1]:8080" {
		t.Errorf("Addr = %q", srv.httpServer.Addr)
	}
}
