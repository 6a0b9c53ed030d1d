package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/snaprace/internal/search"
)

// fakeBibSearch records the last request and returns a canned response
type fakeBibSearch struct {
	resp search.BibResponse
	err  error
	last search.BibRequest
}

func (f *fakeBibSearch) Search(ctx context.Context, req search.BibRequest) (search.BibResponse, error) {
	f.last = req
	return f.resp, f.err
}

// fakeSelfieSearch records the last request and returns a canned response
type fakeSelfieSearch struct {
	resp  search.SelfieResponse
	err   error
	last  search.SelfieRequest
	calls int
}

func (f *fakeSelfieSearch) Search(ctx context.Context, req search.SelfieRequest) (search.SelfieResponse, error) {
	f.calls++
	f.last = req
	return f.resp, f.err
}

// multipartSelfie builds a multipart request body with the given form fields and selfie file
func multipartSelfie(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("selfie", "selfie.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func assertStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Errorf("expected status %d, got %d: %s", want, recorder.Code, recorder.Body.String())
	}
}

func assertEnvelopeHeaders(t *testing.T, recorder *httptest.ResponseRecorder) {
	t.Helper()
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
	if origin := recorder.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected Access-Control-Allow-Origin '*', got '%s'", origin)
	}
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(recorder.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response: %v (%s)", err, recorder.Body.String())
	}
	return v
}

var _ http.Handler = http.HandlerFunc(HealthCheck)
