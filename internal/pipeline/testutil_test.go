package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/recognition"
	"github.com/kozaktomas/snaprace/internal/store/mock"
	"github.com/kozaktomas/snaprace/internal/workflow"
)

const (
	testBucket = "photos"
	testOrg    = "org"
	testEvent  = "evt"
	testKey    = "org/evt/photos/raw/a.jpg"
)

func testContext() Context {
	return Context{Bucket: testBucket, ObjectKey: testKey, Organizer: testOrg, EventID: testEvent}
}

type fakeText struct {
	detections []bib.Detection
	err        error
	calls      int
}

func (f *fakeText) DetectText(ctx context.Context, bucket, key string) ([]bib.Detection, error) {
	f.calls++
	return f.detections, f.err
}

type fakeDims struct {
	width, height int
	calls         int
}

func (f *fakeDims) Dimensions(ctx context.Context, bucket, key string) (int, int) {
	f.calls++
	return f.width, f.height
}

type fakeFaces struct {
	count     int
	detectErr error
	result    recognition.IndexResult
	indexErr  error
	requests  []recognition.IndexRequest
	detects   int
}

func (f *fakeFaces) CollectionID(organizer, eventID string) string {
	return "snaprace-" + organizer + "-" + eventID
}

func (f *fakeFaces) DetectFaces(ctx context.Context, bucket, key string) (int, error) {
	f.detects++
	return f.count, f.detectErr
}

func (f *fakeFaces) IndexFaces(ctx context.Context, req recognition.IndexRequest) (recognition.IndexResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.indexErr
}

type fakeWorkflow struct {
	mu     sync.Mutex
	names  []string
	inputs []workflow.Input
	err    error
}

func (f *fakeWorkflow) Start(ctx context.Context, name string, in workflow.Input) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return "", f.err
	}
	return "arn:" + name, nil
}

func line(text string, confidence float64) bib.Detection {
	return bib.Detection{Text: text, Confidence: confidence, Type: bib.TypeLine}
}

func seedPhoto(st *mock.MockStore, status photo.Status, bibs ...string) {
	st.AddPhoto(testOrg, testEvent, photo.Record{ObjectKey: testKey, Status: status, DetectedBibs: bibs})
}

func assertStatus(t *testing.T, st *mock.MockStore, want photo.Status) {
	t.Helper()
	rec := st.Photo(testOrg, testEvent, testKey)
	if rec == nil {
		t.Fatalf("photo record missing, want status %s", want)
	}
	if rec.Status != want {
		t.Errorf("status = %s, want %s", rec.Status, want)
	}
}

// lastStatus returns the status written by the last update that set one.
func lastStatus(st *mock.MockStore) photo.Status {
	updates := st.Updates()
	for i := len(updates) - 1; i >= 0; i-- {
		if updates[i].Patch.Status != nil {
			return *updates[i].Patch.Status
		}
	}
	return ""
}
