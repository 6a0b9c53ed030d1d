package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
	"github.com/kozaktomas/snaprace/internal/store/mock"
)

func seedRunners(t *testing.T, st *mock.MockStore, bibs ...string) {
	t.Helper()
	for _, b := range bibs {
		if err := st.PutRunner(context.Background(), testOrg, testEvent, photo.Runner{BibNumber: b}); err != nil {
			t.Fatalf("PutRunner: %v", err)
		}
	}
}

func TestDBUpdate_OneOfThreeFails(t *testing.T) {
	st := mock.NewMockStore()
	seedPhoto(st, photo.StatusFacesIndexed, "1", "2", "3")
	seedRunners(t, st, "1", "2", "3")
	st.AddPhotoKeysError["2"] = errors.New("ProvisionedThroughputExceededException")
	in := testContext()
	in.DetectedBibs = []string{"1", "2", "3"}

	res, err := NewDBUpdate(DBUpdateOptions{Photos: st, Roster: st}).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.UpdatedBibs, []string{"1", "3"}) {
		t.Errorf("updated = %v", res.UpdatedBibs)
	}
	if len(res.FailedBibs) != 1 || res.FailedBibs[0].Bib != "2" || res.FailedBibs[0].Error == "" {
		t.Errorf("failed = %+v", res.FailedBibs)
	}
	if res.RunnersTableStatus != RosterUpdated {
		t.Errorf("status = %s", res.RunnersTableStatus)
	}
	assertStatus(t, st, photo.StatusCompleted)

	for _, b := range []string{"1", "3"} {
		r, _ := st.GetRunner(context.Background(), testOrg, testEvent, b)
		if !reflect.DeepEqual(r.PhotoKeys, []string{testKey}) {
			t.Errorf("runner %s photo keys = %v", b, r.PhotoKeys)
		}
	}
}

func TestDBUpdate_MissingRunnerSkipped(t *testing.T) {
	st := mock.NewMockStore()
	seedPhoto(st, photo.StatusFacesIndexed)
	seedRunners(t, st, "1")
	in := testContext()
	in.DetectedBibs = []string{"1", "999"}

	res, err := NewDBUpdate(DBUpdateOptions{Photos: st, Roster: st}).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.UpdatedBibs, []string{"1"}) || !reflect.DeepEqual(res.SkippedBibs, []string{"999"}) {
		t.Errorf("updated = %v, skipped = %v", res.UpdatedBibs, res.SkippedBibs)
	}
	if len(res.FailedBibs) != 0 {
		t.Errorf("failed = %+v", res.FailedBibs)
	}
	if r, _ := st.GetRunner(context.Background(), testOrg, testEvent, "999"); r != nil {
		t.Error("runner created for an unknown bib")
	}
}

func TestDBUpdate_SkipPaths(t *testing.T) {
	tests := []struct {
		name   string
		roster bool
		setup  func(*mock.MockStore)
		bibs   []string
		want   RosterStatus
	}{
		{name: "roster not configured", bibs: []string{"1"}, want: RosterNotConfigured},
		{name: "roster table missing", roster: true, setup: func(st *mock.MockStore) { st.RosterMissing = true }, bibs: []string{"1"}, want: RosterSkipped},
		{name: "no bibs", roster: true, want: RosterSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mock.NewMockStore()
			seedPhoto(st, photo.StatusFacesIndexed)
			if tt.setup != nil {
				tt.setup(st)
			}
			opts := DBUpdateOptions{Photos: st}
			if tt.roster {
				opts.Roster = st
			}
			in := testContext()
			in.DetectedBibs = tt.bibs

			res, err := NewDBUpdate(opts).Run(context.Background(), in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.RunnersTableStatus != tt.want {
				t.Errorf("status = %s, want %s", res.RunnersTableStatus, tt.want)
			}
			assertStatus(t, st, photo.StatusCompleted)
		})
	}
}

func TestDBUpdate_AlreadyCompleted(t *testing.T) {
	st := mock.NewMockStore()
	seedPhoto(st, photo.StatusCompleted, "1")
	seedRunners(t, st, "1")
	in := testContext()
	in.DetectedBibs = []string{"1"}

	res, err := NewDBUpdate(DBUpdateOptions{Photos: st, Roster: st}).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RunnersTableStatus != RosterSkipped || len(st.Updates()) != 0 {
		t.Errorf("status = %s with %d updates", res.RunnersTableStatus, len(st.Updates()))
	}
	if r, _ := st.GetRunner(context.Background(), testOrg, testEvent, "1"); len(r.PhotoKeys) != 0 {
		t.Error("runner touched for a completed photo")
	}
}

func TestDBUpdate_UnexpectedErrorsStillComplete(t *testing.T) {
	t.Run("unavailable roster table skips runner updates", func(t *testing.T) {
		st := mock.NewMockStore()
		seedPhoto(st, photo.StatusFacesIndexed)
		seedRunners(t, st, "1")
		st.TableExistsError = errors.New("AccessDenied")
		in := testContext()
		in.DetectedBibs = []string{"1"}

		res, err := NewDBUpdate(DBUpdateOptions{Photos: st, Roster: st}).Run(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.RunnersTableStatus != RosterSkipped {
			t.Errorf("status = %s, want %s", res.RunnersTableStatus, RosterSkipped)
		}
		if len(res.UpdatedBibs) != 0 || len(res.FailedBibs) != 0 {
			t.Errorf("updated = %v, failed = %v, want none", res.UpdatedBibs, res.FailedBibs)
		}
		assertStatus(t, st, photo.StatusCompleted)
	})

	t.Run("context canceled during loop", func(t *testing.T) {
		st := mock.NewMockStore()
		seedPhoto(st, photo.StatusFacesIndexed)
		seedRunners(t, st, "1")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		in := testContext()
		in.DetectedBibs = []string{"1"}

		_, err := NewDBUpdate(DBUpdateOptions{Photos: st, Roster: st}).Run(ctx, in)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		assertStatus(t, st, photo.StatusCompleted)
	})
}

func TestDBUpdate_CompleteFails(t *testing.T) {
	st := mock.NewMockStore()
	st.UpdateError = errors.New("throttled")

	_, err := NewDBUpdate(DBUpdateOptions{Photos: st}).Run(context.Background(), testContext())
	if err == nil {
		t.Fatal("expected error when the completion write fails")
	}
}

var _ store.Roster = (*mock.MockStore)(nil)
