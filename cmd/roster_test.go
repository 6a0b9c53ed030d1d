package cmd

import (
	"strings"
	"testing"

	"github.com/kozaktomas/snaprace/internal/config"
	"github.com/kozaktomas/snaprace/internal/photo"
)

func TestReadRoster(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []photo.Runner
		wantErr bool
	}{
		{
			name:  "header and padded bibs",
			input: "bib,name,finish_time_sec\n0042,Jane Doe,3600\n7,John,\n",
			want: []photo.Runner{
				{BibNumber: "42", Name: "Jane Doe", FinishTimeSec: 3600},
				{BibNumber: "7", Name: "John"},
			},
		},
		{
			name:  "bib only",
			input: "101\n102\n",
			want:  []photo.Runner{{BibNumber: "101"}, {BibNumber: "102"}},
		},
		{name: "non numeric bib", input: "A12,Jane,1\n", wantErr: true},
		{name: "bad finish time", input: "12,Jane,fast\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readRoster(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readRoster() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d runners, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].BibNumber != tt.want[i].BibNumber || got[i].Name != tt.want[i].Name || got[i].FinishTimeSec != tt.want[i].FinishTimeSec {
					t.Errorf("runner %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"#", "Photo"}, [][]string{{"1", "a.jpg"}, {"2"}}, []columnAlignment{alignRight})
	// the rounded style upper-cases headers
	for _, want := range []string{"PHOTO", "a.jpg"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}

func TestVersionRows(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Backend = config.BackendSQLite
	cfg.Store.SQLitePath = "/tmp/race.db"
	cfg.Tables.Photos = "event-photos"

	rows := versionRows(cfg, "go1.26")
	got := make(map[string]string, len(rows))
	for _, r := range rows {
		got[r[0]] = r[1]
	}

	want := map[string]string{
		"go":                       "go1.26",
		"region":                   "us-east-1",
		"store":                    "sqlite /tmp/race.db",
		config.EnvPhotosTable:      "event-photos",
		config.EnvBibIndexTable:    "(not set)",
		config.EnvRunnersTable:     "(disabled)",
		config.EnvCollectionPrefix: "snaprace",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
