// ABOUTME: Tests for frame log queries
// ABOUTME: Tests record formatting, listing and timecode lookup against a temp database
package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sendspin/ltc-go/internal/store"
	"github.com/Sendspin/ltc-go/pkg/protocol"
)

func TestFormatRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  store.FrameRecord
		want string
	}{
		{
			name: "dated",
			rec:  store.FrameRecord{Source: "deck", Timecode: "03:01:10:00", Date: "2003-01-10", Timezone: "+0100", OffStart: 0, OffEnd: 1919},
			want: "2003-01-10 +0100 03:01:10:00 |        0     1919  deck",
		},
		{
			name: "drop-frame reverse",
			rec:  store.FrameRecord{Source: "tape", Timecode: "01:10:00;02", DropFrame: true, Reverse: true, OffStart: 100, OffEnd: 1700},
			want: "0000-00-00 +0000 01:10:00.02 |      100     1700  R  tape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRecord(tt.rec); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunQuery(t *testing.T) {
	db, err := store.NewDB(store.Config{Path: filepath.Join(t.TempDir(), "frames.db")}, nil)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer db.Close()

	repo := db.Frames()
	frames := []protocol.TimecodeFrame{
		{Timecode: "10:00:00:00", OffStart: 0, OffEnd: 1919},
		{Timecode: "10:00:00:01", OffStart: 1920, OffEnd: 3839},
		{Timecode: "01:10:00;02", DropFrame: true, OffStart: 3840, OffEnd: 5759},
	}
	if err := repo.RecordBatch("deck", frames); err != nil {
		t.Fatalf("RecordBatch() error = %v", err)
	}
	if err := repo.Record("other", protocol.TimecodeFrame{Timecode: "10:00:00:01"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	tests := []struct {
		name      string
		src       string
		find      string
		limit     int
		wantLines int
		summary   string
	}{
		{"list source", "deck", "", 2, 2, "2 of 3 logged frames"},
		{"list all", "", "", 10, 4, "4 of 4 logged frames"},
		{"find in source", "deck", "10:00:00:01", 0, 1, "1 of 3 logged frames"},
		{"find everywhere", "", "10:00:00:01", 0, 2, "2 of 4 logged frames"},
		{"find drop-frame", "deck", "01:10:00.02", 0, 1, "1 of 3 logged frames"},
		{"no match", "deck", "23:00:00:00", 0, 0, "0 of 3 logged frames"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runQuery(repo, &out, tt.src, tt.find, tt.limit); err != nil {
				t.Fatalf("runQuery() error = %v", err)
			}

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			if got := lines[len(lines)-1]; got != tt.summary {
				t.Errorf("expected summary %q, got %q", tt.summary, got)
			}
			if got := len(lines) - 1; got != tt.wantLines {
				t.Errorf("expected %d frame lines, got %d", tt.wantLines, got)
			}
			if tt.find != "" && tt.wantLines > 0 && !strings.Contains(lines[0], strings.Replace(tt.find, ";", ".", 1)) {
				t.Errorf("unexpected match %q", lines[0])
			}
		})
	}
}
