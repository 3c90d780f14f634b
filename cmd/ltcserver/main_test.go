// ABOUTME: Tests for the server command helpers
// ABOUTME: Tests wall clock timecodes, signal quality mapping and the frame logger
package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Sendspin/ltc-go/internal/chase"
	"github.com/Sendspin/ltc-go/internal/store"
	"github.com/Sendspin/ltc-go/pkg/ltc"
	"github.com/Sendspin/ltc-go/pkg/protocol"
)

func TestWallClockTimecode(t *testing.T) {
	zone := time.FixedZone("CET", 3600)
	now := time.Date(2024, 5, 17, 13, 45, 30, 520_000_000, zone)

	tc := wallClockTimecode(now, 25)
	want := ltc.Timecode{Timezone: "+0100", Years: 24, Months: 5, Days: 17, Hours: 13, Minutes: 45, Seconds: 30, Frame: 13}
	if tc != want {
		t.Errorf("expected %+v, got %+v", want, tc)
	}
}

func TestQualityOf(t *testing.T) {
	tests := []struct {
		name  string
		state protocol.SignalState
		want  chase.Quality
	}{
		{"locked", protocol.SignalState{Locked: true, Frames: 10}, chase.QualityGood},
		{"seen frames", protocol.SignalState{Frames: 3}, chase.QualityDegraded},
		{"nothing", protocol.SignalState{}, chase.QualityLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := qualityOf(tt.state); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFrameLogger(t *testing.T) {
	db, err := store.NewDB(store.Config{Path: filepath.Join(t.TempDir(), "frames.db")}, nil)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer db.Close()

	logger := newFrameLogger(db.Frames(), "deck", 0)
	for i := 0; i < 300; i++ {
		logger.Add(protocol.TimecodeFrame{Timecode: "00:00:00:00", OffStart: int64(i)})
	}
	logger.Close()

	count, err := db.Frames().Count("deck")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 300 {
		t.Errorf("expected 300 logged frames, got %d", count)
	}
}

func TestFrameLoggerRetain(t *testing.T) {
	db, err := store.NewDB(store.Config{Path: filepath.Join(t.TempDir(), "frames.db")}, nil)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer db.Close()

	repo := db.Frames()
	frames := []protocol.TimecodeFrame{
		{Timecode: "00:00:00:00"},
		{Timecode: "00:00:00:01"},
	}
	if err := repo.RecordBatch("deck", frames); err != nil {
		t.Fatalf("RecordBatch() error = %v", err)
	}

	tests := []struct {
		name   string
		retain time.Duration
		want   int64
	}{
		{"keep all", 0, 2},
		{"within window", time.Hour, 2},
		{"expired", time.Millisecond, 0},
	}

	time.Sleep(10 * time.Millisecond)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &frameLogger{repo: repo, source: "deck", retain: tt.retain}
			logger.prune()

			count, err := repo.Count("deck")
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != tt.want {
				t.Errorf("expected %d logged frames, got %d", tt.want, count)
			}
		})
	}
}
