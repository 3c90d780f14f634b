// ABOUTME: Frame log queries of the ltcdecode command
// ABOUTME: Lists logged frames or finds where a timecode occurred in an existing database
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sendspin/ltc-go/internal/store"
)

// runQuery prints logged frames of src (every source when empty). With
// find set only frames carrying that timecode are printed, otherwise the
// first limit frames in stream order.
func runQuery(repo *store.FrameRepository, w io.Writer, src, find string, limit int) error {
	var (
		records []store.FrameRecord
		err     error
	)
	if find != "" {
		// printed drop-frame timecodes use '.', stored ones ';'
		records, err = repo.FindTimecode(src, strings.Replace(find, ".", ";", 1))
	} else {
		records, err = repo.List(src, limit)
	}
	if err != nil {
		return fmt.Errorf("querying frame log: %w", err)
	}

	for _, rec := range records {
		fmt.Fprintln(w, FormatRecord(rec))
	}

	total, err := repo.Count(src)
	if err != nil {
		return fmt.Errorf("counting frames: %w", err)
	}
	fmt.Fprintf(w, "%d of %d logged frames\n", len(records), total)
	return nil
}

// FormatRecord renders a logged frame in the layout of FormatFrame,
// followed by the source it was decoded from
func FormatRecord(rec store.FrameRecord) string {
	date, tz := rec.Date, rec.Timezone
	if date == "" {
		date = "0000-00-00"
	}
	if tz == "" {
		tz = "+0000"
	}

	tc := []byte(rec.Timecode)
	if rec.DropFrame && len(tc) == 11 {
		tc[8] = '.'
	}

	reverse := ""
	if rec.Reverse {
		reverse = "  R"
	}

	return fmt.Sprintf("%s %s %s | %8d %8d%s  %s",
		date, tz, tc, rec.OffStart, rec.OffEnd, reverse, rec.Source)
}
