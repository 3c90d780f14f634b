// ABOUTME: Decode loop of the ltcdecode command
// ABOUTME: Feeds samples to the decoder and fans frames out to stdout, the frame log and the monitor
package main

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Sendspin/ltc-go/internal/chase"
	"github.com/Sendspin/ltc-go/internal/source"
	"github.com/Sendspin/ltc-go/internal/store"
	"github.com/Sendspin/ltc-go/internal/ui"
	"github.com/Sendspin/ltc-go/pkg/ltc"
	"github.com/Sendspin/ltc-go/pkg/protocol"
)

// logBatch is how many frames are written to the frame log at once
const logBatch = 250

type decodeRun struct {
	src     source.Source
	name    string
	decoder *ltc.Decoder
	tracker *chase.Tracker
	flags   ltc.BGFlags
	channel int

	out     io.Writer
	frames  *store.FrameRepository
	monitor *ui.Monitor

	pending []protocol.TimecodeFrame
	total   int64
	decoded uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// Stop ends run after the current block
func (d *decodeRun) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

func (d *decodeRun) run() error {
	ch := d.src.Channels()
	if ch < 1 {
		ch = 1
	}
	buf := make([]int32, bufferSize*ch)
	mono := make([]int32, bufferSize)

	for {
		select {
		case <-d.stop:
			return d.flush()
		default:
		}

		n, err := d.src.Read(buf)
		if n > 0 {
			m := source.SelectChannel(mono, buf[:n], ch, d.channel)
			if werr := d.process(mono[:m]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return d.flush()
		}
		if err != nil {
			d.flush()
			return fmt.Errorf("reading %s: %w", d.name, err)
		}
	}
}

func (d *decodeRun) process(samples []int32) error {
	d.decoder.WriteInt32(samples, d.total)
	d.total += int64(len(samples))

	for {
		fe, ok := d.decoder.Read()
		if !ok {
			break
		}
		d.decoded++
		d.tracker.Observe(fe)

		if d.out != nil {
			fmt.Fprintln(d.out, FormatFrame(fe, d.flags))
		}

		if d.frames == nil && d.monitor == nil {
			continue
		}

		msg := protocol.NewTimecodeFrame(fe, d.flags, d.tracker.Speed())
		if d.monitor != nil {
			d.monitor.Frame(ui.FrameMsg(msg))
		}
		if d.frames != nil {
			d.pending = append(d.pending, msg)
			if len(d.pending) >= logBatch {
				if err := d.flush(); err != nil {
					return err
				}
			}
		}
	}

	if d.monitor != nil {
		quality := d.tracker.CheckQuality(d.total)
		stats := d.decoder.Stats()
		d.monitor.Status(ui.StatusMsg{
			Quality:   &quality,
			Speed:     d.tracker.Speed(),
			Frames:    stats.Frames,
			Discarded: stats.Discarded,
			Dropped:   stats.Dropped,
		})
	}
	return nil
}

// flush writes pending frames to the frame log
func (d *decodeRun) flush() error {
	if d.frames == nil || len(d.pending) == 0 {
		return nil
	}
	if err := d.frames.RecordBatch(d.name, d.pending); err != nil {
		log.Printf("Frame log error: %v", err)
		return err
	}
	d.pending = d.pending[:0]
	return nil
}

// FormatFrame renders a frame as
// "YYYY-MM-DD TZ HH:MM:SS:FF | off_start off_end", with '.' before the
// frames when the drop-frame bit is set and "  R" for reverse frames.
// Without UseDate the date reads 0000-00-00.
func FormatFrame(fe ltc.FrameExt, flags ltc.BGFlags) string {
	tc := ltc.FrameToTimecode(fe.Frame, flags)

	date := "0000-00-00"
	if flags.Has(ltc.UseDate) {
		date = tc.Date()
	}

	sep := ':'
	if fe.Frame.DropFrame() {
		sep = '.'
	}

	reverse := ""
	if fe.Reverse {
		reverse = "  R"
	}

	return fmt.Sprintf("%s %s %02d:%02d:%02d%c%02d | %8d %8d%s",
		date, tc.Timezone, tc.Hours, tc.Minutes, tc.Seconds, sep, tc.Frame,
		fe.OffStart, fe.OffEnd, reverse)
}
