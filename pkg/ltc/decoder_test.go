// ABOUTME: Tests for the streaming LTC decoder
// ABOUTME: Encodes known timecode, decodes it back and checks frames, offsets and robustness
package ltc

import (
	"errors"
	"testing"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/Sendspin/ltc-go/pkg/audio/resample"
)

type streamSpec struct {
	sampleRate float64
	fps        float64
	std        Standard
	flags      BGFlags
	start      Timecode
	frames     int
	reverse    bool
	userBits   uint32
}

// encodeStream renders consecutive frames (decrementing when reverse) and
// returns the samples with the timecode of every encoded frame
func encodeStream(t *testing.T, s streamSpec) ([]uint8, []Timecode) {
	t.Helper()

	enc, err := NewEncoder(s.sampleRate, s.fps, s.std, s.flags)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := enc.SetVolume(-18); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	enc.SetFilter(25)
	enc.SetTimecode(s.start)
	if s.userBits != 0 {
		enc.SetUserBits(s.userBits)
	}

	var samples []uint8
	var tcs []Timecode
	for i := 0; i < s.frames; i++ {
		tcs = append(tcs, enc.Timecode())
		if s.reverse {
			err = enc.EncodeReversedFrame()
		} else {
			err = enc.EncodeFrame()
		}
		if err != nil {
			t.Fatalf("encode frame %d: %v", i, err)
		}
		samples = append(samples, enc.Buffer(true)...)

		if s.reverse {
			_, err = enc.DecTimecode()
		} else {
			_, err = enc.IncTimecode()
		}
		if err != nil {
			t.Fatalf("advance frame %d: %v", i, err)
		}
	}
	if err := enc.EndEncode(); err != nil {
		t.Fatalf("EndEncode() error = %v", err)
	}
	samples = append(samples, enc.Buffer(true)...)
	return samples, tcs
}

func newTestDecoder(t *testing.T, samplesPerFrame int) *Decoder {
	t.Helper()
	dec, err := NewDecoder(DecoderConfig{SamplesPerFrame: samplesPerFrame, QueueSize: 256})
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	return dec
}

func drain(dec *Decoder) []FrameExt {
	var out []FrameExt
	for {
		fe, ok := dec.Read()
		if !ok {
			return out
		}
		out = append(out, fe)
	}
}

func TestNewDecoderConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DecoderConfig
		wantErr bool
	}{
		{"defaults", DecoderConfig{}, false},
		{"explicit", DecoderConfig{SamplesPerFrame: 1600, QueueSize: 8, Tolerance: 0.3, MaxBadCells: 4}, false},
		{"negative samples per frame", DecoderConfig{SamplesPerFrame: -1}, true},
		{"negative queue", DecoderConfig{QueueSize: -1}, true},
		{"tolerance too large", DecoderConfig{Tolerance: 1}, true},
		{"negative tolerance", DecoderConfig{Tolerance: -0.1}, true},
		{"negative bad cells", DecoderConfig{MaxBadCells: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := NewDecoder(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDecoder() unexpected error = %v", err)
			}
			if dec.QueueLength() != 0 {
				t.Errorf("expected empty queue, got %d", dec.QueueLength())
			}
		})
	}

	dec, _ := NewDecoder(DecoderConfig{})
	if dec.Period() != 24 {
		t.Errorf("expected default period 24, got %v", dec.Period())
	}
}

func TestDecodeSingleFrame(t *testing.T) {
	tc := Timecode{Timezone: "+0000", Hours: 10, Minutes: 20, Seconds: 30, Frame: 12}
	samples, _ := encodeStream(t, streamSpec{sampleRate: 48000, fps: 25, std: TV625_50, start: tc, frames: 1})

	dec := newTestDecoder(t, 1920)
	dec.Write(samples, 0)

	frames := drain(dec)
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 frame, got %d", len(frames))
	}
	fe := frames[0]
	if got := FrameToTimecode(fe.Frame, 0); got != tc {
		t.Errorf("expected %v, got %v", tc, got)
	}
	if fe.Reverse {
		t.Error("expected forward frame")
	}
	if fe.OffStart != 0 || fe.OffEnd != 1919 {
		t.Errorf("expected offsets 0-1919, got %d-%d", fe.OffStart, fe.OffEnd)
	}
	if fe.OffStart >= fe.OffEnd {
		t.Errorf("off_start %d not before off_end %d", fe.OffStart, fe.OffEnd)
	}
	if fe.Frame.Sync() != SyncWord {
		t.Errorf("expected sync word, got %04X", fe.Frame.Sync())
	}
	if fe.SampleMin != 112 || fe.SampleMax != 144 {
		t.Errorf("expected envelope 112-144, got %d-%d", fe.SampleMin, fe.SampleMax)
	}
	if fe.Volume > -17 || fe.Volume < -19 {
		t.Errorf("expected volume near -18 dBFS, got %.2f", fe.Volume)
	}
	for i, w := range fe.BiphaseTics {
		if w < 23 || w > 25 {
			t.Errorf("bit %d: expected cell width 24, got %v", i, w)
		}
	}
}

func TestDecodeTwoSecondsWithDate(t *testing.T) {
	tests := []struct {
		name  string
		start Timecode
	}{
		{"from 03:01:10:00", Timecode{Timezone: "+0100", Years: 3, Months: 1, Days: 10, Hours: 3, Minutes: 1, Seconds: 10}},
		{"across minute", Timecode{Timezone: "+0100", Years: 3, Months: 1, Days: 10, Hours: 3, Minutes: 1, Seconds: 59}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, tcs := encodeStream(t, streamSpec{
				sampleRate: 48000, fps: 25, std: TV625_50, flags: UseDate, start: tt.start, frames: 50,
			})

			dec := newTestDecoder(t, 1920)
			dec.Write(samples, 0)
			frames := drain(dec)

			if len(frames) != 50 {
				t.Fatalf("expected 50 frames, got %d", len(frames))
			}
			for i, fe := range frames {
				got := FrameToTimecode(fe.Frame, UseDate)
				if got != tcs[i] {
					t.Errorf("frame %d: expected %+v, got %+v", i, tcs[i], got)
				}
				if got.Frame != i%25 {
					t.Errorf("frame %d: expected frame number %d, got %d", i, i%25, got.Frame)
				}
				if fe.OffStart != int64(i)*1920 || fe.OffEnd != int64(i+1)*1920-1 {
					t.Errorf("frame %d: unexpected offsets %d-%d", i, fe.OffStart, fe.OffEnd)
				}
			}

			if tt.start.Seconds == 59 {
				rolled := FrameToTimecode(frames[25].Frame, UseDate)
				if rolled.String() != "03:02:00:00" {
					t.Errorf("expected rollover to 03:02:00:00, got %s", rolled.String())
				}
			} else {
				last := FrameToTimecode(frames[49].Frame, UseDate)
				if last.String() != "03:01:11:24" {
					t.Errorf("expected last frame 03:01:11:24, got %s", last.String())
				}
			}
		})
	}
}

func TestDecodeStandards(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		fps        float64
		std        Standard
		flags      BGFlags
		seed       int
	}{
		{"44.1k 30fps", 44100, 30, TV525_60, UseParity, 1470},
		{"48k 29.97 drop-frame", 48000, 29.97, TV525_60, UseParity, 1602},
		{"96k film", 96000, 24, TVFilm24, 0, 4000},
		{"48k 1125/60", 48000, 30, TV1125_60, ClockTime, 1600},
		{"default seed at 44.1k 30fps", 44100, 30, TV525_60, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := Timecode{Timezone: "+0000", Hours: 1, Minutes: 9, Seconds: 59, Frame: 20}
			samples, tcs := encodeStream(t, streamSpec{
				sampleRate: tt.sampleRate, fps: tt.fps, std: tt.std, flags: tt.flags, start: start, frames: 20,
			})

			dec := newTestDecoder(t, tt.seed)
			dec.Write(samples, 0)
			frames := drain(dec)

			if len(frames) != len(tcs) {
				t.Fatalf("expected %d frames, got %d", len(tcs), len(frames))
			}
			for i, fe := range frames {
				if got := FrameToTimecode(fe.Frame, 0); got != tcs[i] {
					t.Errorf("frame %d: expected %v, got %v", i, tcs[i], got)
				}
			}
		})
	}
}

func TestDecodeReverse(t *testing.T) {
	start := Timecode{Timezone: "+0000", Hours: 0, Minutes: 0, Seconds: 1, Frame: 3}
	samples, tcs := encodeStream(t, streamSpec{
		sampleRate: 48000, fps: 25, std: TV625_50, start: start, frames: 10, reverse: true,
	})

	dec := newTestDecoder(t, 1920)
	dec.Write(samples, 0)
	frames := drain(dec)

	// the last reversed frame has no following sync word
	if len(frames) != 9 {
		t.Fatalf("expected 9 frames, got %d", len(frames))
	}
	for i, fe := range frames {
		if !fe.Reverse {
			t.Errorf("frame %d: expected reverse flag", i)
		}
		if got := FrameToTimecode(fe.Frame, 0); got != tcs[i] {
			t.Errorf("frame %d: expected %v, got %v", i, tcs[i], got)
		}
		if fe.Frame.Sync() != SyncWord {
			t.Errorf("frame %d: sync bytes not restored", i)
		}
		if fe.OffStart != int64(i)*1920 || fe.OffEnd != int64(i+1)*1920-1 {
			t.Errorf("frame %d: unexpected offsets %d-%d", i, fe.OffStart, fe.OffEnd)
		}
	}
	if got := FrameToTimecode(frames[3].Frame, 0); got.String() != "00:00:01:00" {
		t.Errorf("expected 00:00:01:00, got %s", got.String())
	}
	if got := FrameToTimecode(frames[4].Frame, 0); got.String() != "00:00:00:24" {
		t.Errorf("expected 00:00:00:24, got %s", got.String())
	}
	if dec.Stats().Reverse != 9 {
		t.Errorf("expected 9 reverse frames in stats, got %d", dec.Stats().Reverse)
	}
}

func TestDecodeNoise(t *testing.T) {
	start := Timecode{Timezone: "+0000", Hours: 5}
	samples, tcs := encodeStream(t, streamSpec{sampleRate: 48000, fps: 25, std: TV625_50, start: start, frames: 50})

	// flip one sample in the middle of frame 10
	glitch := 10*1920 + 20*24 + 6
	samples[glitch] = uint8(256 - int(samples[glitch]))

	dec := newTestDecoder(t, 1920)
	dec.Write(samples, 0)
	frames := drain(dec)

	if len(frames) < 48 {
		t.Fatalf("expected at least 48 frames, got %d", len(frames))
	}

	decoded := make(map[Timecode]bool)
	for _, fe := range frames {
		tc := FrameToTimecode(fe.Frame, 0)
		decoded[tc] = true
	}
	for i, tc := range tcs {
		if i == 10 || i == 11 {
			continue
		}
		if !decoded[tc] {
			t.Errorf("frame %d (%v) not decoded", i, tc)
		}
	}

	known := make(map[Timecode]bool)
	for _, tc := range tcs {
		known[tc] = true
	}
	for tc := range decoded {
		if !known[tc] {
			t.Errorf("decoded corrupt timecode %v", tc)
		}
	}
	if dec.Stats().NoisyCells == 0 {
		t.Error("expected noisy cells to be counted")
	}
}

func TestDecodeDrift(t *testing.T) {
	tests := []struct {
		name    string
		outRate int
	}{
		{"8 percent slow", 51840},
		{"8 percent fast", 44160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := Timecode{Timezone: "+0000", Hours: 2, Minutes: 30}
			samples, tcs := encodeStream(t, streamSpec{sampleRate: 48000, fps: 25, std: TV625_50, start: start, frames: 25})

			in := make([]int32, len(samples))
			for i, s := range samples {
				in[i] = audio.SampleFromUint8(s)
			}
			r := resample.New(48000, tt.outRate, 1)
			out := make([]int32, r.OutputSamplesNeeded(len(in))+16)
			n := r.Resample(in, out)

			// decoder still expects 1920 samples per frame
			dec := newTestDecoder(t, 1920)
			dec.WriteInt32(out[:n], 0)
			frames := drain(dec)

			if len(frames) != len(tcs) {
				t.Fatalf("expected %d frames, got %d", len(tcs), len(frames))
			}
			for i, fe := range frames {
				if got := FrameToTimecode(fe.Frame, 0); got != tcs[i] {
					t.Errorf("frame %d: expected %v, got %v", i, tcs[i], got)
				}
			}

			want := 24 * float64(tt.outRate) / 48000
			if p := dec.Period(); p < want-1 || p > want+1 {
				t.Errorf("expected period near %.2f, got %.2f", want, p)
			}
		})
	}
}

func TestDecodeInputFormats(t *testing.T) {
	start := Timecode{Timezone: "+0000", Hours: 12, Minutes: 34, Seconds: 56}
	samples, tcs := encodeStream(t, streamSpec{sampleRate: 48000, fps: 25, std: TV625_50, start: start, frames: 5})

	reference := newTestDecoder(t, 1920)
	reference.Write(samples, 0)
	want := drain(reference)
	if len(want) != len(tcs) {
		t.Fatalf("expected %d reference frames, got %d", len(tcs), len(want))
	}

	tests := []struct {
		name  string
		write func(d *Decoder)
	}{
		{"int16", func(d *Decoder) {
			buf := make([]int16, len(samples))
			for i, s := range samples {
				buf[i] = int16(int(s)-128) << 8
			}
			d.WriteInt16(buf, 0)
		}},
		{"uint16", func(d *Decoder) {
			buf := make([]uint16, len(samples))
			for i, s := range samples {
				buf[i] = uint16(s) << 8
			}
			d.WriteUint16(buf, 0)
		}},
		{"int32", func(d *Decoder) {
			buf := make([]int32, len(samples))
			for i, s := range samples {
				buf[i] = audio.SampleFromUint8(s)
			}
			d.WriteInt32(buf, 0)
		}},
		{"float64", func(d *Decoder) {
			buf := make([]float64, len(samples))
			for i, s := range samples {
				buf[i] = (float64(s) - 128) / 127
			}
			d.WriteFloat64(buf, 0)
		}},
		{"float32", func(d *Decoder) {
			buf := make([]float32, len(samples))
			for i, s := range samples {
				buf[i] = float32(int(s)-128) / 127
			}
			d.WriteFloat32(buf, 0)
		}},
		{"small chunks", func(d *Decoder) {
			for off := 0; off < len(samples); off += 7 {
				end := min(off+7, len(samples))
				d.Write(samples[off:end], int64(off))
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := newTestDecoder(t, 1920)
			tt.write(dec)
			got := drain(dec)

			if len(got) != len(want) {
				t.Fatalf("expected %d frames, got %d", len(want), len(got))
			}
			for i := range got {
				if got[i].Frame != want[i].Frame {
					t.Errorf("frame %d: expected %s, got %s", i, want[i].Frame, got[i].Frame)
				}
				if got[i].OffStart != want[i].OffStart || got[i].OffEnd != want[i].OffEnd {
					t.Errorf("frame %d: expected offsets %d-%d, got %d-%d",
						i, want[i].OffStart, want[i].OffEnd, got[i].OffStart, got[i].OffEnd)
				}
			}
		})
	}
}

func TestDecodePolarity(t *testing.T) {
	start := Timecode{Timezone: "+0000", Minutes: 42}
	samples, tcs := encodeStream(t, streamSpec{
		sampleRate: 48000, fps: 25, std: TV625_50, flags: ReversePhase, start: start, frames: 5,
	})
	if samples[0] >= 128 {
		t.Fatalf("expected inverted stream to start low, got %d", samples[0])
	}

	dec := newTestDecoder(t, 1920)
	dec.Write(samples, 0)
	frames := drain(dec)

	if len(frames) != len(tcs) {
		t.Fatalf("expected %d frames, got %d", len(tcs), len(frames))
	}
	for i, fe := range frames {
		if got := FrameToTimecode(fe.Frame, 0); got != tcs[i] {
			t.Errorf("frame %d: expected %v, got %v", i, tcs[i], got)
		}
	}
}

func TestDecodePositions(t *testing.T) {
	start := Timecode{Timezone: "+0000", Seconds: 5}
	samples, _ := encodeStream(t, streamSpec{sampleRate: 48000, fps: 25, std: TV625_50, start: start, frames: 2})

	silence := make([]uint8, 1000)
	for i := range silence {
		silence[i] = 128
	}

	dec := newTestDecoder(t, 1920)
	dec.Write(silence, 5000)
	dec.Write(samples, 6000)
	frames := drain(dec)

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].OffStart != 6000 || frames[0].OffEnd != 7919 {
		t.Errorf("expected offsets 6000-7919, got %d-%d", frames[0].OffStart, frames[0].OffEnd)
	}
	if frames[1].OffStart != 7920 {
		t.Errorf("expected second frame at 7920, got %d", frames[1].OffStart)
	}
}

func TestDecodeUserBits(t *testing.T) {
	start := Timecode{Timezone: "+0000", Hours: 8}
	samples, _ := encodeStream(t, streamSpec{
		sampleRate: 48000, fps: 25, std: TV625_50, start: start, frames: 3, userBits: 0xCAFEF00D,
	})

	dec := newTestDecoder(t, 1920)
	dec.Write(samples, 0)
	frames := drain(dec)

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, fe := range frames {
		if fe.Frame.UserBits() != 0xCAFEF00D {
			t.Errorf("frame %d: expected user bits CAFEF00D, got %08X", i, fe.Frame.UserBits())
		}
	}
}

func TestDecodeReseed(t *testing.T) {
	start := Timecode{Timezone: "+0000", Hours: 1}
	samples, tcs := encodeStream(t, streamSpec{sampleRate: 192000, fps: 25, std: TV625_50, start: start, frames: 10})

	// seeded for 48k: every cell looks like noise until the estimator reseeds
	dec := newTestDecoder(t, 1920)
	dec.Write(samples, 0)
	frames := drain(dec)

	if len(frames) < len(tcs)-2 {
		t.Fatalf("expected at least %d frames, got %d", len(tcs)-2, len(frames))
	}
	last := frames[len(frames)-1]
	if got := FrameToTimecode(last.Frame, 0); got != tcs[len(tcs)-1] {
		t.Errorf("expected last frame %v, got %v", tcs[len(tcs)-1], got)
	}
	if dec.Stats().SyncLosses == 0 {
		t.Error("expected at least one sync loss")
	}
	if p := dec.Period(); p < 95 || p > 97 {
		t.Errorf("expected period near 96, got %.2f", p)
	}
}

func TestDecoderQueue(t *testing.T) {
	start := Timecode{Timezone: "+0000"}
	samples, tcs := encodeStream(t, streamSpec{sampleRate: 48000, fps: 25, std: TV625_50, start: start, frames: 10})

	dec, err := NewDecoder(DecoderConfig{SamplesPerFrame: 1920, QueueSize: 4})
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	dec.Write(samples, 0)

	if dec.QueueLength() != 4 {
		t.Fatalf("expected 4 queued frames, got %d", dec.QueueLength())
	}
	stats := dec.Stats()
	if stats.Frames != 10 || stats.Dropped != 6 {
		t.Errorf("expected 10 frames and 6 dropped, got %+v", stats)
	}

	frames := drain(dec)
	for i, fe := range frames {
		if got := FrameToTimecode(fe.Frame, 0); got != tcs[6+i] {
			t.Errorf("frame %d: expected %v, got %v", i, tcs[6+i], got)
		}
	}

	dec.Write(samples, int64(len(samples)))
	if dec.QueueLength() == 0 {
		t.Fatal("expected frames after second write")
	}
	dec.QueueFlush()
	if dec.QueueLength() != 0 {
		t.Errorf("expected empty queue after flush, got %d", dec.QueueLength())
	}
}
