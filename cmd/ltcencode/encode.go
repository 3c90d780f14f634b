// ABOUTME: Encoding loop of the ltcencode command
// ABOUTME: Drives the LTC encoder frame by frame and writes PCM through the sample writer
package main

import (
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/Sendspin/ltc-go/pkg/audio/encode"
	"github.com/Sendspin/ltc-go/pkg/ltc"
)

// Config describes one encoding run
type Config struct {
	Path       string
	SampleRate float64
	FPS        float64
	Duration   float64 // seconds
	Bits       int
	Volume     float64
	Filter     float64
	Start      ltc.Timecode
	UseDate    bool
	DropFrame  bool
	Reverse    bool
	Debug      bool // log every frame and hour/day wraps
}

// Encode writes Duration seconds of LTC to w and returns the number of
// samples written. play, when set, receives every block of unsigned 8-bit
// levels as well.
func Encode(cfg Config, w io.Writer, play func([]uint8) error) (int, error) {
	if fpsLimit := int(math.Ceil(cfg.FPS)); cfg.Start.Frame >= fpsLimit {
		return 0, fmt.Errorf("start frame %d out of range at %g fps", cfg.Start.Frame, cfg.FPS)
	}

	std := ltc.StandardForFPS(cfg.FPS)
	flags := ltc.UseParity
	if cfg.UseDate {
		flags |= ltc.UseDate
	}
	if cfg.DropFrame {
		flags |= ltc.DropFrame
	}

	enc, err := ltc.NewEncoder(cfg.SampleRate, cfg.FPS, std, flags)
	if err != nil {
		return 0, err
	}
	if err := enc.SetVolume(cfg.Volume); err != nil {
		return 0, err
	}
	enc.SetFilter(cfg.Filter)
	enc.SetTimecode(cfg.Start)

	pcm, err := encode.NewPCM(audio.Format{
		Codec:      "pcm",
		SampleRate: int(math.Round(cfg.SampleRate)),
		Channels:   1,
		BitDepth:   cfg.Bits,
	})
	if err != nil {
		return 0, err
	}
	defer pcm.Close()

	total := 0
	var samples []int32

	// emit drains the encoder backlog into w and the player
	emit := func() error {
		levels := enc.Buffer(true)
		samples = samples[:0]
		for _, l := range levels {
			samples = append(samples, audio.SampleFromUint8(l))
		}

		data, err := pcm.Encode(samples)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing samples: %w", err)
		}
		if play != nil {
			if err := play(levels); err != nil {
				return fmt.Errorf("playback: %w", err)
			}
		}
		total += len(samples)
		return nil
	}

	frames := int(cfg.Duration * cfg.FPS)
	for i := 0; i < frames; i++ {
		if cfg.Debug {
			log.Printf("frame %d: %s", i, enc.Frame().String())
		}

		if cfg.Reverse {
			err = enc.EncodeReversedFrame()
		} else {
			err = enc.EncodeFrame()
		}
		if err != nil {
			return total, fmt.Errorf("frame %d: %w", i, err)
		}
		if err := emit(); err != nil {
			return total, err
		}

		var wrap ltc.Wrap
		if cfg.Reverse {
			wrap, err = enc.DecTimecode()
		} else {
			wrap, err = enc.IncTimecode()
		}
		if err != nil {
			return total, err
		}
		if cfg.Debug && wrap >= ltc.WrapHours {
			log.Printf("frame %d: %s wrap", i, wrap)
		}
	}

	// terminate the last bit cell so the final frame is decodable
	if err := enc.EndEncode(); err != nil {
		return total, err
	}
	if err := emit(); err != nil {
		return total, err
	}

	return total, nil
}

// ParseTimecode parses HH:MM:SS:FF. A ';' or '.' before the frames is
// accepted for drop-frame notation.
func ParseTimecode(s string) (ltc.Timecode, error) {
	norm := strings.NewReplacer(";", ":", ".", ":").Replace(s)
	parts := strings.Split(norm, ":")
	if len(parts) != 4 {
		return ltc.Timecode{}, fmt.Errorf("expected HH:MM:SS:FF, got %q", s)
	}

	limits := []int{24, 60, 60, 30}
	values := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v >= limits[i] {
			return ltc.Timecode{}, fmt.Errorf("invalid field %q in %q", p, s)
		}
		values[i] = v
	}

	return ltc.Timecode{
		Timezone: "+0000",
		Hours:    values[0],
		Minutes:  values[1],
		Seconds:  values[2],
		Frame:    values[3],
	}, nil
}

// ParseDate parses YY-MM-DD into tc
func ParseDate(s string, tc *ltc.Timecode) error {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return fmt.Errorf("expected YY-MM-DD, got %q", s)
	}

	limits := [][2]int{{0, 99}, {1, 12}, {1, 31}}
	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < limits[i][0] || v > limits[i][1] {
			return fmt.Errorf("invalid field %q in %q", p, s)
		}
		values[i] = v
	}

	tc.Years, tc.Months, tc.Days = values[0], values[1], values[2]
	return nil
}
