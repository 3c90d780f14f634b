// ABOUTME: Entry point for the LTC encoder command
// ABOUTME: Writes an LTC signal to a raw PCM file and optionally plays it
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/Sendspin/ltc-go/internal/version"
	"github.com/Sendspin/ltc-go/pkg/audio/output"
	"github.com/Sendspin/ltc-go/pkg/ltc"
)

var (
	bits    = flag.Int("bits", 8, "Sample width: 8 (unsigned), 16 or 24 (signed little-endian)")
	volume  = flag.Float64("volume", -18, "Signal level in dBFS")
	filter  = flag.Float64("filter", 25, "Rise time in microseconds, 0 for square edges")
	start   = flag.String("start", "00:00:00:01", "Start timecode HH:MM:SS:FF")
	date    = flag.String("date", "03-01-10", "Date YY-MM-DD stored in the user bits, empty for none")
	tz      = flag.String("tz", "+0100", "Timezone +HHMM stored with the date")
	reverse = flag.Bool("reverse", false, "Count down and encode frames backwards")
	drop    = flag.Bool("drop-frame", false, "Drop-frame numbering at 29.97 or 30 fps")
	play    = flag.Bool("play", false, "Also play the signal on the default audio output")
	debug   = flag.Bool("debug", false, "Enable debug logging")
)

func usage() {
	fmt.Fprintf(os.Stderr, "ltcencode - encode LTC to a file\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <filename> [sample rate [frame rate [duration in s]]]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "default-values:\n")
	fmt.Fprintf(os.Stderr, " sample rate: 48000.0 [SPS], frame rate: 25.0 [fps], duration: 2.0 [sec]\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cfg := Config{
		Path:       flag.Arg(0),
		SampleRate: 48000,
		FPS:        25,
		Duration:   2,
		Bits:       *bits,
		Volume:     *volume,
		Filter:     *filter,
		Reverse:    *reverse,
		DropFrame:  *drop,
		Debug:      *debug,
	}

	positional := []*float64{&cfg.SampleRate, &cfg.FPS, &cfg.Duration}
	for i, dst := range positional {
		if flag.NArg() <= i+1 {
			break
		}
		v, err := strconv.ParseFloat(flag.Arg(i+1), 64)
		if err != nil {
			log.Fatalf("invalid argument %q: %v", flag.Arg(i+1), err)
		}
		*dst = v
	}

	tc, err := ParseTimecode(*start)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	if *date != "" {
		if err := ParseDate(*date, &tc); err != nil {
			log.Fatalf("invalid -date: %v", err)
		}
		if !ltc.ValidTimezone(*tz) {
			log.Fatalf("invalid -tz: %s", *tz)
		}
		tc.Timezone = *tz
		cfg.UseDate = true
	}
	cfg.Start = tc

	if *debug {
		log.Printf("%s", version.Banner("ltcencode"))
	}

	f, err := os.Create(cfg.Path)
	if err != nil {
		log.Fatalf("Error: cannot open file '%s' for writing: %v", cfg.Path, err)
	}
	defer f.Close()

	fmt.Printf("sample rate: %.2f\n", cfg.SampleRate)
	fmt.Printf("frames/sec: %.2f\n", cfg.FPS)
	fmt.Printf("secs to write: %.2f\n", cfg.Duration)
	fmt.Printf("sample format: %s mono\n", sampleFormatName(cfg.Bits))

	var out *output.Oto
	if *play {
		out = output.NewOto()
		if err := out.Open(int(cfg.SampleRate), 1); err != nil {
			log.Fatalf("Failed to open audio output: %v", err)
		}
		defer out.Close()
	}

	var player func([]uint8) error
	if out != nil {
		player = out.WriteLevels
	}

	total, err := Encode(cfg, f, player)
	if err != nil {
		log.Fatalf("Encode error: %v", err)
	}

	fmt.Printf("Done: wrote %d samples to '%s'\n", total, cfg.Path)
}

func sampleFormatName(bits int) string {
	if bits == 8 {
		return "8bit unsigned"
	}
	return fmt.Sprintf("%dbit signed little-endian", bits)
}
