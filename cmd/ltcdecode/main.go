// ABOUTME: Entry point for the LTC decoder command
// ABOUTME: Decodes timecode from an audio file or stream and prints one line per frame
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Sendspin/ltc-go/internal/chase"
	"github.com/Sendspin/ltc-go/internal/source"
	"github.com/Sendspin/ltc-go/internal/store"
	"github.com/Sendspin/ltc-go/internal/ui"
	"github.com/Sendspin/ltc-go/internal/version"
	"github.com/Sendspin/ltc-go/pkg/ltc"
)

const bufferSize = 1024

var (
	format    = flag.String("format", "auto", "Input format: auto, u8, s16, s24, mp3, flac")
	rate      = flag.Int("rate", 48000, "Sample rate of raw PCM input")
	channels  = flag.Int("channels", 1, "Channel count of raw PCM input")
	channel   = flag.Int("channel", 0, "Channel carrying LTC")
	queueSize = flag.Int("queue", 32, "Decoded frame queue length")
	tolerance = flag.Float64("tolerance", 0, "Accepted bit cell deviation, 0 for the default")
	useDate   = flag.Bool("date", true, "Interpret user bits as date and timezone")
	dbPath    = flag.String("db", "", "Log decoded frames to this SQLite database")
	find      = flag.String("find", "", "Print where timecode HH:MM:SS:FF was logged in -db and exit")
	list      = flag.Int("list", 0, "Print the first N frames logged in -db and exit")
	useTUI    = flag.Bool("tui", false, "Show a live monitor instead of printing frames")
	logFile   = flag.String("log-file", "", "Log file path")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file|url|-> [audio-frames-per-video-frame]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -db <file> -find HH:MM:SS:FF|-list N [source]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *find != "" || *list > 0 {
		if *dbPath == "" {
			log.Fatalf("-find and -list need -db")
		}
		db, err := store.NewDB(store.Config{Path: *dbPath}, log.Default())
		if err != nil {
			log.Fatalf("Failed to open frame log: %v", err)
		}
		err = runQuery(db.Frames(), os.Stdout, flag.Arg(0), *find, *list)
		db.Close()
		if err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	input := flag.Arg(0)

	// Frames go to stdout, logs to stderr and the log file
	var logOut io.Writer = os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()

		if *useTUI {
			logOut = f
		} else {
			logOut = io.MultiWriter(os.Stderr, f)
		}
	} else if *useTUI {
		logOut = io.Discard
	}
	log.SetOutput(logOut)
	log.Printf("%s", version.Banner("ltcdecode"))

	src, err := source.Open(input, source.Options{
		Format:     *format,
		SampleRate: *rate,
		Channels:   *channels,
	})
	if err != nil {
		log.Fatalf("Error opening '%s': %v", input, err)
	}
	defer src.Close()

	apv := src.SampleRate() / 25
	if flag.NArg() > 1 {
		n, err := strconv.Atoi(flag.Arg(1))
		if err != nil || n <= 0 {
			log.Fatalf("invalid audio-frames-per-video-frame: %s", flag.Arg(1))
		}
		apv = n
	}

	decoder, err := ltc.NewDecoder(ltc.DecoderConfig{
		SamplesPerFrame: apv,
		QueueSize:       *queueSize,
		Tolerance:       *tolerance,
		Debug:           *debug,
	})
	if err != nil {
		log.Fatalf("Failed to create decoder: %v", err)
	}

	var flags ltc.BGFlags
	if *useDate {
		flags = ltc.UseDate
	}

	d := &decodeRun{
		src:     src,
		name:    input,
		decoder: decoder,
		tracker: chase.NewTracker(float64(src.SampleRate()), float64(src.SampleRate())/float64(apv)),
		flags:   flags,
		channel: *channel,
		out:     os.Stdout,
		stop:    make(chan struct{}),
	}
	d.tracker.Debug = *debug

	if *dbPath != "" {
		db, err := store.NewDB(store.Config{Path: *dbPath}, log.Default())
		if err != nil {
			log.Fatalf("Failed to open frame log: %v", err)
		}
		defer db.Close()
		d.frames = db.Frames()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("* Reading from: %s (%d Hz, %d samples per frame)", input, src.SampleRate(), apv)

	if *useTUI {
		mon := ui.NewMonitor("LTC Decoder")
		d.monitor = mon
		d.out = nil
		mon.Status(ui.StatusMsg{Source: src.Name()})

		done := make(chan error, 1)
		go func() { done <- d.run() }()
		go func() {
			select {
			case <-mon.QuitChan():
			case <-sigChan:
				mon.Stop()
			}
			d.Stop()
		}()

		if err := mon.Run(); err != nil {
			log.Fatalf("Monitor error: %v", err)
		}
		d.Stop()
		if err := <-done; err != nil {
			log.Fatalf("Decode error: %v", err)
		}
	} else {
		go func() {
			<-sigChan
			log.Printf("Interrupted")
			d.Stop()
		}()
		if err := d.run(); err != nil {
			log.Fatalf("Decode error: %v", err)
		}
	}

	log.Printf("Done: read %d samples from '%s', %d frames", d.total, input, d.decoded)
}
