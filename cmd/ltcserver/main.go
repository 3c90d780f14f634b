// ABOUTME: Entry point for the LTC timecode server
// ABOUTME: Decodes a source continuously and broadcasts frames over websocket
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sendspin/ltc-go/internal/source"
	"github.com/Sendspin/ltc-go/internal/store"
	"github.com/Sendspin/ltc-go/internal/ui"
	"github.com/Sendspin/ltc-go/internal/version"
	"github.com/Sendspin/ltc-go/pkg/ltc"
	"github.com/Sendspin/ltc-go/pkg/protocol"
	"github.com/Sendspin/ltc-go/pkg/tcstream"
)

var (
	port     = flag.Int("port", tcstream.DefaultPort, "WebSocket server port")
	name     = flag.String("name", "", "Server friendly name (default: hostname-ltc-server)")
	input    = flag.String("input", "", "LTC file or URL to decode. If not specified, generates LTC")
	format   = flag.String("format", "auto", "Input format: auto, u8, s16, s24, mp3, flac")
	channels = flag.Int("channels", 1, "Channel count of raw PCM input")
	channel  = flag.Int("channel", 0, "Channel carrying LTC")
	fps      = flag.Float64("fps", 25, "Expected frame rate")
	rate     = flag.Int("rate", 48000, "Sample rate of raw PCM input and of the generator")
	speed    = flag.Float64("speed", 1.0, "Varispeed factor applied to the input")
	loop     = flag.Bool("loop", false, "Restart file input at the end")
	useDate  = flag.Bool("date", false, "Interpret user bits as date and timezone")
	dbPath   = flag.String("db", "", "Log decoded frames to this SQLite database")
	retain   = flag.Duration("retain", 0, "Drop logged frames older than this (0 keeps all)")
	useTUI   = flag.Bool("tui", false, "Show a live monitor")
	logFile  = flag.String("log-file", "ltc-server.log", "Log file path")
	debug    = flag.Bool("debug", false, "Enable debug logging")
	noMDNS   = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if *useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-ltc-server", hostname)
	}

	log.Printf("%s", version.Banner("ltcserver"))
	log.Printf("Starting LTC Server: %s on port %d", serverName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)

	var flags ltc.BGFlags
	if *useDate {
		flags = ltc.UseDate
	}

	src, realtime, err := openSource(flags)
	if err != nil {
		log.Fatalf("Failed to open LTC source: %v", err)
	}
	if *speed != 1.0 {
		src = source.NewResampledSource(src, *speed)
	}

	var mon *ui.Monitor
	var onFrame []func(protocol.TimecodeFrame)

	if *dbPath != "" {
		db, err := store.NewDB(store.Config{Path: *dbPath}, log.Default())
		if err != nil {
			log.Fatalf("Failed to open frame log: %v", err)
		}
		defer db.Close()

		logger := newFrameLogger(db.Frames(), src.Name(), *retain)
		defer logger.Close()
		onFrame = append(onFrame, logger.Add)
	}

	if *useTUI {
		mon = ui.NewMonitor("LTC Server")
		onFrame = append(onFrame, func(fr protocol.TimecodeFrame) { mon.Frame(ui.FrameMsg(fr)) })
	}

	srv, err := tcstream.NewServer(tcstream.ServerConfig{
		Port:       *port,
		Name:       serverName,
		Source:     src,
		Channel:    *channel,
		FPS:        *fps,
		Flags:      flags,
		Realtime:   realtime,
		EnableMDNS: !*noMDNS,
		Debug:      *debug,
		OnFrame: func(fr protocol.TimecodeFrame) {
			for _, fn := range onFrame {
				fn(fr)
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		if mon != nil {
			mon.Stop()
		}
		srv.Stop()
	}()

	if mon != nil {
		go func() {
			<-mon.QuitChan()
			srv.Stop()
		}()
		go statusLoop(srv, mon, src.Name())

		errChan := make(chan error, 1)
		go func() { errChan <- srv.Start() }()

		if err := mon.Run(); err != nil {
			log.Printf("Monitor error: %v", err)
		}
		srv.Stop()
		if err := <-errChan; err != nil {
			log.Fatalf("Server error: %v", err)
		}
	} else {
		log.Printf("Press Ctrl-C to stop")
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Printf("Server stopped")
}

// openSource opens -input, or the generator when no input is given. File
// and generator sources are paced to the wall clock.
func openSource(flags ltc.BGFlags) (tcstream.Source, bool, error) {
	if *input == "" {
		gen, err := source.NewGenerator(source.GeneratorConfig{
			SampleRate: *rate,
			FPS:        *fps,
			Flags:      flags,
			Start:      wallClockTimecode(time.Now(), *fps),
		})
		if err != nil {
			return nil, false, err
		}
		log.Printf("No input given, generating LTC")
		return gen, true, nil
	}

	src, err := source.Open(*input, source.Options{
		Format:     *format,
		SampleRate: *rate,
		Channels:   *channels,
		Loop:       *loop,
	})
	if err != nil {
		return nil, false, err
	}
	// stdin is read as fast as it arrives
	return src, *input != "-", nil
}

// wallClockTimecode converts a time of day to a timecode at fps
func wallClockTimecode(t time.Time, fps float64) ltc.Timecode {
	return ltc.Timecode{
		Timezone: t.Format("-0700"),
		Years:    t.Year() % 100,
		Months:   int(t.Month()),
		Days:     t.Day(),
		Hours:    t.Hour(),
		Minutes:  t.Minute(),
		Seconds:  t.Second(),
		Frame:    int(float64(t.Nanosecond()) / 1e9 * fps),
	}
}

// statusLoop periodically updates the monitor with server state
func statusLoop(srv *tcstream.Server, mon *ui.Monitor, sourceName string) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	mon.Status(ui.StatusMsg{Source: sourceName, Port: *port, Clients: []string{}})

	for range ticker.C {
		clients := srv.Clients()
		names := make([]string, 0, len(clients))
		for _, c := range clients {
			names = append(names, fmt.Sprintf("%s (%d sent)", c.Name, c.Sent))
		}

		state := srv.Signal()
		quality := qualityOf(state)
		mon.Status(ui.StatusMsg{
			Clients:   names,
			Quality:   &quality,
			Speed:     state.Speed,
			Frames:    state.Frames,
			Discarded: state.Discarded,
		})
	}
}
