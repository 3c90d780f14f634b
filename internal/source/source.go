// ABOUTME: Sample source abstraction for the LTC decoder
// ABOUTME: Opens files, HTTP streams and ffmpeg pipes, or generates LTC when no input is given
package source

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sendspin/ltc-go/pkg/audio"
)

// Source provides PCM audio samples
type Source interface {
	// Read reads interleaved samples in 24-bit range. Returns number of samples read or error.
	Read(samples []int32) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Name describes the source for logs and the monitor
	Name() string
	// Close closes the source
	Close() error
}

// Options controls how Open interprets its input
type Options struct {
	// Format is one of auto, u8, s16, s24, mp3, flac. Auto picks by
	// extension and treats unknown extensions as raw unsigned 8-bit.
	Format string

	// SampleRate and Channels describe raw PCM input
	SampleRate int
	Channels   int

	// Loop restarts file input at the end
	Loop bool
}

// Open creates a source from a file path, "-" for stdin, or an HTTP(S) URL.
// HLS playlists are decoded through ffmpeg.
func Open(pathOrURL string, opts Options) (Source, error) {
	if opts.SampleRate == 0 {
		opts.SampleRate = 48000
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}

	format, err := resolveFormat(pathOrURL, opts)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://"):
		if strings.Contains(pathOrURL, ".m3u8") {
			log.Printf("Streaming from HLS URL: %s", pathOrURL)
			return NewFFmpegSource(pathOrURL, opts.SampleRate)
		}
		log.Printf("Streaming from HTTP URL: %s", pathOrURL)
		return NewHTTPSource(pathOrURL, format)

	case pathOrURL == "-":
		return newStreamSource(os.Stdin, "stdin", format)

	default:
		if _, err := os.Stat(pathOrURL); os.IsNotExist(err) {
			return nil, fmt.Errorf("audio file not found: %s", pathOrURL)
		}
		return NewFileSource(pathOrURL, format, opts.Loop)
	}
}

// resolveFormat maps the format option and file extension to a decoder format
func resolveFormat(pathOrURL string, opts Options) (audio.Format, error) {
	name := strings.ToLower(opts.Format)
	if name == "" || name == "auto" {
		switch ext := strings.ToLower(filepath.Ext(strings.SplitN(pathOrURL, "?", 2)[0])); ext {
		case ".mp3":
			name = "mp3"
		case ".flac":
			name = "flac"
		case ".s16", ".s16le":
			name = "s16"
		case ".s24", ".s24le":
			name = "s24"
		default:
			name = "u8"
		}
	}

	raw := audio.Format{Codec: "pcm", SampleRate: opts.SampleRate, Channels: opts.Channels}
	switch name {
	case "u8":
		raw.BitDepth = 8
	case "s16":
		raw.BitDepth = 16
	case "s24":
		raw.BitDepth = 24
	case "mp3", "flac":
		return audio.Format{Codec: name}, nil
	default:
		return audio.Format{}, fmt.Errorf("unsupported audio format: %s (supported: u8, s16, s24, mp3, flac)", opts.Format)
	}
	return raw, nil
}

// SelectChannel copies one channel of interleaved samples into dst and
// returns the number of samples written
func SelectChannel(dst, interleaved []int32, channels, channel int) int {
	if channels <= 1 {
		return copy(dst, interleaved)
	}
	if channel < 0 || channel >= channels {
		channel = 0
	}

	n := 0
	for i := channel; i < len(interleaved) && n < len(dst); i += channels {
		dst[n] = interleaved[i]
		n++
	}
	return n
}
