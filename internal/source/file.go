// ABOUTME: File and HTTP sample sources
// ABOUTME: Wrap the raw PCM, MP3 and FLAC stream decoders with looping and naming
package source

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/Sendspin/ltc-go/pkg/audio/decode"
)

// streamSource adapts a decode.Stream to Source
type streamSource struct {
	stream decode.Stream
	name   string
}

func newStreamSource(r io.Reader, name string, format audio.Format) (*streamSource, error) {
	stream, err := decode.Open(r, format)
	if err != nil {
		return nil, err
	}
	return &streamSource{stream: stream, name: name}, nil
}

func (s *streamSource) Read(samples []int32) (int, error) { return s.stream.Read(samples) }
func (s *streamSource) SampleRate() int                   { return s.stream.Format().SampleRate }
func (s *streamSource) Channels() int                     { return s.stream.Format().Channels }
func (s *streamSource) Name() string                      { return s.name }
func (s *streamSource) Close() error                      { return s.stream.Close() }

// FileSource reads from an audio file
type FileSource struct {
	file   *os.File
	stream decode.Stream
	format audio.Format
	title  string
	loop   bool
}

// NewFileSource opens path and decodes it as format
func NewFileSource(path string, format audio.Format, loop bool) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	stream, err := decode.Open(f, format)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	filename := filepath.Base(path)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))

	sf := stream.Format()
	log.Printf("Loaded %s: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		sf.Codec, title, sf.SampleRate, sf.Channels, sf.BitDepth)

	return &FileSource{
		file:   f,
		stream: stream,
		format: format,
		title:  title,
		loop:   loop,
	}, nil
}

func (s *FileSource) Read(samples []int32) (int, error) {
	n, err := s.stream.Read(samples)
	if err == io.EOF && s.loop {
		if _, seekErr := s.file.Seek(0, io.SeekStart); seekErr != nil {
			return n, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		stream, decErr := decode.Open(s.file, s.format)
		if decErr != nil {
			return n, fmt.Errorf("failed to restart decoder: %w", decErr)
		}
		s.stream = stream
		return n, nil
	}
	return n, err
}

func (s *FileSource) SampleRate() int { return s.stream.Format().SampleRate }
func (s *FileSource) Channels() int   { return s.stream.Format().Channels }
func (s *FileSource) Name() string    { return s.title }
func (s *FileSource) Close() error {
	return s.file.Close()
}

// NewHTTPSource streams audio from an HTTP URL. The stream ends at EOF.
func NewHTTPSource(url string, format audio.Format) (Source, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	src, err := newStreamSource(resp.Body, url, format)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to decode HTTP stream: %w", err)
	}

	log.Printf("Streaming %s from HTTP: %s (sample rate: %d Hz)", format.Codec, url, src.SampleRate())
	return src, nil
}
