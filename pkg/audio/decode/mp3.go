// ABOUTME: MP3 audio stream decoder
// ABOUTME: Decodes MP3 audio to interleaved stereo int32 samples via go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Stream decodes MP3 audio
type MP3Stream struct {
	r       io.Reader
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

// NewMP3Stream creates a decoder reading MP3 frames from r
func NewMP3Stream(r io.Reader) (*MP3Stream, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Stream{
		r:       r,
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2, // go-mp3 always outputs stereo
			BitDepth:   16,
		},
	}, nil
}

// Read converts decoded int16 PCM to int32 samples
func (s *MP3Stream) Read(samples []int32) (int, error) {
	numBytes := len(samples) * 2
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}
	if err != nil && err != io.EOF {
		return numSamples, fmt.Errorf("mp3 decode error: %w", err)
	}
	if numSamples > 0 {
		return numSamples, nil
	}
	return 0, err
}

// Format returns the decoded stream format
func (s *MP3Stream) Format() audio.Format { return s.format }

// Close releases decoder resources
func (s *MP3Stream) Close() error {
	return closeReader(s.r)
}
