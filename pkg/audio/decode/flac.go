// ABOUTME: FLAC audio stream decoder
// ABOUTME: Decodes FLAC audio to interleaved int32 samples via mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACStream decodes FLAC audio
type FLACStream struct {
	r       io.Reader
	stream  *flac.Stream
	format  audio.Format
	pending []int32
}

// NewFLACStream creates a decoder reading a FLAC stream from r
func NewFLACStream(r io.Reader) (*FLACStream, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLACStream{
		r:      r,
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
	}, nil
}

// Read returns interleaved samples. Samples of a FLAC frame that do not
// fit are kept for the next call.
func (s *FLACStream) Read(samples []int32) (int, error) {
	n := copy(samples, s.pending)
	s.pending = s.pending[n:]

	for n < len(samples) {
		frame, err := s.stream.ParseNext()
		if err != nil {
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}

		channels := s.format.Channels
		block := make([]int32, 0, int(frame.BlockSize)*channels)
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				block = append(block, ScaleTo24Bit(frame.Subframes[ch].Samples[i], s.format.BitDepth))
			}
		}

		c := copy(samples[n:], block)
		s.pending = append(s.pending, block[c:]...)
		n += c
	}
	return n, nil
}

// Format returns the decoded stream format
func (s *FLACStream) Format() audio.Format { return s.format }

// Close releases decoder resources
func (s *FLACStream) Close() error {
	return closeReader(s.r)
}

// ScaleTo24Bit moves a sample of the given bit depth into 24-bit range
func ScaleTo24Bit(sample int32, bitDepth int) int32 {
	shift := bitDepth - 24
	if shift > 0 {
		return sample >> shift
	}
	return sample << -shift
}
