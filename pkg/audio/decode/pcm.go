// ABOUTME: PCM audio decoder
// ABOUTME: Decodes unsigned 8-bit, signed 16-bit and 24-bit PCM audio to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Sendspin/ltc-go/pkg/audio"
)

// PCMDecoder decodes PCM audio. Bytes of a sample split across two calls
// to Decode are carried over.
type PCMDecoder struct {
	bitDepth int
	pending  []byte
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	switch format.BitDepth {
	case 8, 16, 24:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	if len(d.pending) > 0 {
		data = append(d.pending, data...)
		d.pending = nil
	}

	width := d.bitDepth / 8
	numSamples := len(data) / width
	if rest := data[numSamples*width:]; len(rest) > 0 {
		d.pending = append([]byte(nil), rest...)
	}

	samples := make([]int32, numSamples)
	switch d.bitDepth {
	case 8:
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromUint8(data[i])
		}
	case 24:
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24Bit(b)
		}
	default:
		for i := 0; i < numSamples; i++ {
			sample16 := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = audio.SampleFromInt16(sample16)
		}
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	d.pending = nil
	return nil
}

// PCMStream reads headerless PCM from an io.Reader
type PCMStream struct {
	r       io.Reader
	format  audio.Format
	decoder Decoder
	buf     []byte
	carry   []int32
}

// NewPCMStream wraps r as a stream of raw PCM in the given format
func NewPCMStream(r io.Reader, format audio.Format) (*PCMStream, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid PCM format: %d Hz, %d channels", format.SampleRate, format.Channels)
	}
	dec, err := NewPCM(format)
	if err != nil {
		return nil, err
	}
	return &PCMStream{r: r, format: format, decoder: dec}, nil
}

// Read fills samples with decoded audio
func (s *PCMStream) Read(samples []int32) (int, error) {
	n := copy(samples, s.carry)
	s.carry = s.carry[n:]
	if n == len(samples) {
		return n, nil
	}

	need := (len(samples) - n) * (s.format.BitDepth / 8)
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	read, err := s.r.Read(s.buf[:need])
	if read > 0 {
		decoded, derr := s.decoder.Decode(s.buf[:read])
		if derr != nil {
			return n, derr
		}
		c := copy(samples[n:], decoded)
		s.carry = append(s.carry, decoded[c:]...)
		n += c
	}
	if err == io.EOF && n > 0 {
		return n, nil
	}
	return n, err
}

// Format returns the stream format
func (s *PCMStream) Format() audio.Format { return s.format }

// Close closes the underlying reader if it is closable
func (s *PCMStream) Close() error {
	s.decoder.Close()
	return closeReader(s.r)
}
