// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int32 samples to unsigned 8-bit, signed 16-bit or signed 24-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Sendspin/ltc-go/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	switch format.BitDepth {
	case 8, 16, 24:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24)", format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth: format.BitDepth,
	}, nil
}

// BytesPerSample returns the encoded width of one sample
func (e *PCMEncoder) BytesPerSample() int {
	return e.bitDepth / 8
}

// Encode converts int32 samples to PCM bytes
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	switch e.bitDepth {
	case 8:
		// 8-bit PCM is unsigned, centred at 128
		output := make([]byte, len(samples))
		for i, sample := range samples {
			output[i] = audio.SampleToUint8(sample)
		}
		return output, nil
	case 24:
		output := make([]byte, len(samples)*3)
		for i, sample := range samples {
			bytes := audio.SampleTo24Bit(sample)
			output[i*3] = bytes[0]
			output[i*3+1] = bytes[1]
			output[i*3+2] = bytes[2]
		}
		return output, nil
	default:
		output := make([]byte, len(samples)*2)
		for i, sample := range samples {
			binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
		}
		return output, nil
	}
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
