// ABOUTME: Decoder and Stream interface definitions
// ABOUTME: Common interfaces for chunk decoders and self-framing file streams
package decode

import (
	"fmt"
	"io"

	"github.com/Sendspin/ltc-go/pkg/audio"
)

// Decoder decodes audio in various formats to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// Stream reads interleaved int32 samples in 24-bit range from an encoded
// source. Read returns io.EOF once the source is exhausted.
type Stream interface {
	Read(samples []int32) (int, error)
	Format() audio.Format
	Close() error
}

// Open returns a Stream for the codec named in format. MP3 and FLAC carry
// their own format in the stream header; PCM needs format fully specified.
func Open(r io.Reader, format audio.Format) (Stream, error) {
	switch format.Codec {
	case "pcm":
		return NewPCMStream(r, format)
	case "mp3":
		return NewMP3Stream(r)
	case "flac":
		return NewFLACStream(r)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}

func closeReader(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
