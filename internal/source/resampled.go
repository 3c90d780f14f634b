// ABOUTME: Varispeed wrapper around a sample source
// ABOUTME: Resamples a source so its LTC plays faster or slower than nominal
package source

import (
	"io"
	"math"

	"github.com/Sendspin/ltc-go/pkg/audio/resample"
)

// ResampledSource wraps a Source and plays it back at a different speed.
// Speed 1.0 is nominal, 1.1 plays 10% fast. The reported sample rate is
// unchanged.
type ResampledSource struct {
	source      Source
	resampler   *resample.Resampler
	inputBuffer []int32
	pending     []int32
	eof         bool
}

// NewResampledSource creates a varispeed wrapper around source
func NewResampledSource(source Source, speed float64) *ResampledSource {
	inputRate := source.SampleRate()
	channels := source.Channels()
	outputRate := int(math.Round(float64(inputRate) / speed))

	// 100ms input chunks
	inputSamples := (inputRate * channels * 100) / 1000

	return &ResampledSource{
		source:      source,
		resampler:   resample.New(inputRate, outputRate, channels),
		inputBuffer: make([]int32, inputSamples),
	}
}

func (r *ResampledSource) Read(samples []int32) (int, error) {
	n := copy(samples, r.pending)
	r.pending = r.pending[n:]

	for n < len(samples) && !r.eof {
		read, err := r.source.Read(r.inputBuffer)
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return n, err
		} else if read == 0 {
			break
		}

		out := make([]int32, r.resampler.OutputSamplesNeeded(read))
		produced := r.resampler.Resample(r.inputBuffer[:read], out)
		c := copy(samples[n:], out[:produced])
		r.pending = append(r.pending, out[c:produced]...)
		n += c
	}

	if n == 0 && r.eof {
		return 0, io.EOF
	}
	return n, nil
}

func (r *ResampledSource) SampleRate() int { return r.source.SampleRate() }
func (r *ResampledSource) Channels() int   { return r.source.Channels() }
func (r *ResampledSource) Name() string    { return r.source.Name() + " (varispeed)" }
func (r *ResampledSource) Close() error    { return r.source.Close() }
