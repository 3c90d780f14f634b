// ABOUTME: LTC generator source
// ABOUTME: Produces a continuous LTC signal from a start timecode using the encoder
package source

import (
	"fmt"
	"math"
	"sync"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/Sendspin/ltc-go/pkg/ltc"
)

// GeneratorConfig describes the generated signal
type GeneratorConfig struct {
	SampleRate int
	FPS        float64
	Standard   ltc.Standard // replaced by the standard matching FPS when they disagree
	Flags      ltc.BGFlags
	Start      ltc.Timecode
	UserBits   uint32
	Volume     float64 // dBFS, default -18
	Filter     float64 // rise time in µs, default 25
	Reverse    bool    // count down and send frames backwards
}

// GeneratorSource is a mono LTC signal generator
type GeneratorSource struct {
	mu      sync.Mutex
	config  GeneratorConfig
	encoder *ltc.Encoder
	pending []int32
	frames  uint64
}

// NewGenerator creates an LTC generator
func NewGenerator(config GeneratorConfig) (*GeneratorSource, error) {
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.FPS == 0 {
		config.FPS = 25
	}
	if !config.Standard.Valid() || config.Standard.FPS() != int(math.Round(config.FPS)) {
		config.Standard = ltc.StandardForFPS(config.FPS)
	}
	if config.Volume == 0 {
		config.Volume = -18
	}
	if config.Filter == 0 {
		config.Filter = 25
	}
	if config.Start.Timezone == "" {
		config.Start.Timezone = "+0000"
	}

	enc, err := ltc.NewEncoder(float64(config.SampleRate), config.FPS, config.Standard, config.Flags)
	if err != nil {
		return nil, fmt.Errorf("failed to create LTC encoder: %w", err)
	}
	if err := enc.SetVolume(config.Volume); err != nil {
		return nil, fmt.Errorf("invalid generator volume: %w", err)
	}
	enc.SetFilter(config.Filter)
	enc.SetTimecode(config.Start)
	if config.UserBits != 0 && !config.Flags.Has(ltc.UseDate) {
		enc.SetUserBits(config.UserBits)
	}

	return &GeneratorSource{config: config, encoder: enc}, nil
}

func (g *GeneratorSource) Read(samples []int32) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for n < len(samples) {
		if len(g.pending) == 0 {
			if err := g.nextFrame(); err != nil {
				return n, err
			}
		}
		c := copy(samples[n:], g.pending)
		g.pending = g.pending[c:]
		n += c
	}
	return n, nil
}

// nextFrame encodes the current frame and steps the timecode
func (g *GeneratorSource) nextFrame() error {
	var err error
	if g.config.Reverse {
		err = g.encoder.EncodeReversedFrame()
	} else {
		err = g.encoder.EncodeFrame()
	}
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	levels := g.encoder.Buffer(true)
	if cap(g.pending) < len(levels) {
		g.pending = make([]int32, 0, len(levels))
	}
	g.pending = g.pending[:len(levels)]
	for i, l := range levels {
		g.pending[i] = audio.SampleFromUint8(l)
	}

	if g.config.Reverse {
		_, err = g.encoder.DecTimecode()
	} else {
		_, err = g.encoder.IncTimecode()
	}
	g.frames++
	return err
}

// Timecode returns the timecode of the next frame to be generated
func (g *GeneratorSource) Timecode() ltc.Timecode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.encoder.Timecode()
}

// Frames returns how many frames were generated
func (g *GeneratorSource) Frames() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frames
}

func (g *GeneratorSource) SampleRate() int { return g.config.SampleRate }
func (g *GeneratorSource) Channels() int   { return 1 }
func (g *GeneratorSource) Name() string {
	return fmt.Sprintf("LTC generator %s %.2f fps", g.config.Standard, g.config.FPS)
}
func (g *GeneratorSource) Close() error { return nil }
