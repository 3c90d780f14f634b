// ABOUTME: Oto-based LTC playback
// ABOUTME: Streams unsigned 8-bit encoder levels to the default device with a gain trim
package output

import (
	"fmt"
	"io"
	"log"
	"math"
	"sync"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Oto plays LTC through the default audio device. Samples are sent as
// unsigned 8-bit, the format the LTC encoder produces, so levels reach the
// device without requantisation.
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	gain       float64 // dB, <= 0
	muted      bool
}

// NewOto creates an output at unity gain
func NewOto() *Oto {
	return &Oto{}
}

// Open starts playback. oto allows one context per process, so a second
// Open with a different format fails rather than silently resampling.
func (o *Oto) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if o.sampleRate == sampleRate && o.channels == channels {
			return nil
		}
		return fmt.Errorf("output already open at %dHz %dch", o.sampleRate, o.channels)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatUnsignedInt8,
	})
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	r, w := io.Pipe()
	o.otoCtx = ctx
	o.pipeWriter = w
	o.player = ctx.NewPlayer(r)
	o.player.Play()
	o.sampleRate = sampleRate
	o.channels = channels

	log.Printf("LTC playback on default device: %dHz, %d channels", sampleRate, channels)
	return nil
}

// WriteLevels plays unsigned 8-bit levels centred at 128. Blocks until the
// device has accepted them.
func (o *Oto) WriteLevels(levels []uint8) error {
	o.mu.Lock()
	w := o.pipeWriter
	if w == nil {
		o.mu.Unlock()
		return fmt.Errorf("output not initialized")
	}
	buf := applyGain(make([]uint8, 0, len(levels)), levels, o.gain, o.muted)
	o.mu.Unlock()

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Write implements Output for 24-bit range samples
func (o *Oto) Write(samples []int32) error {
	levels := make([]uint8, len(samples))
	for i, s := range samples {
		levels[i] = audio.SampleToUint8(s)
	}
	return o.WriteLevels(levels)
}

// Close stops playback
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil {
		return o.otoCtx.Suspend()
	}
	return nil
}

// SetGain trims the output level in dB. Positive values are clamped to 0,
// the encoder already sets the signal level.
func (o *Oto) SetGain(db float64) {
	if db > 0 || math.IsNaN(db) {
		db = 0
	}
	o.mu.Lock()
	o.gain = db
	o.mu.Unlock()
}

// Gain returns the current trim in dB
func (o *Oto) Gain() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gain
}

// SetMuted holds the output at the centre level
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// applyGain scales levels around the unsigned centre and appends them to dst
func applyGain(dst, levels []uint8, db float64, muted bool) []uint8 {
	if muted {
		for range levels {
			dst = append(dst, audio.Uint8Center)
		}
		return dst
	}
	if db == 0 {
		return append(dst, levels...)
	}

	k := math.Pow(10, db/20)
	for _, l := range levels {
		v := math.Round(audio.Uint8Center + (float64(l)-audio.Uint8Center)*k)
		dst = append(dst, uint8(math.Max(0, math.Min(255, v))))
	}
	return dst
}
