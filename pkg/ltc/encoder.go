// ABOUTME: Biphase-mark LTC encoder producing unsigned 8-bit samples
// ABOUTME: Owns the current frame, bit-cell phase, level shaping and the sample backlog
package ltc

import (
	"fmt"
	"math"
)

const (
	sampleCenter = 128

	defaultVolume   = -3.0
	defaultRiseTime = 40.0
)

// Encoder renders LTC frames into unsigned 8-bit mono samples centred at 128.
// An Encoder is owned by one goroutine.
type Encoder struct {
	frame Frame

	sampleRate float64
	fps        float64
	std        Standard
	flags      BGFlags

	volume      float64
	riseTime    float64
	filterConst float64
	low, high   uint8

	samplesPerClock     float64
	samplesPerClockHalf float64
	remainder           float64
	state               bool

	buf    []uint8
	offset int
}

// NewEncoder creates an encoder with a -3 dBFS level and a 40us rise time
func NewEncoder(sampleRate, fps float64, std Standard, flags BGFlags) (*Encoder, error) {
	if err := validateTiming(sampleRate, fps, std); err != nil {
		return nil, err
	}

	e := &Encoder{
		frame:    NewFrame(),
		riseTime: defaultRiseTime,
		buf:      make([]uint8, bufferSizeFor(sampleRate, fps)),
	}
	if err := e.Reinit(sampleRate, fps, std, flags); err != nil {
		return nil, err
	}
	if err := e.SetVolume(defaultVolume); err != nil {
		return nil, err
	}
	return e, nil
}

func validateTiming(sampleRate, fps float64, std Standard) error {
	if sampleRate < 1 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("sample rate %v: %w", sampleRate, ErrInvalidSampleRate)
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return fmt.Errorf("fps %v: %w", fps, ErrInvalidFPS)
	}
	if !std.Valid() {
		return fmt.Errorf("%v: %w", std, ErrInvalidStandard)
	}
	return nil
}

// bufferSizeFor returns the backlog capacity needed for one frame
func bufferSizeFor(sampleRate, fps float64) int {
	return 1 + int(math.Ceil(sampleRate/fps))
}

// Reinit reconfigures timing, standard and flags. Undelivered samples are
// discarded and the bit-cell phase restarts. On error nothing changes.
func (e *Encoder) Reinit(sampleRate, fps float64, std Standard, flags BGFlags) error {
	if err := validateTiming(sampleRate, fps, std); err != nil {
		return err
	}
	if need := bufferSizeFor(sampleRate, fps); need > len(e.buf) {
		return fmt.Errorf("need %d samples, have %d: %w", need, len(e.buf), ErrBufferTooSmall)
	}

	if int(math.Round(fps*100)) == 2997 {
		flags |= DropFrame
	}

	e.sampleRate = sampleRate
	e.fps = fps
	e.std = std
	e.flags = flags
	e.samplesPerClock = sampleRate / (fps * FrameBits)
	e.samplesPerClockHalf = e.samplesPerClock / 2
	e.SetFilter(e.riseTime)
	e.Reset()

	e.frame.applyFlags(std, flags)
	if flags.parityEnabled() {
		e.frame.SetParity(std)
	}
	return nil
}

// Reset discards the backlog and restarts the bit-cell phase
func (e *Encoder) Reset() {
	e.offset = 0
	e.state = false
	e.remainder = 0.5
}

// SetBufferSize resizes the backlog to hold one frame at the given timing.
// Undelivered samples are discarded. The new size must still hold a frame
// at the encoder's current timing; on error nothing changes.
func (e *Encoder) SetBufferSize(sampleRate, fps float64) error {
	if err := validateTiming(sampleRate, fps, e.std); err != nil {
		return err
	}
	size := bufferSizeFor(sampleRate, fps)
	if need := bufferSizeFor(e.sampleRate, e.fps); size < need {
		return fmt.Errorf("need %d samples, got %d: %w", need, size, ErrBufferTooSmall)
	}
	e.buf = make([]uint8, size)
	e.offset = 0
	return nil
}

// BufferSize returns the backlog capacity in samples
func (e *Encoder) BufferSize() int {
	return len(e.buf)
}

// SetVolume sets the peak level in dBFS. The level must be <= 0 and leave a
// non-zero 8-bit amplitude; otherwise the previous level is kept.
func (e *Encoder) SetVolume(dbfs float64) error {
	if dbfs > 0 || math.IsNaN(dbfs) {
		return fmt.Errorf("%v dBFS: %w", dbfs, ErrInvalidVolume)
	}
	pp := math.RoundToEven(127 * math.Pow(10, dbfs/20))
	if pp < 1 || pp > 127 {
		return fmt.Errorf("%v dBFS: %w", dbfs, ErrInvalidVolume)
	}
	e.volume = dbfs
	e.low = uint8(sampleCenter - pp)
	e.high = uint8(sampleCenter + pp)
	return nil
}

func (e *Encoder) Volume() float64 {
	return e.volume
}

// SetFilter sets the 10%-90% rise time of each transition in microseconds.
// A rise time <= 0 produces a square wave.
func (e *Encoder) SetFilter(riseTime float64) {
	e.riseTime = riseTime
	if riseTime <= 0 {
		e.filterConst = 0
		return
	}
	// each segment starts at the centre, so only half the rise is shaped
	e.filterConst = 1 - math.Exp(-1/(e.sampleRate*riseTime/2000000/math.E))
}

func (e *Encoder) Filter() float64 {
	return e.riseTime
}

func (e *Encoder) SetTimecode(tc Timecode) {
	e.frame.SetTimecode(tc, e.std, e.flags)
}

func (e *Encoder) Timecode() Timecode {
	return FrameToTimecode(e.frame, e.flags)
}

func (e *Encoder) SetFrame(f Frame) {
	e.frame = f
}

func (e *Encoder) Frame() Frame {
	return e.frame
}

// SetUserBits replaces the user bits of the current frame
func (e *Encoder) SetUserBits(data uint32) {
	e.frame.SetUserBits(data)
	if e.flags.parityEnabled() {
		e.frame.SetParity(e.std)
	}
}

// IncTimecode advances the current frame by one
func (e *Encoder) IncTimecode() (Wrap, error) {
	return e.frame.Increment(int(math.Ceil(e.fps)), e.std, e.flags)
}

// DecTimecode moves the current frame back by one
func (e *Encoder) DecTimecode() (Wrap, error) {
	return e.frame.Decrement(int(math.Ceil(e.fps)), e.std, e.flags)
}

// EncodeByte appends the samples of byte index (0-9) of the current frame.
// Each bit cell is stretched by |speed|; a negative speed sends the bits in
// reverse order. On error the backlog and phase are unchanged.
func (e *Encoder) EncodeByte(index int, speed float64) error {
	if index < 0 || index >= FrameBytes {
		return fmt.Errorf("byte %d: %w", index, ErrInvalidByte)
	}
	if speed == 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("speed %v: %w", speed, ErrInvalidSpeed)
	}

	offset, state, remainder := e.offset, e.state, e.remainder
	if err := e.encodeByte(e.frame[index], speed); err != nil {
		e.offset, e.state, e.remainder = offset, state, remainder
		return err
	}
	return nil
}

func (e *Encoder) encodeByte(c byte, speed float64) error {
	full := e.samplesPerClock * math.Abs(speed)
	half := e.samplesPerClockHalf * math.Abs(speed)

	for i := 0; i < 8; i++ {
		bit := i
		if speed < 0 {
			bit = 7 - i
		}
		if c&(1<<bit) == 0 {
			if err := e.transition(full); err != nil {
				return err
			}
			continue
		}
		if err := e.transition(half); err != nil {
			return err
		}
		if err := e.transition(half); err != nil {
			return err
		}
	}
	return nil
}

// transition flips the output level and holds it for cell samples,
// carrying the fractional part into the next segment
func (e *Encoder) transition(cell float64) error {
	n := int(cell + e.remainder)
	e.remainder = cell + e.remainder - float64(n)
	e.state = !e.state
	return e.addValues(n)
}

func (e *Encoder) level() uint8 {
	high := e.state
	if e.flags.Has(ReversePhase) {
		high = !high
	}
	if high {
		return e.high
	}
	return e.low
}

func (e *Encoder) addValues(n int) error {
	if e.offset+n >= len(e.buf) {
		return fmt.Errorf("%d + %d samples exceeds %d: %w", e.offset, n, len(e.buf), ErrBufferFull)
	}

	target := float64(e.level())
	wave := e.buf[e.offset : e.offset+n]
	if e.filterConst > 0 {
		val := float64(sampleCenter)
		for i := 0; i < (n+1)/2; i++ {
			val += e.filterConst * (target - val)
			wave[i] = uint8(val)
			wave[n-i-1] = uint8(val)
		}
	} else {
		for i := range wave {
			wave[i] = uint8(target)
		}
	}
	e.offset += n
	return nil
}

// EncodeFrame appends all ten bytes of the current frame
func (e *Encoder) EncodeFrame() error {
	offset, state, remainder := e.offset, e.state, e.remainder
	for i := 0; i < FrameBytes; i++ {
		if err := e.EncodeByte(i, 1); err != nil {
			e.offset, e.state, e.remainder = offset, state, remainder
			return err
		}
	}
	return nil
}

// EncodeReversedFrame appends the current frame as seen by a reversed
// playback: last bit first
func (e *Encoder) EncodeReversedFrame() error {
	offset, state, remainder := e.offset, e.state, e.remainder
	for i := FrameBytes - 1; i >= 0; i-- {
		if err := e.EncodeByte(i, -1); err != nil {
			e.offset, e.state, e.remainder = offset, state, remainder
			return err
		}
	}
	return nil
}

// EndEncode closes the signal with one more transition and a half cell, so
// the last bit cell of the final frame has a closing edge.
func (e *Encoder) EndEncode() error {
	state, remainder := e.state, e.remainder
	if err := e.transition(e.samplesPerClockHalf); err != nil {
		e.state, e.remainder = state, remainder
		return err
	}
	return nil
}

// Buffer returns a copy of the undelivered samples. With flush set the
// samples are marked delivered and the backlog empties.
func (e *Encoder) Buffer(flush bool) []uint8 {
	out := make([]uint8, e.offset)
	copy(out, e.buf[:e.offset])
	if flush {
		e.offset = 0
	}
	return out
}

// CopyBuffer moves up to len(dst) undelivered samples into dst
func (e *Encoder) CopyBuffer(dst []uint8) int {
	n := copy(dst, e.buf[:e.offset])
	copy(e.buf, e.buf[n:e.offset])
	e.offset -= n
	return n
}

// BufferFlush discards the undelivered samples
func (e *Encoder) BufferFlush() {
	e.offset = 0
}

// Pending returns the number of undelivered samples
func (e *Encoder) Pending() int {
	return e.offset
}

func (e *Encoder) SampleRate() float64 { return e.sampleRate }
func (e *Encoder) FPS() float64        { return e.fps }
func (e *Encoder) Standard() Standard  { return e.std }
func (e *Encoder) Flags() BGFlags      { return e.flags }
