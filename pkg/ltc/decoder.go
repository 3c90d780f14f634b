// ABOUTME: Streaming biphase-mark demodulator that recovers LTC frames from audio
// ABOUTME: Tracks bit-cell timing across writes and queues forward and reverse frames
package ltc

import (
	"fmt"
	"log"
	"math"

	"github.com/Sendspin/ltc-go/pkg/audio"
)

const (
	defaultSamplesPerFrame = 1920
	defaultQueueSize       = 32
	defaultTolerance       = 0.5
	defaultMaxBadCells     = 16

	decodeChunk     = 1024
	cellHistory     = FrameBits + 16
	intervalHistory = 32

	envelopeDecay  = 15.0 / 16.0
	thresholdFloor = 1.5
	halfCellLimit  = 0.75
	silenceCells   = 4
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	// SamplesPerFrame is the expected number of audio samples per video
	// frame (sample rate / fps). It seeds the bit-cell estimator.
	SamplesPerFrame int
	// QueueSize is the number of decoded frames held until read
	QueueSize int
	// Tolerance is the accepted relative deviation of a bit cell from the
	// running estimate, in (0, 1). Wider cells are treated as noise.
	Tolerance float64
	// MaxBadCells consecutive noisy cells drop sync and reseed the estimator
	MaxBadCells int
	// Debug logs sync loss and reseeding
	Debug bool
}

// DecoderStats counts decoder events since construction
type DecoderStats struct {
	Frames     uint64 // frames queued
	Reverse    uint64 // of which read from a reversed stream
	Discarded  uint64 // frames dropped because a bit cell was noisy
	NoisyCells uint64
	SyncLosses uint64
	Dropped    uint64 // frames evicted from a full queue
}

type cell struct {
	bit   bool
	start int64
	width float64
	noisy bool
}

// Decoder demodulates LTC from a mono sample stream. Writes must come from a
// single goroutine; Read, QueueFlush and QueueLength may be called from others.
type Decoder struct {
	cfg   DecoderConfig
	queue *FrameQueue

	envMin, envMax float64
	high           bool
	phase          bool
	lastEdge       int64

	period   float64
	badCells int

	halfPending  bool
	halfStart    int64
	halfInterval float64

	intervals   [intervalHistory]float64
	intervalPos int

	cells     [cellHistory]cell
	cellHead  int
	cellCount int
	shift     uint16

	frameMin, frameMax uint8

	stats DecoderStats
}

// NewDecoder creates a decoder. Zero config fields take their defaults.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	if cfg.SamplesPerFrame == 0 {
		cfg.SamplesPerFrame = defaultSamplesPerFrame
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = defaultTolerance
	}
	if cfg.MaxBadCells == 0 {
		cfg.MaxBadCells = defaultMaxBadCells
	}

	if cfg.SamplesPerFrame < 0 {
		return nil, fmt.Errorf("samples per frame %d: %w", cfg.SamplesPerFrame, ErrInvalidConfig)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("queue size %d: %w", cfg.QueueSize, ErrInvalidConfig)
	}
	if cfg.Tolerance <= 0 || cfg.Tolerance >= 1 || math.IsNaN(cfg.Tolerance) {
		return nil, fmt.Errorf("tolerance %v: %w", cfg.Tolerance, ErrInvalidConfig)
	}
	if cfg.MaxBadCells < 0 {
		return nil, fmt.Errorf("max bad cells %d: %w", cfg.MaxBadCells, ErrInvalidConfig)
	}

	d := &Decoder{
		cfg:    cfg,
		queue:  NewFrameQueue(cfg.QueueSize),
		envMin: sampleCenter,
		envMax: sampleCenter,
		period: float64(cfg.SamplesPerFrame) / FrameBits,
	}
	d.resetFrameLevels()
	return d, nil
}

// Write feeds unsigned 8-bit samples centred at 128. pos is the absolute
// stream position of buf[0].
func (d *Decoder) Write(buf []uint8, pos int64) {
	for i, s := range buf {
		d.sample(s, pos+int64(i))
	}
}

// WriteInt32 feeds samples in the 24-bit range used by pkg/audio
func (d *Decoder) WriteInt32(buf []int32, pos int64) {
	writeConverted(d, buf, pos, audio.SampleToUint8)
}

// WriteInt16 feeds signed 16-bit samples
func (d *Decoder) WriteInt16(buf []int16, pos int64) {
	writeConverted(d, buf, pos, audio.Int16ToUint8)
}

// WriteUint16 feeds unsigned 16-bit samples centred at 32768
func (d *Decoder) WriteUint16(buf []uint16, pos int64) {
	writeConverted(d, buf, pos, audio.Uint16ToUint8)
}

// WriteFloat64 feeds samples normalized to [-1, 1]
func (d *Decoder) WriteFloat64(buf []float64, pos int64) {
	writeConverted(d, buf, pos, audio.Float64ToUint8)
}

// WriteFloat32 feeds samples normalized to [-1, 1]
func (d *Decoder) WriteFloat32(buf []float32, pos int64) {
	writeConverted(d, buf, pos, audio.Float32ToUint8)
}

func writeConverted[T any](d *Decoder, buf []T, pos int64, conv func(T) uint8) {
	var tmp [decodeChunk]uint8
	for len(buf) > 0 {
		n := min(len(buf), decodeChunk)
		for i := 0; i < n; i++ {
			tmp[i] = conv(buf[i])
		}
		d.Write(tmp[:n], pos)
		buf = buf[n:]
		pos += int64(n)
	}
}

// Read pops the oldest decoded frame. It never blocks.
func (d *Decoder) Read() (FrameExt, bool) {
	return d.queue.Pop()
}

// QueueFlush discards all unread frames, typically after a seek
func (d *Decoder) QueueFlush() {
	d.queue.Flush()
}

func (d *Decoder) QueueLength() int {
	return d.queue.Len()
}

// Stats returns event counters. Call it from the writing goroutine.
func (d *Decoder) Stats() DecoderStats {
	s := d.stats
	s.Dropped = d.queue.Dropped()
	return s
}

// Period returns the current bit-cell width estimate in samples
func (d *Decoder) Period() float64 {
	return d.period
}

func (d *Decoder) sample(s uint8, pos int64) {
	v := float64(s)

	d.envMax = sampleCenter + (d.envMax-sampleCenter)*envelopeDecay
	d.envMin = sampleCenter - (sampleCenter-d.envMin)*envelopeDecay
	if v > d.envMax {
		d.envMax = v
	}
	if v < d.envMin {
		d.envMin = v
	}
	if s > d.frameMax {
		d.frameMax = s
	}
	if s < d.frameMin {
		d.frameMin = s
	}

	hi := sampleCenter + math.Max((d.envMax-sampleCenter)/2, thresholdFloor)
	lo := sampleCenter - math.Max((sampleCenter-d.envMin)/2, thresholdFloor)

	switch {
	case !d.phase:
		// the first level seen fixes the polarity
		if v > hi || v < lo {
			d.high = v > hi
			d.edge(pos)
		}
	case !d.high && v > hi:
		d.high = true
		d.edge(pos)
	case d.high && v < lo:
		d.high = false
		d.edge(pos)
	}
}

func (d *Decoder) edge(pos int64) {
	if !d.phase {
		d.phase = true
		d.lastEdge = pos
		return
	}

	start := d.lastEdge
	interval := float64(pos - start)
	d.lastEdge = pos

	d.intervals[d.intervalPos] = interval
	d.intervalPos = (d.intervalPos + 1) % intervalHistory

	if interval > silenceCells*d.period {
		d.resetAssembly()
		d.noise()
		return
	}

	if interval > halfCellLimit*d.period {
		if d.halfPending {
			// a lone half cell cannot be paired
			d.halfPending = false
			d.pushBit(true, d.halfStart, 2*d.halfInterval, true, pos)
			d.noise()
		}
		d.pushBit(false, start, interval, !d.track(interval), pos)
		return
	}

	if !d.halfPending {
		d.halfPending = true
		d.halfStart = start
		d.halfInterval = interval
		return
	}
	d.halfPending = false
	width := d.halfInterval + interval
	d.pushBit(true, d.halfStart, width, !d.track(width), pos)
}

// track feeds a measured cell width to the estimator and reports whether it
// was within tolerance
func (d *Decoder) track(width float64) bool {
	if math.Abs(width-d.period) > d.cfg.Tolerance*d.period {
		d.noise()
		return false
	}
	d.period = (3*d.period + width) / 4
	d.badCells = 0
	return true
}

// noise counts an out-of-tolerance cell and drops sync after too many
func (d *Decoder) noise() {
	d.stats.NoisyCells++
	d.badCells++
	if d.badCells < d.cfg.MaxBadCells {
		return
	}

	d.badCells = 0
	d.stats.SyncLosses++
	d.resetAssembly()

	var widest float64
	for _, iv := range d.intervals {
		widest = math.Max(widest, iv)
	}
	if widest > 0 {
		d.period = widest
	}
	if d.cfg.Debug {
		log.Printf("ltc: sync lost, reseeding bit cell at %.2f samples", d.period)
	}
}

func (d *Decoder) resetAssembly() {
	d.halfPending = false
	d.cellCount = 0
	d.shift = 0
}

func (d *Decoder) resetFrameLevels() {
	d.frameMin = math.MaxUint8
	d.frameMax = 0
}

// pushBit appends one decoded cell and checks for a frame boundary.
// edgePos is the edge that closed the cell.
func (d *Decoder) pushBit(bit bool, start int64, width float64, noisy bool, edgePos int64) {
	d.cells[d.cellHead] = cell{bit: bit, start: start, width: width, noisy: noisy}
	d.cellHead = (d.cellHead + 1) % cellHistory
	if d.cellCount < cellHistory {
		d.cellCount++
	}

	d.shift <<= 1
	if bit {
		d.shift |= 1
	}

	switch {
	case d.shift == SyncWord && d.cellCount >= FrameBits:
		d.emitForward(edgePos)
	case d.shift == SyncWordReverse && d.cellCount >= cellHistory:
		d.emitReverse()
	}
}

// cellAt returns the i-th cell of the history, oldest first
func (d *Decoder) cellAt(i int) cell {
	return d.cells[(d.cellHead+i)%cellHistory]
}

func (d *Decoder) emitForward(edgePos int64) {
	var fe FrameExt
	noisy := false
	base := cellHistory - FrameBits
	for k := 0; k < FrameBits; k++ {
		c := d.cellAt(base + k)
		fe.Frame.setBit(k, c.bit)
		fe.BiphaseTics[k] = float32(c.width)
		noisy = noisy || c.noisy
	}
	fe.OffStart = d.cellAt(base).start
	fe.OffEnd = edgePos - 1
	d.finish(fe, noisy)
}

// emitReverse assembles the frame whose reversed sync word and data precede
// the sync word just received
func (d *Decoder) emitReverse() {
	var fe FrameExt
	noisy := false
	for k := 0; k < FrameBits; k++ {
		c := d.cellAt(FrameBits - 1 - k)
		fe.Frame.setBit(k, c.bit)
		fe.BiphaseTics[k] = float32(c.width)
		noisy = noisy || c.noisy
	}
	fe.OffStart = d.cellAt(0).start
	fe.OffEnd = d.cellAt(FrameBits).start - 1
	fe.Reverse = true
	d.finish(fe, noisy)
}

func (d *Decoder) finish(fe FrameExt, noisy bool) {
	fe.SampleMin = d.frameMin
	fe.SampleMax = d.frameMax
	d.resetFrameLevels()

	if noisy {
		d.stats.Discarded++
		if d.cfg.Debug {
			log.Printf("ltc: discarding noisy frame at %d", fe.OffStart)
		}
		return
	}

	fe.Volume = 20 * math.Log10(float64(fe.SampleMax-fe.SampleMin)/255)
	d.stats.Frames++
	if fe.Reverse {
		d.stats.Reverse++
	}
	d.queue.Push(fe)
}
