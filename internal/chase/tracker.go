// ABOUTME: Speed and position tracking of decoded LTC against the sample clock
// ABOUTME: Predicts timecode between frames and reports signal lock quality
package chase

import (
	"log"
	"math"
	"sync"

	"github.com/Sendspin/ltc-go/pkg/ltc"
)

// Quality represents lock quality
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "locked"
	case QualityDegraded:
		return "degraded"
	case QualityLost:
		return "lost"
	default:
		return "unknown"
	}
}

const (
	// jumpFrames is the prediction error beyond which a frame counts as a locate
	jumpFrames = 2.0

	// lostFrames is how many frame periods without input mean the signal is gone
	lostFrames = 25
)

// Tracker follows decoded frames and estimates playback speed.
// A speed of 1 is nominal, negative speeds mean the source plays backwards.
type Tracker struct {
	mu              sync.RWMutex
	samplesPerFrame float64
	fps             int
	lastFrame       float64 // frame number of the last observation
	lastPos         int64   // sample position of the last observation
	speed           float64
	quality         Quality
	count           int
	smoothingRate   float64
	Debug           bool
}

// NewTracker creates a tracker for LTC at fps frames per second in a
// stream of sampleRate samples per second
func NewTracker(sampleRate, fps float64) *Tracker {
	return &Tracker{
		samplesPerFrame: sampleRate / fps,
		fps:             int(math.Ceil(fps)),
		speed:           1.0,
		quality:         QualityLost,
		smoothingRate:   0.1,
	}
}

// FrameNumber counts frames since midnight. Drop-frame numbering skips
// frames 0 and 1 of every minute that is not a multiple of ten.
func FrameNumber(f ltc.Frame, fps int) int64 {
	minutes := int64(f.Hours()*60 + f.Minutes())
	n := (minutes*60+int64(f.Seconds()))*int64(fps) + int64(f.Frames())
	if f.DropFrame() {
		n -= 2 * (minutes - minutes/10)
	}
	return n
}

// framesPerDay returns the frame count of a full day
func (t *Tracker) framesPerDay(dropFrame bool) float64 {
	n := float64(24 * 3600 * t.fps)
	if dropFrame {
		n -= 2 * (24*60 - 24*6)
	}
	return n
}

// Observe feeds one decoded frame
func (t *Tracker) Observe(fe ltc.FrameExt) {
	n := float64(FrameNumber(fe.Frame, t.fps))
	pos := fe.OffStart

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		t.lastFrame, t.lastPos = n, pos
		t.count++
		t.quality = QualityDegraded
		return
	}

	dpos := float64(pos - t.lastPos)
	if dpos <= 0 {
		if t.Debug {
			log.Printf("chase: discarding frame at non-increasing position %d", pos)
		}
		return
	}

	// unwrap midnight
	dn := n - t.lastFrame
	day := t.framesPerDay(fe.Frame.DropFrame())
	if dn > day/2 {
		dn -= day
	} else if dn < -day/2 {
		dn += day
	}

	measured := dn * t.samplesPerFrame / dpos

	if t.count == 1 {
		t.speed = measured
	} else {
		predicted := t.speed * dpos / t.samplesPerFrame
		residual := dn - predicted
		if math.Abs(residual) > jumpFrames {
			// a locate: re-anchor and keep the current speed
			if t.Debug {
				log.Printf("chase: timecode jump of %.1f frames", residual)
			}
			t.lastFrame, t.lastPos = n, pos
			t.quality = QualityDegraded
			return
		}
		t.speed += t.smoothingRate * (measured - t.speed)
	}

	t.lastFrame, t.lastPos = n, pos
	t.count++
	t.quality = QualityGood
}

// Speed returns the current speed estimate
func (t *Tracker) Speed() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.speed
}

// Stats returns speed and quality
func (t *Tracker) Stats() (speed float64, quality Quality) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.speed, t.quality
}

// CheckQuality marks the signal lost when nothing was observed for a
// while before sample position pos
func (t *Tracker) CheckQuality(pos int64) Quality {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count > 0 && float64(pos-t.lastPos) > lostFrames*t.samplesPerFrame {
		t.quality = QualityLost
	}
	return t.quality
}

// Predict returns the fractional frame number expected at sample position pos
func (t *Tracker) Predict(pos int64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.count == 0 {
		return 0
	}
	return t.lastFrame + t.speed*float64(pos-t.lastPos)/t.samplesPerFrame
}

// Reset forgets all observations
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count = 0
	t.speed = 1.0
	t.quality = QualityLost
}
