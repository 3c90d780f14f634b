// ABOUTME: TV standards, binary group flags and wrap indicators
// ABOUTME: Closed enumerations consumed by conversion, arithmetic and the encoder
package ltc

import (
	"fmt"
	"math"
)

// Standard selects the frame-rate family of a timecode stream
type Standard int

const (
	TV525_60  Standard = iota // 30fps (NTSC)
	TV625_50                  // 25fps (PAL/EBU)
	TV1125_60                 // 30fps (HD)
	TVFilm24                  // 24fps
)

// Valid reports whether s is one of the defined standards
func (s Standard) Valid() bool {
	switch s {
	case TV525_60, TV625_50, TV1125_60, TVFilm24:
		return true
	default:
		return false
	}
}

// FPS returns the nominal integer frame rate of the standard
func (s Standard) FPS() int {
	switch s {
	case TV525_60, TV1125_60:
		return 30
	case TV625_50:
		return 25
	case TVFilm24:
		return 24
	default:
		return 0
	}
}

// dropFrameCapable reports whether drop-frame numbering applies
func (s Standard) dropFrameCapable() bool {
	switch s {
	case TV525_60, TV1125_60:
		return true
	case TV625_50, TVFilm24:
		return false
	default:
		return false
	}
}

func (s Standard) String() string {
	switch s {
	case TV525_60:
		return "525/60"
	case TV625_50:
		return "625/50"
	case TV1125_60:
		return "1125/60"
	case TVFilm24:
		return "film/24"
	default:
		return fmt.Sprintf("Standard(%d)", int(s))
	}
}

// StandardForFPS picks the standard a frame rate is normally carried in
func StandardForFPS(fps float64) Standard {
	switch int(math.Round(fps)) {
	case 25:
		return TV625_50
	case 24:
		return TVFilm24
	default:
		return TV525_60
	}
}

// BGFlags controls how frames are built, advanced and encoded
type BGFlags uint8

const (
	// UseDate stores date and timezone in the user bits
	UseDate BGFlags = 1 << iota
	// UseParity maintains the biphase polarity correction bit
	UseParity
	// ReversePhase inverts the encoder output polarity
	ReversePhase
	// ClockTime marks the timecode as synchronized to wall-clock time (BGF1)
	ClockTime
	// DropFrame enables drop-frame numbering on 30fps standards
	DropFrame
)

// Has reports whether all bits of f are set
func (b BGFlags) Has(f BGFlags) bool {
	return b&f == f
}

// parityEnabled reports whether parity bits are maintained for these flags.
// Date and parity are mutually exclusive uses.
func (b BGFlags) parityEnabled() bool {
	return b.Has(UseParity) && !b.Has(UseDate)
}

// Wrap reports the largest unit that rolled over in an increment or decrement
type Wrap int

const (
	WrapNone Wrap = iota
	WrapSeconds
	WrapMinutes
	WrapHours
	WrapDay
)

func (w Wrap) String() string {
	switch w {
	case WrapNone:
		return "none"
	case WrapSeconds:
		return "seconds"
	case WrapMinutes:
		return "minutes"
	case WrapHours:
		return "hours"
	case WrapDay:
		return "day"
	default:
		return fmt.Sprintf("Wrap(%d)", int(w))
	}
}
