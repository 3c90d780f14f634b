// ABOUTME: Conversion between SMPTE timecode fields and LTC frames
// ABOUTME: Handles BCD digits, date and timezone user bits, drop-frame and parity
package ltc

import (
	"fmt"
	"math"
)

// Timecode is a SMPTE timecode value with optional date and timezone.
// Years are the two-digit year (0-99).
type Timecode struct {
	Timezone string // +HHMM or -HHMM
	Years    int
	Months   int
	Days     int
	Hours    int
	Minutes  int
	Seconds  int
	Frame    int
}

func (tc Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", tc.Hours, tc.Minutes, tc.Seconds, tc.Frame)
}

// FullYear expands the two-digit year, pivoting at 1967.
func (tc Timecode) FullYear() int {
	if tc.Years < 67 {
		return 2000 + tc.Years
	}
	return 1900 + tc.Years
}

// Date formats the date as YYYY-MM-DD.
func (tc Timecode) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", tc.FullYear(), tc.Months, tc.Days)
}

// FrameToTimecode extracts the timecode carried by f.
// Date and timezone are only read when flags has UseDate.
func FrameToTimecode(f Frame, flags BGFlags) Timecode {
	tc := Timecode{
		Timezone: defaultTimezone,
		Hours:    f.Hours(),
		Minutes:  f.Minutes(),
		Seconds:  f.Seconds(),
		Frame:    f.Frames(),
	}
	if flags.Has(UseDate) {
		tc.Years, tc.Months, tc.Days = f.date()
		tc.Timezone = timezoneOffset(uint8(f.userNibble(7) | f.userNibble(8)<<4))
	}
	return tc
}

// TimecodeToFrame builds a new frame for tc, with the binary group flags,
// drop-frame flag and parity implied by std and flags.
func TimecodeToFrame(tc Timecode, std Standard, flags BGFlags) Frame {
	f := NewFrame()
	f.applyFlags(std, flags)
	f.SetTimecode(tc, std, flags)
	return f
}

// SetTimecode overwrites the time (and with UseDate, the date) fields of f
// while keeping its flag bits. Frame numbers that drop-frame counting skips
// are moved forward to frame 2.
func (f *Frame) SetTimecode(tc Timecode, std Standard, flags BGFlags) {
	if flags.Has(UseDate) {
		f.setDate(tc.Years, tc.Months, tc.Days)
		code := timezoneCode(tc.Timezone)
		f.setUserNibble(7, int(code&0x0F))
		f.setUserNibble(8, int(code>>4))
	}

	f.setHours(tc.Hours)
	f.setMinutes(tc.Minutes)
	f.setSeconds(tc.Seconds)
	f.setFrames(tc.Frame)

	if f.DropFrame() && isDroppedNumber(tc.Minutes, tc.Seconds, tc.Frame) {
		f.setFrames(2)
	}

	if flags.parityEnabled() {
		f.SetParity(std)
	}
}

func (f *Frame) setDate(years, months, days int) {
	f.setUserNibble(1, days%10)
	f.setUserNibble(2, days/10)
	f.setUserNibble(3, months%10)
	f.setUserNibble(4, months/10)
	f.setUserNibble(5, years%10)
	f.setUserNibble(6, years/10)
}

func (f *Frame) date() (years, months, days int) {
	days = f.userNibble(1) + 10*f.userNibble(2)
	months = f.userNibble(3) + 10*f.userNibble(4)
	years = f.userNibble(5) + 10*f.userNibble(6)
	return years, months, days
}

// isDroppedNumber reports whether drop-frame counting skips this frame number
func isDroppedNumber(minutes, seconds, frame int) bool {
	return minutes%10 != 0 && seconds == 0 && (frame == 0 || frame == 1)
}

// SetParity recomputes the biphase polarity correction bit so the frame holds
// an even number of set bits. Call it after editing any field by hand.
func (f *Frame) SetParity(std Standard) {
	parity, _, _ := flagSlots(std)
	f.setBit(parity, false)

	var p byte
	for _, b := range f {
		p ^= b
	}
	var bit byte
	for i := 0; i < 8; i++ {
		bit ^= (p >> i) & 1
	}
	f.setBit(parity, bit == 1)
}

// FrameAlignment returns the sample offset between the audio frame boundary
// and the start of the LTC frame for the given standard.
func FrameAlignment(samplesPerFrame float64, std Standard) int64 {
	switch std {
	case TV525_60:
		return int64(math.RoundToEven(samplesPerFrame * 4.0 / 525.0))
	case TV625_50:
		return int64(math.RoundToEven(samplesPerFrame * 1.0 / 625.0))
	case TV1125_60, TVFilm24:
		return 0
	default:
		return 0
	}
}
