// ABOUTME: Frame increment and decrement with seconds/minutes/hours/day carry
// ABOUTME: Applies drop-frame skipping and rolls the user-bit date when enabled
package ltc

import "fmt"

// Increment advances the timecode in f by one frame and reports the largest
// unit that rolled over. On error f is left unchanged.
func (f *Frame) Increment(fps int, std Standard, flags BGFlags) (Wrap, error) {
	return f.step(fps, std, flags, (*Frame).advance)
}

// Decrement moves the timecode in f back by one frame. It is the exact
// inverse of Increment for the same fps, standard and flags.
func (f *Frame) Decrement(fps int, std Standard, flags BGFlags) (Wrap, error) {
	return f.step(fps, std, flags, (*Frame).retreat)
}

func (f *Frame) step(fps int, std Standard, flags BGFlags, move func(*Frame, int, BGFlags) Wrap) (Wrap, error) {
	if fps < 1 {
		return WrapNone, fmt.Errorf("fps %d: %w", fps, ErrInvalidFPS)
	}
	if !std.Valid() {
		return WrapNone, fmt.Errorf("%v: %w", std, ErrInvalidStandard)
	}

	work := *f
	wrap := move(&work, fps, flags)

	if work.DropFrame() && fps > 2 {
		for isDroppedNumber(work.Minutes(), work.Seconds(), work.Frames()) {
			wrap = largerWrap(wrap, move(&work, fps, flags))
		}
	}

	if flags.parityEnabled() {
		work.SetParity(std)
	}
	*f = work
	return wrap, nil
}

func (f *Frame) advance(fps int, flags BGFlags) Wrap {
	h, m, s, fr := f.Hours(), f.Minutes(), f.Seconds(), f.Frames()
	wrap := WrapNone

	fr++
	if fr >= fps {
		fr = 0
		s++
		wrap = WrapSeconds
	}
	if s >= 60 {
		s = 0
		m++
		wrap = WrapMinutes
	}
	if m >= 60 {
		m = 0
		h++
		wrap = WrapHours
	}
	if h >= 24 {
		h = 0
		wrap = WrapDay
	}

	if wrap == WrapDay && flags.Has(UseDate) {
		f.shiftDate(1)
	}
	f.setClock(h, m, s, fr)
	return wrap
}

func (f *Frame) retreat(fps int, flags BGFlags) Wrap {
	h, m, s, fr := f.Hours(), f.Minutes(), f.Seconds(), f.Frames()
	wrap := WrapNone

	fr--
	if fr < 0 {
		fr = fps - 1
		s--
		wrap = WrapSeconds
	}
	if s < 0 {
		s = 59
		m--
		wrap = WrapMinutes
	}
	if m < 0 {
		m = 59
		h--
		wrap = WrapHours
	}
	if h < 0 {
		h = 23
		wrap = WrapDay
	}

	if wrap == WrapDay && flags.Has(UseDate) {
		f.shiftDate(-1)
	}
	f.setClock(h, m, s, fr)
	return wrap
}

func (f *Frame) setClock(h, m, s, fr int) {
	f.setHours(h)
	f.setMinutes(m)
	f.setSeconds(s)
	f.setFrames(fr)
}

// shiftDate moves the user-bit date one day forward (delta > 0) or back.
// A date without a valid month is not a calendar date and stays as it is.
func (f *Frame) shiftDate(delta int) {
	y, mo, d := f.date()
	if mo < 1 || mo > 12 {
		return
	}

	if delta > 0 {
		d++
		if d > daysInMonth(y, mo) {
			d = 1
			mo++
			if mo > 12 {
				mo = 1
				y = (y + 1) % 100
			}
		}
	} else {
		d--
		if d < 1 {
			mo--
			if mo < 1 {
				mo = 12
				y = (y + 99) % 100
			}
			d = daysInMonth(y, mo)
		}
	}

	f.setDate(y, mo, d)
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func daysInMonth(year, month int) int {
	if month == 2 && year%4 == 0 {
		return 29
	}
	return monthDays[month-1]
}

func wrapRank(w Wrap) int {
	switch w {
	case WrapNone, WrapSeconds, WrapMinutes, WrapHours, WrapDay:
		return int(w)
	default:
		panic(fmt.Sprintf("ltc: unknown wrap status %d", int(w)))
	}
}

func largerWrap(a, b Wrap) Wrap {
	if wrapRank(b) > wrapRank(a) {
		return b
	}
	return a
}
