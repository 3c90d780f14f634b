// ABOUTME: 80-bit LTC frame layout and field accessors
// ABOUTME: Defines Frame, FrameExt and the per-standard flag bit positions
package ltc

import "fmt"

const (
	// FrameBits is the number of bit cells in one LTC frame
	FrameBits = 80
	// FrameBytes is the packed size of one LTC frame
	FrameBytes = FrameBits / 8

	// SyncWord is the frame boundary pattern as seen in a forward bit stream
	SyncWord uint16 = 0x3FFD
	// SyncWordReverse is the same pattern seen in a reversed bit stream
	SyncWordReverse uint16 = 0xBFFC
)

// Bit positions of the frame fields
const (
	bitFrameUnits   = 0
	bitFrameTens    = 8
	bitDropFrame    = 10
	bitColorFrame   = 11
	bitSecsUnits    = 16
	bitSecsTens     = 24
	bitSlotA        = 27
	bitMinsUnits    = 32
	bitMinsTens     = 40
	bitSlotB        = 43
	bitHoursUnits   = 48
	bitHoursTens    = 56
	bitBGF1         = 58
	bitSlotC        = 59
	syncByteLow     = 0xFC
	syncByteHigh    = 0xBF
	userGroupCount  = 8
	userGroupStride = 8
)

// Frame is one LTC frame in transmission order: bit 0 of byte 0 is sent first
type Frame [FrameBytes]byte

// FrameExt is a decoded frame together with where and how it was found
type FrameExt struct {
	Frame       Frame
	OffStart    int64 // absolute sample position of the first sample of the frame
	OffEnd      int64 // absolute sample position of the last sample of the frame
	Reverse     bool  // frame was read from a reversed (rewinding) stream
	Volume      float64
	SampleMin   uint8
	SampleMax   uint8
	BiphaseTics [FrameBits]float32 // measured cell width in samples, one per bit
}

// NewFrame returns an all-zero frame carrying the sync word
func NewFrame() Frame {
	var f Frame
	f.Reset()
	return f
}

// Reset clears every field and restores the sync word
func (f *Frame) Reset() {
	*f = Frame{}
	f[8] = syncByteLow
	f[9] = syncByteHigh
}

func (f *Frame) bit(pos int) bool {
	return f[pos>>3]&(1<<(pos&7)) != 0
}

func (f *Frame) setBit(pos int, v bool) {
	if v {
		f[pos>>3] |= 1 << (pos & 7)
	} else {
		f[pos>>3] &^= 1 << (pos & 7)
	}
}

// field reads width bits starting at pos. Fields never straddle a byte.
func (f *Frame) field(pos, width int) int {
	mask := byte(1<<width - 1)
	return int((f[pos>>3] >> (pos & 7)) & mask)
}

func (f *Frame) setField(pos, width, v int) {
	mask := byte(1<<width - 1)
	shift := pos & 7
	f[pos>>3] = f[pos>>3]&^(mask<<shift) | (byte(v)&mask)<<shift
}

// flag slot positions: parity, BGF0, BGF2
func flagSlots(std Standard) (parity, bgf0, bgf2 int) {
	switch std {
	case TV625_50:
		return bitSlotC, bitSlotA, bitSlotB
	case TV525_60, TV1125_60, TVFilm24:
		return bitSlotA, bitSlotB, bitSlotC
	default:
		return bitSlotA, bitSlotB, bitSlotC
	}
}

// Sync returns the 16-bit sync field as it appears in a forward bit stream
func (f *Frame) Sync() uint16 {
	var w uint16
	for i := 64; i < FrameBits; i++ {
		w <<= 1
		if f.bit(i) {
			w |= 1
		}
	}
	return w
}

// Hours, Minutes, Seconds and Frames decode the BCD time fields
func (f *Frame) Hours() int {
	return f.field(bitHoursUnits, 4) + 10*f.field(bitHoursTens, 2)
}

func (f *Frame) Minutes() int {
	return f.field(bitMinsUnits, 4) + 10*f.field(bitMinsTens, 3)
}

func (f *Frame) Seconds() int {
	return f.field(bitSecsUnits, 4) + 10*f.field(bitSecsTens, 3)
}

func (f *Frame) Frames() int {
	return f.field(bitFrameUnits, 4) + 10*f.field(bitFrameTens, 2)
}

func (f *Frame) setHours(v int) {
	f.setField(bitHoursUnits, 4, v%10)
	f.setField(bitHoursTens, 2, v/10)
}

func (f *Frame) setMinutes(v int) {
	f.setField(bitMinsUnits, 4, v%10)
	f.setField(bitMinsTens, 3, v/10)
}

func (f *Frame) setSeconds(v int) {
	f.setField(bitSecsUnits, 4, v%10)
	f.setField(bitSecsTens, 3, v/10)
}

func (f *Frame) setFrames(v int) {
	f.setField(bitFrameUnits, 4, v%10)
	f.setField(bitFrameTens, 2, v/10)
}

// DropFrame reports the drop-frame flag
func (f *Frame) DropFrame() bool { return f.bit(bitDropFrame) }

// SetDropFrame sets the drop-frame flag. Call SetParity afterwards.
func (f *Frame) SetDropFrame(v bool) { f.setBit(bitDropFrame, v) }

// ColorFrame reports the color-frame flag
func (f *Frame) ColorFrame() bool { return f.bit(bitColorFrame) }

// SetColorFrame sets the color-frame flag. Call SetParity afterwards.
func (f *Frame) SetColorFrame(v bool) { f.setBit(bitColorFrame, v) }

// userNibble returns user bit group n (1-8)
func (f *Frame) userNibble(n int) int {
	return f.field((n-1)*userGroupStride+4, 4)
}

func (f *Frame) setUserNibble(n, v int) {
	f.setField((n-1)*userGroupStride+4, 4, v)
}

// UserBits packs the eight user bit groups, group 1 in the lowest nibble
func (f *Frame) UserBits() uint32 {
	var data uint32
	for n := userGroupCount; n >= 1; n-- {
		data = data<<4 | uint32(f.userNibble(n))
	}
	return data
}

// SetUserBits stores data into the user bit groups, lowest nibble in group 1
func (f *Frame) SetUserBits(data uint32) {
	for n := 1; n <= userGroupCount; n++ {
		f.setUserNibble(n, int(data&0xF))
		data >>= 4
	}
}

// BinaryGroupFlags returns BGF2<<2 | BGF1<<1 | BGF0 for the given standard
func (f *Frame) BinaryGroupFlags(std Standard) uint8 {
	_, bgf0, bgf2 := flagSlots(std)
	var v uint8
	if f.bit(bgf2) {
		v |= 4
	}
	if f.bit(bitBGF1) {
		v |= 2
	}
	if f.bit(bgf0) {
		v |= 1
	}
	return v
}

// applyFlags writes the binary group flags implied by flags
func (f *Frame) applyFlags(std Standard, flags BGFlags) {
	_, bgf0, bgf2 := flagSlots(std)
	f.setBit(bgf0, false)
	f.setBit(bgf2, flags.Has(UseDate))
	f.setBit(bitBGF1, flags.Has(ClockTime))
	f.SetDropFrame(flags.Has(DropFrame) && std.dropFrameCapable())
}

// String formats the time fields as HH:MM:SS:FF, using ';' for drop-frame
func (f Frame) String() string {
	sep := ":"
	if f.DropFrame() {
		sep = ";"
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", f.Hours(), f.Minutes(), f.Seconds(), sep, f.Frames())
}
