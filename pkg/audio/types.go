// ABOUTME: Audio type definitions and sample conversions
// ABOUTME: Defines audio formats, sample blocks and 8/16/24-bit/float conversions
package audio

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// Center of the unsigned 8-bit range used by the LTC codec
	Uint8Center = 128
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Buffer is a block of decoded mono PCM audio at an absolute stream position
type Buffer struct {
	Position int64   // index of the first sample in the stream
	Samples  []int32 // PCM samples in 24-bit range
	Format   Format
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// SampleToUint8 converts a 24-bit range sample to unsigned 8-bit centred at 128
func SampleToUint8(sample int32) uint8 {
	return uint8(Uint8Center + sample>>16)
}

// SampleFromUint8 converts an unsigned 8-bit sample to the 24-bit range
func SampleFromUint8(sample uint8) int32 {
	return (int32(sample) - Uint8Center) << 16
}

// Int16ToUint8 converts a signed 16-bit sample to unsigned 8-bit
func Int16ToUint8(sample int16) uint8 {
	return uint8(Uint8Center + sample>>8)
}

// Uint16ToUint8 converts an unsigned 16-bit sample (centred at 32768) to unsigned 8-bit
func Uint16ToUint8(sample uint16) uint8 {
	return uint8(sample >> 8)
}

// Float64ToUint8 converts a normalized [-1, 1] sample to unsigned 8-bit.
// Out of range input is clipped.
func Float64ToUint8(sample float64) uint8 {
	v := Uint8Center + sample*127
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Float32ToUint8 converts a normalized [-1, 1] float32 sample to unsigned 8-bit
func Float32ToUint8(sample float32) uint8 {
	return Float64ToUint8(float64(sample))
}

// SampleToFloat64 converts a 24-bit range sample to a normalized float
func SampleToFloat64(sample int32) float64 {
	return float64(sample) / float64(Max24Bit+1)
}
